// Package common contains shared constants and sentinel errors used across
// gophtodo components.
package common

// AuthorizationHeaderName carries the bearer token on inbound HTTP requests.
const AuthorizationHeaderName = "Authorization"

// AgingTaskPrefix prefixes the scheduler task name derived from a resource id,
// so at most one aging task can exist per resource.
const AgingTaskPrefix = "aging-"
