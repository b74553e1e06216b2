package models

import "time"

// Profile is the per-identity user profile, keyed by the identity subject.
type Profile struct {
	UserID      string    `json:"userId" dynamodbav:"userId"`
	DisplayName string    `json:"displayName" dynamodbav:"displayName"`
	Bio         string    `json:"bio" dynamodbav:"bio"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}
