// Package models defines the server-side resources persisted by the stores.
package models

import (
	"time"
)

// Todo is the primary stored resource.
type Todo struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Title     string    `json:"title" dynamodbav:"title"`
	Completed bool      `json:"completed" dynamodbav:"completed"`
	Aged      bool      `json:"aged" dynamodbav:"aged"`
	DueDate   *Date     `json:"dueDate" dynamodbav:"dueDate"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// NewTodo returns a fresh, not yet persisted todo stamped with now.
func NewTodo(id, title string, dueDate *Date, now time.Time) *Todo {
	now = now.UTC()
	return &Todo{
		ID:        id,
		Title:     title,
		DueDate:   dueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
