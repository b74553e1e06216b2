package models

// AgingTask is the queue message delivered when an aging timer fires.
// TaskID carries the id of the todo to mark.
type AgingTask struct {
	TaskID string `json:"taskId"`
}
