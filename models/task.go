package models

import "time"

type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// ValidStatus reports whether s is one of the three task statuses. Any status
// may follow any other; there is no transition workflow.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a work item owned by exactly one project. UpdatedBy is an audit
// string (display name or email), not a user id.
type Task struct {
	ID        string     `json:"id" bson:"_id"`
	ProjectID string     `json:"projectId" bson:"projectId"`
	Text      string     `json:"text" bson:"text"`
	Status    TaskStatus `json:"status" bson:"status"`
	UpdatedBy string     `json:"updatedBy" bson:"updatedBy"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}
