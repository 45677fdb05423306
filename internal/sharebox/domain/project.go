package domain

import "time"

type Project struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

type Membership struct {
	ProjectID string
	UserID    string
	AddedBy   string
	AddedAt   time.Time
}
