package models

import "time"

type ReportType string

const (
	ReportTypeLost  ReportType = "lost"
	ReportTypeFound ReportType = "found"
)

func (t ReportType) Valid() bool {
	return t == ReportTypeLost || t == ReportTypeFound
}

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusApproved ReportStatus = "approved"
	ReportStatusRejected ReportStatus = "rejected"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusApproved, ReportStatusRejected:
		return true
	}
	return false
}

// Resolved reports whether the report already left the pending state.
func (s ReportStatus) Resolved() bool {
	return s == ReportStatusApproved || s == ReportStatusRejected
}

// Report is a user submission waiting for, or past, admin disposition.
// Type is stored verbatim so a corrupt value surfaces at approval time.
type Report struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	Description    *string      `json:"description"`
	Location       string       `json:"location"`
	Contact        string       `json:"contact"`
	DateReported   string       `json:"date_reported"`
	Type           ReportType   `json:"type"`
	Status         ReportStatus `json:"status"`
	SubmitterEmail string       `json:"user_email"`
	SubmitterID    int64        `json:"user_id"`
	CreatedAt      time.Time    `json:"created_at"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
}

type NewReport struct {
	Name           string
	Description    *string
	Location       string
	Contact        string
	DateReported   string
	Type           ReportType
	SubmitterEmail string
	SubmitterID    int64
}
