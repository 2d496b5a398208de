package application

import (
	"time"
)

// Status is the lifecycle of a creator proposal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// Application is a creator's proposal against an open task. Review fields
// belong to the task owner; the rest belongs to the applicant while pending.
type Application struct {
	ApplicationID string `gorm:"column:application_id;primaryKey;type:char(26)" json:"application_id"`
	Code          string `gorm:"column:code;uniqueIndex;type:varchar(32)" json:"code"`
	TaskID        string `gorm:"column:task_id;index;not null" json:"task_id"`
	ApplicantID   string `gorm:"column:applicant_id;index;not null" json:"applicant_id"`
	Proposal      string `gorm:"column:proposal;type:text" json:"proposal"`
	QuoteAmount   int64  `gorm:"column:quote_amount" json:"quote_amount"`
	Status        Status `gorm:"column:status;type:varchar(20);index;not null;default:'pending'" json:"status"`

	ReviewNotes  string     `gorm:"column:review_notes;type:text" json:"review_notes,omitempty"`
	ReviewedBy   string     `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	AutoRejected bool       `gorm:"column:auto_rejected" json:"auto_rejected"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string {
	return "task_applications"
}
