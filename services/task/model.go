package task

import (
	"time"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"

	"gorm.io/datatypes"
)

// Task is a supplier-owned marketing assignment moving through the stage
// lifecycle. Status and Version change only through guarded conditional
// updates.
type Task struct {
	TaskID       string      `gorm:"column:task_id;primaryKey;type:char(26)" json:"task_id"`
	Code         string      `gorm:"column:code;uniqueIndex;type:varchar(32)" json:"code"`
	Slug         string      `gorm:"column:slug;index;type:varchar(255)" json:"slug"`
	EntityID     string      `gorm:"column:entity_id;index;not null" json:"entity_id"`
	Title        string      `gorm:"column:title;type:varchar(255)" json:"title"`
	Description  string      `gorm:"column:description;type:text" json:"description"`
	Requirements string      `gorm:"column:requirements;type:text" json:"requirements"`
	BudgetMin    int64       `gorm:"column:budget_min" json:"budget_min"`
	BudgetMax    int64       `gorm:"column:budget_max" json:"budget_max"`
	Deadline     *time.Time  `gorm:"column:deadline" json:"deadline,omitempty"`
	Latitude     *float64    `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude    *float64    `gorm:"column:longitude" json:"longitude,omitempty"`
	Status       stage.Stage `gorm:"column:status;type:varchar(20);index;not null;default:'draft'" json:"status"`
	Version      int64       `gorm:"column:version;not null;default:1" json:"version"`

	// Tags is a free-form label list used by discovery filters.
	Tags datatypes.JSON `gorm:"column:tags" json:"tags,omitempty"`

	// AcceptedCreatorID is set once an application is accepted and names the
	// creator working the task.
	AcceptedCreatorID string `gorm:"column:accepted_creator_id;index" json:"accepted_creator_id,omitempty"`

	CreatedBy string    `gorm:"column:created_by" json:"created_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// MissingFields evaluates the completeness checklist against the task
// content. Budget is satisfied by either bound.
func (t *Task) MissingFields(required []string) []string {
	var missing []string
	for _, field := range required {
		switch field {
		case "title":
			if t.Title == "" {
				missing = append(missing, field)
			}
		case "description":
			if t.Description == "" {
				missing = append(missing, field)
			}
		case "requirements":
			if t.Requirements == "" {
				missing = append(missing, field)
			}
		case "budget":
			if t.BudgetMin <= 0 && t.BudgetMax <= 0 {
				missing = append(missing, field)
			}
		case "deadline":
			if t.Deadline == nil {
				missing = append(missing, field)
			}
		}
	}
	return missing
}

// StageRecord is one row of the append-only stage history. The open record
// for a task has LeftAt unset.
type StageRecord struct {
	RecordID         string      `gorm:"column:record_id;primaryKey;type:char(26)" json:"record_id"`
	TaskID           string      `gorm:"column:task_id;index;not null" json:"task_id"`
	Stage            stage.Stage `gorm:"column:stage;type:varchar(20);not null" json:"stage"`
	EnteredAt        time.Time   `gorm:"column:entered_at;not null" json:"entered_at"`
	LeftAt           *time.Time  `gorm:"column:left_at" json:"left_at,omitempty"`
	DurationSeconds  *int64      `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	ActorID          string      `gorm:"column:actor_id" json:"actor_id"`
	Reason           string      `gorm:"column:reason;type:varchar(64)" json:"reason,omitempty"`
	Note             string      `gorm:"column:note;type:text" json:"note,omitempty"`
	ProgressOverride *int        `gorm:"column:progress_override" json:"progress_override,omitempty"`
	CreatedAt        time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (StageRecord) TableName() string {
	return "task_stage_records"
}
