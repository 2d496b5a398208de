package notification

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeTaskStageChanged   = "notify:task:stage_changed"
	TypeApplicationDecided = "notify:application:decided"
)

// StageChangedPayload fans out to the parties watching a task whenever it
// moves between stages.
type StageChangedPayload struct {
	TaskID     string    `json:"task_id"`
	Code       string    `json:"code"`
	EntityID   string    `json:"entity_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewStageChangedTask(p StageChangedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTaskStageChanged, payload, asynq.Queue("default"), asynq.MaxRetry(5)), nil
}

// ApplicationDecidedPayload tells an applicant their application was
// accepted, rejected or auto-rejected.
type ApplicationDecidedPayload struct {
	ApplicationID string    `json:"application_id"`
	TaskID        string    `json:"task_id"`
	ApplicantID   string    `json:"applicant_id"`
	Decision      string    `json:"decision"`
	DecidedBy     string    `json:"decided_by"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewApplicationDecidedTask(p ApplicationDecidedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeApplicationDecided, payload, asynq.Queue("default"), asynq.MaxRetry(5)), nil
}
