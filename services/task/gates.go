package task

import (
	"context"

	"gorm.io/gorm"
)

// ApplicationGate is the engine's view of the application subsystem. It keeps
// stage preconditions decoupled from application internals.
type ApplicationGate interface {
	// OpenCount counts applications still awaiting a decision.
	OpenCount(ctx context.Context, taskID string) (int64, error)
	// AcceptedCount counts accepted applications. Exactly one is required to
	// start work.
	AcceptedCount(ctx context.Context, taskID string) (int64, error)
	// RejectPendingInTx auto-rejects the remaining pending applications when a
	// task starts, inside the transition's transaction.
	RejectPendingInTx(ctx context.Context, tx *gorm.DB, taskID, actorID string) error
}

// AssetGate is the engine's view of submitted work.
type AssetGate interface {
	SubmittedCount(ctx context.Context, taskID string) (int64, error)
	ApprovedCount(ctx context.Context, taskID string) (int64, error)
}
