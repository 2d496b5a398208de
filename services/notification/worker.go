package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Worker handles notification jobs on the background queue. Delivery here is
// structured log dispatch; channel integrations hang off these handlers.
type Worker struct{}

func NewWorker() *Worker {
	return &Worker{}
}

func (w *Worker) HandleStageChanged(ctx context.Context, t *asynq.Task) error {
	var p StageChangedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode stage-changed payload: %w: %w", err, asynq.SkipRetry)
	}

	zap.L().Info("dispatch stage-changed notification",
		zap.String("task_id", p.TaskID),
		zap.String("code", p.Code),
		zap.String("entity_id", p.EntityID),
		zap.String("from", p.From),
		zap.String("to", p.To),
		zap.String("reason", p.Reason),
		zap.String("actor_id", p.ActorID),
	)
	return nil
}

func (w *Worker) HandleApplicationDecided(ctx context.Context, t *asynq.Task) error {
	var p ApplicationDecidedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode application-decided payload: %w: %w", err, asynq.SkipRetry)
	}

	zap.L().Info("dispatch application-decided notification",
		zap.String("application_id", p.ApplicationID),
		zap.String("task_id", p.TaskID),
		zap.String("applicant_id", p.ApplicantID),
		zap.String("decision", p.Decision),
	)
	return nil
}

var Module = fx.Module("service.notification",
	fx.Provide(NewWorker),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, w *Worker) {
	mux.HandleFunc(TypeTaskStageChanged, w.HandleStageChanged)
	mux.HandleFunc(TypeApplicationDecided, w.HandleApplicationDecided)
}
