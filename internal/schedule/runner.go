package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/jdwit/s3-schedule-lambdas/internal/types"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const scheduledEventDetailType = "Scheduled Event"

type invokeFunc func(ctx context.Context, event events.CloudWatchEvent) (types.ScheduleResponse, error)

// Runner fires the scheduled handler locally on a cron schedule, standing in
// for an EventBridge rule.
type Runner struct {
	cron   *cron.Cron
	invoke invokeFunc
	source string
	logger zerolog.Logger
	now    func() time.Time
}

func NewRunner(h *Handler, spec, source string, logger zerolog.Logger) (*Runner, error) {
	return newRunner(h.HandleLambdaEvent, spec, source, logger)
}

func newRunner(invoke invokeFunc, spec, source string, logger zerolog.Logger) (*Runner, error) {
	r := &Runner{
		cron:   cron.New(),
		invoke: invoke,
		source: source,
		logger: logger,
		now:    time.Now,
	}
	if _, err := r.cron.AddFunc(spec, func() { r.fire(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return r, nil
}

// Run blocks until ctx is done, then waits for a running invocation to finish.
func (r *Runner) Run(ctx context.Context) error {
	r.cron.Start()
	r.logger.Info().Time("next", r.cron.Entries()[0].Next).Msg("schedule started")

	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.logger.Info().Msg("schedule stopped")
	return nil
}

// NewEvent builds the EventBridge envelope a scheduled rule would deliver.
func NewEvent(source string, firedAt time.Time) events.CloudWatchEvent {
	return events.CloudWatchEvent{
		Version:    "0",
		ID:         uuid.NewString(),
		DetailType: scheduledEventDetailType,
		Source:     source,
		Time:       firedAt.UTC(),
		Detail:     []byte("{}"),
	}
}

func (r *Runner) fire(ctx context.Context) {
	event := NewEvent(r.source, r.now())
	resp, err := r.invoke(ctx, event)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", event.ID).Msg("scheduled invocation failed")
		return
	}
	r.logger.Debug().Str("event_id", event.ID).Int("status_code", resp.StatusCode).Str("body", resp.Body).
		Msg("scheduled invocation completed")
}
