package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/jdwit/s3-schedule-lambdas/internal/types"
	"github.com/rs/zerolog"
)

// TimeLayout renders invocation times as YYYY-MM-DD HH:MM:SS.
const TimeLayout = "2006-01-02 15:04:05"

const unknownSource = "Unknown"

type Handler struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger, now: time.Now}
}

// HandleLambdaEvent handles an EventBridge scheduled rule firing.
func (h *Handler) HandleLambdaEvent(ctx context.Context, event events.CloudWatchEvent) (types.ScheduleResponse, error) {
	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With().Str("request_id", lc.AwsRequestID).Logger()
	}

	currentTime := h.now().Format(TimeLayout)
	source := event.Source
	if source == "" {
		source = unknownSource
	}

	logger.Info().Msg("--- Scheduled Lambda Invoked ---")
	logger.Info().Msgf("Invocation Time: %s", currentTime)
	logger.Info().Msgf("Event Source: %s", source)
	logger.Info().Msg("The Lambda is running on a schedule.")

	body, err := messageBody(fmt.Sprintf("Daily scheduled job executed at %s", currentTime))
	if err != nil {
		return types.ScheduleResponse{}, fmt.Errorf("failed to encode response body: %w", err)
	}

	return types.ScheduleResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}, nil
}

// messageBody renders {"message": "..."} with the separators scheduled job
// consumers already match on.
func messageBody(message string) (string, error) {
	encoded, err := json.Marshal(message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"message": %s}`, encoded), nil
}
