package targets

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/jdwit/s3-schedule-lambdas/internal/config"
	"github.com/jdwit/s3-schedule-lambdas/internal/types"
	"github.com/rs/zerolog"
)

const (
	TargetCloudWatch = "cloudwatch"
	TargetStdout     = "stdout"
)

// Target receives the line reports produced by one upload invocation.
type Target interface {
	SendReports(reports []types.LineReport) error
}

// GetTargets builds the targets named in cfg.Targets. An empty configuration
// disables reporting and yields no targets.
func GetTargets(cfg config.Reporting, sess *session.Session, logger zerolog.Logger) ([]Target, error) {
	if strings.TrimSpace(cfg.Targets) == "" {
		return nil, nil
	}

	var targets []Target
	for _, t := range strings.Split(cfg.Targets, ",") {
		t = strings.TrimSpace(t)

		var target Target
		var err error

		switch t {
		case TargetCloudWatch:
			target, err = NewCloudWatchTarget(cfg, sess, logger)
		case TargetStdout:
			target = NewStdoutTarget()
		default:
			logger.Warn().Str("target", t).Msg("unsupported target type")
			continue
		}

		// Skip any targets that fail to initialize due to missing config or other errors
		if err != nil {
			logger.Warn().Err(err).Str("target", t).Msg("could not initialize target")
			continue
		}

		targets = append(targets, target)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no valid targets initialized from %q", cfg.Targets)
	}

	return targets, nil
}
