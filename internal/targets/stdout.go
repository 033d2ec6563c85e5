package targets

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jdwit/s3-schedule-lambdas/internal/types"
)

type StdoutTarget struct {
	out io.Writer
}

func (c *StdoutTarget) SendReports(reports []types.LineReport) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	for _, report := range reports {
		jsonData, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("error marshaling line report to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(out, "[%s] Line Report: %s\n", report.Timestamp.Format(time.RFC3339), jsonData); err != nil {
			return err
		}
	}
	return nil
}

func NewStdoutTarget() *StdoutTarget {
	return &StdoutTarget{}
}
