package types

import "time"

// LineReport is the outcome of counting the lines of a single object.
type LineReport struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Lines     int       `json:"lines"`
	Timestamp time.Time `json:"-"`
}
