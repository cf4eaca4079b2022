package report

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger returns the run logger writing to w at the named level
// ("debug", "info", "warn", "error").
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "netsim",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return l, nil
}

// Rank tags every record of l with a worker rank.
func Rank(l *log.Logger, rank int) *log.Logger {
	return l.With("rank", rank)
}
