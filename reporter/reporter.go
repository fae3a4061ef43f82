// Package reporter implements the §6 "error reporter" collaborator: a
// rate-limited sink for the engine's diagnostic messages, backed by
// logrus so messages interleave sanely with the rest of a host process's
// structured logs.
package reporter

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/diskfs/go-fatfs/fat"
)

// RateLimited reports at most one message per (severity, format) key every
// Interval, dropping the rest silently, so a tight loop hitting the same
// corruption repeatedly does not flood the log (spec.md §6's "rate
// limited" requirement).
type RateLimited struct {
	Log      *logrus.Logger
	Interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// New returns a RateLimited reporter logging through log, suppressing
// repeats of the same (severity, format) pair within interval. If log is
// nil, logrus.StandardLogger() is used.
func New(log *logrus.Logger, interval time.Duration) *RateLimited {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RateLimited{Log: log, Interval: interval, last: make(map[string]time.Time)}
}

// Report implements fat.ErrorReporter.
func (r *RateLimited) Report(severity fat.Severity, format string, args ...any) {
	key := fmt.Sprintf("%d|%s", severity, format)

	r.mu.Lock()
	now := time.Now()
	if last, ok := r.last[key]; ok && now.Sub(last) < r.Interval {
		r.mu.Unlock()
		return
	}
	r.last[key] = now
	r.mu.Unlock()

	entry := r.Log.WithField("component", "fat")
	msg := fmt.Sprintf(format, args...)
	switch severity {
	case fat.SeverityError:
		entry.Error(msg)
	default:
		entry.Warn(msg)
	}
}
