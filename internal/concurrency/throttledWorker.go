package concurrency

import (
	"time"

	"github.com/3axap4eHko/litra/internal/protocol"
)

// ThrottledWorker spaces out consecutive device commands; the lamp drops
// reports that arrive back to back.
type ThrottledWorker struct {
	spacing     time.Duration
	jobCallback func(cmd protocol.Command) error
}

func NewThrottledWorker(spacing time.Duration, jobCallback func(cmd protocol.Command) error) ThrottledWorker {
	return ThrottledWorker{spacing: spacing, jobCallback: jobCallback}
}

// Run sends each command in order, waiting for the spacing interval before
// each one. The first command error stops the run.
func (w *ThrottledWorker) Run(cmds []protocol.Command) error {
	limiter := time.NewTicker(w.spacing)
	defer limiter.Stop()

	for _, cmd := range cmds {
		<-limiter.C
		if err := w.jobCallback(cmd); err != nil {
			return err
		}
	}
	return nil
}
