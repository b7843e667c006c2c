package querycache

import (
	"context"
	"time"
)

// startSweeper launches the recurring expiration sweep. The ticker
// re-arms itself after each run; Close stops the goroutine so no timer
// keeps the process alive at shutdown.
func (s *Store) startSweeper() {
	s.sweepStop = make(chan struct{})
	s.sweepDone = make(chan struct{})

	go func() {
		defer close(s.sweepDone)
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.SweepExpired(context.Background())
			case <-s.sweepStop:
				return
			}
		}
	}()
}
