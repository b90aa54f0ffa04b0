package moderation

import (
	"sync"
	"time"

	"github.com/voicewarden/voicewarden/setup/process"
)

// Scheduler runs named repeating tasks. Scheduling a key that is already
// running replaces the old task. All tasks stop when the process shuts
// down.
type Scheduler struct {
	process *process.ProcessContext

	mu      sync.Mutex
	cancels map[string]chan struct{}
}

func NewScheduler(process *process.ProcessContext) *Scheduler {
	return &Scheduler{
		process: process,
		cancels: map[string]chan struct{}{},
	}
}

// Every runs fn on the given interval until the key is cancelled or the
// process stops. The first run happens after one full interval.
func (s *Scheduler) Every(key string, interval time.Duration, fn func()) {
	s.mu.Lock()
	if cancel, ok := s.cancels[key]; ok {
		close(cancel)
	}
	cancel := make(chan struct{})
	s.cancels[key] = cancel
	s.mu.Unlock()

	s.process.ComponentStarted()
	go func() {
		defer s.process.ComponentFinished()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-cancel:
				return
			case <-s.process.WaitForShutdown():
				return
			}
		}
	}()
}

// Cancel stops the task registered under key, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[key]; ok {
		close(cancel)
		delete(s.cancels, key)
	}
}
