package watch

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
)

// scheduleRescan requests a full pass every w.rescan, covering changes the
// event stream missed (network mounts, overflowed inotify queues). The
// returned func shuts the scheduler down.
func (w *Watcher) scheduleRescan(trigger func()) (func(), error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(w.rescan),
		gocron.NewTask(func() {
			w.logger.Debug("Scheduled rescan")
			trigger()
		}),
		gocron.WithName("rescan"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create rescan job: %w", err)
	}

	s.Start()
	return func() { _ = s.Shutdown() }, nil
}
