package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartConnectivityProbe re-probes the remote backend on an interval. Once the
// service is pinned to local-fallback mode, this probe is the only thing that
// can flip it back.
func (s *UserDataService) StartConnectivityProbe(interval time.Duration) {
	if s.remote == nil {
		return
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			wasAvailable := s.RemoteAvailable()

			ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
			defer cancel()
			ok := s.TestConnection(ctx)

			if ok && !wasAvailable {
				log.Println("✅ UserDataService - remote backend reachable again, leaving local-fallback mode")
			}
			if !ok && wasAvailable {
				log.Println("❌ UserDataService - remote backend unreachable, staying in local-fallback mode")
			}
		}),
	)
}
