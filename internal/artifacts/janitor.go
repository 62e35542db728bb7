package artifacts

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StartJanitor schedules a periodic Sweep of store. schedule accepts standard
// five-field cron expressions and descriptors such as "@every 10m".
// The caller stops the returned scheduler on shutdown.
func StartJanitor(store *Store, schedule string, ttl time.Duration) (*cron.Cron, error) {
	c := cron.New()

	log.Printf("Starting artifact janitor (schedule=%s, ttl=%s)", schedule, ttl)
	_, err := c.AddFunc(schedule, func() {
		removed, err := store.Sweep(time.Now(), ttl)
		if err != nil {
			log.Printf("Artifact sweep errors: %v", err)
		}
		if removed > 0 {
			log.Printf("Removed %d expired artifacts", removed)
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
