package mockserver

import (
	"context"
	"math/rand"
	"time"
)

var samples = []struct{ text, link string }{
	{"Green Grocer listed 12 kg of mixed vegetables", "/listings/101/"},
	{"Your pickup request for 30 bagels was approved", "/transactions/57/"},
	{"Riverside Pantry claimed your dairy donation", "/transactions/58/"},
	{"Volunteer Sam accepted the 5pm delivery route", "/deliveries/12/"},
	{"Listing \"Day-old bread\" expires in 3 hours", "/listings/99/"},
	{"Monthly impact report is ready to download", "/reports/"},
}

// Seed adds n sample notifications.
func (s *Server) Seed(n int) {
	for i := 0; i < n; i++ {
		sm := samples[i%len(samples)]
		s.Add(sm.text, sm.link)
	}
}

// Simulate adds a random sample notification every interval until ctx ends.
func (s *Server) Simulate(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm := samples[rng.Intn(len(samples))]
			n := s.Add(sm.text, sm.link)
			s.logger.Debug().Str("id", n.ID).Msg("simulated notification")
		}
	}
}
