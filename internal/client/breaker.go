package client

import (
	"context"
	"errors"
	"time"

	"github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/sony/gobreaker/v2"
)

func newCircuitBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[*response] {
	halfOpen := cfg.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = 1
	}
	st := gobreaker.Settings{
		Name:        "catalog-api-cb",
		MaxRequests: halfOpen,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		// Only an unreachable or failing backend counts against the breaker;
		// not-found and rejected payloads are answers, not outages.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return !IsNetworkOrServer(err)
		},
	}
	return gobreaker.NewCircuitBreaker[*response](st)
}
