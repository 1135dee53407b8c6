package circuitbreaker

import (
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var (
	// MaxNumOfFailingRequests is the minimum number of observed requests
	// before the breaker may trip.
	MaxNumOfFailingRequests = 10
	// FailingRatio is the failing ratio at which the breaker trips.
	FailingRatio = 0.6
)

// NewCircuitBreaker returns a *gobreaker.CircuitBreaker guarding the remote
// ledger requests. It trips once the overall number of requests has reached
// MaxNumOfFailingRequests and the failing ratio has met FailingRatio, so a
// flapping archiver endpoint does not pile up blocked callers.
func NewCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "ledger",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) > MaxNumOfFailingRequests && ratio >= FailingRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Debugf("circuit breaker %s changed state from %s to %s", name, from, to)
		},
	})
}
