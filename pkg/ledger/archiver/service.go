package archiver

import (
	"encoding/json"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/tickwallet/tickwallet-daemon/pkg/circuitbreaker"
	"github.com/tickwallet/tickwallet-daemon/pkg/httputil"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

const requestsPerSecond = 20

type archiver struct {
	apiURL  string
	client  *httputil.Client
	breaker *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewService returns a ledger.Service talking to an archiver node at the
// given base URL. requestTimeout is expressed in milliseconds.
func NewService(apiURL string, requestTimeout int) (ledger.Service, error) {
	service := &archiver{
		apiURL:  apiURL,
		client:  httputil.NewClient(requestTimeout),
		breaker: circuitbreaker.NewCircuitBreaker(),
		limiter: ratelimit.New(requestsPerSecond),
	}

	if err := service.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	return service, nil
}

func (a *archiver) healthCheck() error {
	_, err := a.GetLatestTick()
	return err
}

// do performs one rate-limited HTTP round-trip through the circuit breaker.
// Transport-level failures count against the breaker; HTTP statuses are
// returned to the caller for endpoint-specific mapping.
func (a *archiver) do(method, url, body string, headers map[string]string) (int, string, error) {
	a.limiter.Take()

	res, err := a.breaker.Execute(func() (interface{}, error) {
		status, resp, err := a.client.NewHTTPRequest(method, url, body, headers)
		if err != nil {
			return nil, err
		}
		return [2]interface{}{status, resp}, nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("%w: %s", ledger.ErrRequestFailed, err)
	}

	pair := res.([2]interface{})
	return pair[0].(int), pair[1].(string), nil
}

// requestError maps a non-2xx response to ErrRequestFailed, carrying the
// status code and the server-supplied message when one is present.
func requestError(status int, body string) error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil && payload.Message != "" {
		return fmt.Errorf("%w: status %d: %s", ledger.ErrRequestFailed, status, payload.Message)
	}
	return fmt.Errorf("%w: status %d", ledger.ErrRequestFailed, status)
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
