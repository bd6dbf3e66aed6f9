// Package healthcheck polls a liveness endpoint until it responds healthy or
// a wall-clock deadline passes.
package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Result is one observation of the target. Results are only used for the
// current release decision and are not persisted.
type Result struct {
	Target    string        `json:"target"`
	Timestamp time.Time     `json:"timestamp"`
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
}

// TimeoutError means the target never reported healthy before the deadline.
// A canceled wait reports the same error; a deploy that cannot confirm
// health in time has failed either way.
type TimeoutError struct {
	Target   string
	Deadline time.Duration
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("target %s did not become healthy within %s (%d attempts)",
		e.Target, e.Deadline, e.Attempts)
}

type Verifier struct {
	client *http.Client
}

func New() *Verifier {
	return &Verifier{client: &http.Client{Timeout: 5 * time.Second}}
}

// Wait polls url every interval until a 2xx response or the timeout.
// Connection refused and non-2xx responses are both "not yet healthy"; only
// the deadline turns them into a failure.
func (v *Verifier) Wait(ctx context.Context, url string, interval, timeout time.Duration) (Result, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := 0
	for {
		attempts++
		result := v.probe(deadlineCtx, url)
		if result.Healthy {
			return result, nil
		}

		select {
		case <-deadlineCtx.Done():
			return result, &TimeoutError{Target: url, Deadline: timeout, Attempts: attempts}
		case <-time.After(interval):
		}
	}
}

func (v *Verifier) probe(ctx context.Context, url string) Result {
	result := Result{Target: url, Timestamp: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result
	}

	start := time.Now()
	resp, err := v.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		return result
	}
	defer resp.Body.Close()

	result.Healthy = resp.StatusCode >= 200 && resp.StatusCode < 300
	return result
}
