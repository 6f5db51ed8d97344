package lingopref

import (
	"errors"
	"io"
	"net/http"
	"strconv"
)

var ErrHealthCheckFailed = errors.New("health check failed")

// Checker wraps the CheckHealth method.
//
// CheckHealth returns nil if the resource is healthy, or a non-nil error if
// the resource is not healthy.
type Checker interface {
	CheckHealth() error
}

// CheckerFunc is an adapter type to allow the use of ordinary functions as
// health checks.
type CheckerFunc func() error

func (f CheckerFunc) CheckHealth() error {
	return f()
}

// HealthCheckers returns the registered health checkers.
func (s *Service) HealthCheckers() []Checker {
	return s.healthCheckers
}

// HandleHealth returns 200 if the service is healthy, 500 otherwise.
func (s *Service) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	for _, c := range s.healthCheckers {
		if err := c.CheckHealth(); err != nil {
			writeHealthStatus(w, http.StatusInternalServerError, "unhealthy")
			return
		}
	}
	writeHealthStatus(w, http.StatusOK, "ok")
}

func writeHealthStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
