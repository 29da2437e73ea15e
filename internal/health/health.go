// Package health reports whether the process is able to serve traffic.
package health

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Checker reports a problem as a non-nil error.
type Checker interface {
	Check() error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func() error

func (f CheckerFunc) Check() error {
	return f()
}

// MultiChecker fails when any of its checkers fails.
type MultiChecker struct {
	checkers []Checker
}

func NewMultiChecker(checkers ...Checker) *MultiChecker {
	return &MultiChecker{
		checkers: checkers,
	}
}

func (mc *MultiChecker) Check() error {
	var failures []string
	for _, checker := range mc.checkers {
		if err := checker.Check(); err != nil {
			failures = append(failures, err.Error())
		}
	}

	if len(failures) == 0 {
		return nil
	}
	return errors.New(strings.Join(failures, "\n"))
}

func (mc *MultiChecker) Add(checker Checker) {
	mc.checkers = append(mc.checkers, checker)
}

// HTTPHandler answers 204 when healthy and 503 with the failure text
// otherwise.
type HTTPHandler struct {
	checker Checker
}

func NewHTTPHandler(checker Checker) *HTTPHandler {
	return &HTTPHandler{
		checker: checker,
	}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.checker.Check()
	if err == nil {
		log.Debug("Health check passed")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	log.Warnf("Health check failed: %v", err)
	w.WriteHeader(http.StatusServiceUnavailable)
	if _, err := w.Write([]byte(err.Error())); err != nil {
		log.Errorf("Failed to write health check response: %v", err)
	}
}

// SetupHTTPMux registers the health handler at /health.
func SetupHTTPMux(mux *http.ServeMux, checker Checker) {
	mux.Handle("GET /health", NewHTTPHandler(checker))
}
