package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/projectauth/pkg/logger"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler answers 200 while the process is able to serve.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler runs every check concurrently, bounded by timeout, and
// answers 503 when any of them fails.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			mu  sync.Mutex
			wg  sync.WaitGroup
			out = healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		)
		for _, name := range names {
			wg.Add(1)
			go func(name string, check Check) {
				defer wg.Done()
				err := check(ctx)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					out.Status = "unavailable"
					out.Checks[name] = "fail"
					log.WarnContext(ctx, "readiness check failed",
						logger.Component("health"),
						slog.String("check", name),
						logger.Error(err),
					)
					return
				}
				out.Checks[name] = "ok"
			}(name, checks[name])
		}
		wg.Wait()

		status := http.StatusOK
		if out.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, status, out)
	}
}

func writeHealth(w http.ResponseWriter, status int, body healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
