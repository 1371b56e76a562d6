package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

// ReadyCheck reports whether a subsystem can serve; nil means ready.
type ReadyCheck func(ctx context.Context) error

// HealthHandler answers liveness probes with 200 {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, "ok")
	})
}

// ReadyHandler answers readiness probes: 503 {"status":"unavailable",
// "reason":...} when a check fails, 200 {"status":"ok"} otherwise.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			if err := check(hr.Context()); err != nil {
				writeHealth(rw, http.StatusServiceUnavailable, "unavailable", "reason", err.Error())

				return
			}
		}

		writeHealth(rw, http.StatusOK, "ok")
	})
}

func writeHealth(rw http.ResponseWriter, code int, status string, kv ...string) {
	body := map[string]string{"status": status}
	for i := 0; i+1 < len(kv); i += 2 {
		body[kv[i]] = kv[i+1]
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_ = json.NewEncoder(rw).Encode(body)
}
