package handlers

import (
	"context"
	"net/http"

	pkghttp "github.com/BradenHooton/usergate/pkg/http"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Health reports 200 when the database answers a ping, 503 otherwise
func Health(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteFailure(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		pkghttp.WriteSuccess(w, http.StatusOK, "ok", nil)
	}
}
