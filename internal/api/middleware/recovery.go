package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dicearena/dicearena/internal/api/apierr"
	"github.com/dicearena/dicearena/internal/middleware"
)

// Recovery wraps the shared panic recovery middleware so that a panic
// surfaces to API clients as a JSON internal error.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
