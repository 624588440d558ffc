package api

import (
	"net/http"

	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// =============================================================================
// ERROR SANITIZER
// Internal errors (SQL text, hostnames, upstream bodies) are never sent to
// clients. The full error is logged server-side; the client gets publicMsg.
// =============================================================================

// sanitizedError logs the full internal error and returns a public-safe message.
func sanitizedError(code int, internalErr error, publicMsg string) string {
	if internalErr != nil {
		logger.Error(publicMsg, "status", code, "error", internalErr)
	}
	return publicMsg
}

// respondSafeError logs the internal error and sends a sanitized JSON error
// response to the client.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	msg := sanitizedError(code, internalErr, publicMsg)
	respondError(w, code, msg)
}
