package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/ignite/leadfunnel/internal/pkg/httputil"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
	"github.com/ignite/leadfunnel/internal/service/relay"
)

// Messages returned by the cron trigger.
const (
	msgCronForbidden  = "Acceso denegado"
	msgCronInProgress = "Ya hay un envío de leads en curso"
	msgCronFailed     = "Error al ejecutar el envío de leads"
)

// HandleCronRelay runs one relay batch for an external scheduler. The report
// is plain text, or an HTML page when manual=1.
//
//	GET /cron/relay?token=<cron token>[&manual=1]
func (h *Handlers) HandleCronRelay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !validToken(q.Get("token"), h.cronToken) {
		logger.Warn("cron relay rejected: invalid token", "ip", clientIP(r))
		httputil.Text(w, http.StatusForbidden, msgCronForbidden)
		return
	}

	report, err := h.relay.Run(r.Context())
	if errors.Is(err, relay.ErrRunInProgress) {
		httputil.Text(w, http.StatusConflict, msgCronInProgress)
		return
	}
	if report == nil {
		respondSafeError(w, http.StatusInternalServerError, err, msgCronFailed)
		return
	}
	if err != nil {
		logger.Error("relay run ended early", "run_id", report.RunID, "error", err)
	}

	if q.Get("manual") == "1" {
		page, rerr := relay.RenderHTML(report)
		if rerr != nil {
			respondSafeError(w, http.StatusInternalServerError, rerr, msgCronFailed)
			return
		}
		httputil.HTML(w, http.StatusOK, page)
		return
	}
	httputil.Text(w, http.StatusOK, relay.RenderText(report))
}

// validToken compares in constant time. An unset expected token never matches.
func validToken(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
