package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/httputil"
	"github.com/ignite/leadfunnel/internal/service/admin"
	"github.com/ignite/leadfunnel/internal/storage"
)

const dateLayout = "2006-01-02"

// requireAdmin gates the admin API behind a static bearer token.
func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || !validToken(token, h.adminToken) {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LeadList is the body of GET /admin/leads.
type LeadList struct {
	Leads  []domain.Lead `json:"leads"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// HandleListLeads lists leads of one funnel.
//
//	GET /admin/leads?funnel=&stage=&from=YYYY-MM-DD&to=YYYY-MM-DD&q=&limit=&offset=
func (h *Handlers) HandleListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := admin.Filter{
		Funnel: domain.Funnel(q.Get("funnel")),
		Stage:  domain.Stage(q.Get("stage")),
		Search: q.Get("q"),
	}

	var err error
	if f.From, err = parseDay(q.Get("from")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		return
	}
	if f.To, err = parseDay(q.Get("to")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		return
	}
	if !f.To.IsZero() {
		f.To = f.To.AddDate(0, 0, 1) // inclusive day
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	leads, total, err := h.admin.List(r.Context(), f)
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = admin.DefaultLimit
	}
	httputil.OK(w, LeadList{Leads: leads, Total: total, Limit: limit, Offset: f.Offset})
}

// HandleUpdateStage moves a lead to another pipeline stage.
//
//	PATCH /admin/leads/{funnel}/{id}/stage  {"stage": "contactado"}
func (h *Handlers) HandleUpdateStage(w http.ResponseWriter, r *http.Request) {
	funnel := domain.Funnel(chi.URLParam(r, "funnel"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	var body struct {
		Stage domain.Stage `json:"stage"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	if err := h.admin.UpdateStage(r.Context(), funnel, id, body.Stage); err != nil {
		h.respondAdminError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"id": id, "funnel": funnel, "stage": body.Stage})
}

// HandleStats returns per-funnel dashboard counters.
//
//	GET /admin/stats
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"funnels": stats})
}

// HandleRelayRuns lists recent relay run summaries from the run ledger.
//
//	GET /admin/relay/runs?limit=
func (h *Handlers) HandleRelayRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotFound, "run ledger not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.RecentRuns(r.Context(), limit)
	if errors.Is(err, storage.ErrNoLedger) {
		respondError(w, http.StatusNotFound, "run ledger not configured")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "failed to load relay runs")
		return
	}
	httputil.OK(w, map[string]interface{}{"runs": runs})
}

func (h *Handlers) respondAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admin.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, admin.ErrInvalidStage), errors.Is(err, admin.ErrUnknownFunnel):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondSafeError(w, http.StatusInternalServerError, err, "internal server error")
	}
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, s, time.Local)
}
