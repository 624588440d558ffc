package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/httputil"
	"github.com/ignite/leadfunnel/internal/service/intake"
)

const maxFormBytes = 1 << 20

// LeadResponse is the JSON body of both lead endpoints. User-facing failures
// are 200 with Success false.
type LeadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	LeadID  int64  `json:"lead_id,omitempty"`
}

// HandleROILead accepts the marketing-spend calculator form.
//
//	POST /leads/roi
func (h *Handlers) HandleROILead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.submit(w, r, domain.FunnelROI)
	if httputil.WantsJSON(r) {
		respondLead(w, lead, err)
		return
	}
	if err != nil {
		httputil.Text(w, http.StatusOK, intake.PublicMessage(err))
		return
	}
	http.Redirect(w, r, h.funnels.ROI.SuccessURL, http.StatusSeeOther)
}

// HandleRevolvingLead accepts the debt-recovery calculator form.
//
//	POST /leads/revolving
func (h *Handlers) HandleRevolvingLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.submit(w, r, domain.FunnelRevolving)
	respondLead(w, lead, err)
}

// HandleMethodNotAllowed answers every route hit with the wrong method.
func (h *Handlers) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusMethodNotAllowed, LeadResponse{Message: intake.MsgMethodNotAllowed})
}

var errBadForm = errors.New("unparsable form body")

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, funnel domain.Funnel) (*domain.Lead, error) {
	form, err := formValues(w, r)
	if err != nil {
		sanitizedError(http.StatusBadRequest, err, "lead form rejected")
		return nil, errBadForm
	}
	client := intake.ParseClientInfo(
		clientIP(r),
		r.UserAgent(),
		r.Header.Get("Accept-Language"),
		cookieValue(r, "device_res"),
	)
	return h.leads.Submit(r.Context(), funnel, form, client)
}

func respondLead(w http.ResponseWriter, lead *domain.Lead, err error) {
	if errors.Is(err, errBadForm) {
		respondJSON(w, http.StatusBadRequest, LeadResponse{Message: intake.MsgBotSuspected})
		return
	}
	resp := LeadResponse{Success: err == nil, Message: intake.PublicMessage(err)}
	if err == nil && lead != nil {
		resp.LeadID = lead.ID
	}
	respondJSON(w, http.StatusOK, resp)
}

// formValues flattens the POST body to its first value per key. Keys sent
// with an empty value are kept: presence alone is meaningful for checkboxes.
func formValues(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			out[k] = v[0]
		} else {
			out[k] = ""
		}
	}
	return out, nil
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
