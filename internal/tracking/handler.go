// Package tracking records report-email opens and report views.
//
// The pixel handler publishes events to SQS when a queue is configured and
// writes them straight to the event store otherwise. The Consumer drains the
// queue into the same store.
package tracking

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Recorder persists lead events.
type Recorder interface {
	Record(ctx context.Context, ev domain.LeadEvent) error
}

// Handler serves the open-tracking pixel.
type Handler struct {
	pub   *Publisher
	store Recorder
	now   func() time.Time
}

// NewHandler creates a pixel handler. pub may be nil, in which case events
// go to store directly.
func NewHandler(pub *Publisher, store Recorder) *Handler {
	return &Handler{pub: pub, store: store, now: time.Now}
}

// HandlePixel serves GET /track?t=<token>. The pixel is always served, even
// for unknown or missing tokens.
func (h *Handler) HandlePixel(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("t"))
	if token != "" {
		h.Emit(r.Context(), domain.LeadEvent{
			Type:      domain.EventOpened,
			Token:     token,
			IPAddress: realIP(r),
			UserAgent: r.UserAgent(),
		})
	}
	h.servePixel(w)
}

// Emit stamps and routes an event. Errors are logged only.
func (h *Handler) Emit(ctx context.Context, ev domain.LeadEvent) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = h.now().UTC()
	}

	if h.pub != nil {
		h.pub.PublishAsync(ev)
		return
	}
	if h.store == nil {
		return
	}
	if err := h.store.Record(ctx, ev); err != nil {
		logger.Warn("tracking event not recorded", "event_type", ev.Type, "error", err)
	}
}

// Publish lets the handler stand in as the lead event publisher, so
// lifecycle events follow the same queue-or-store route as opens.
func (h *Handler) Publish(ctx context.Context, ev domain.LeadEvent) error {
	h.Emit(ctx, ev)
	return nil
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

// realIP is the peer address. Forwarding headers are resolved upstream by
// the router, and only for trusted proxies.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
