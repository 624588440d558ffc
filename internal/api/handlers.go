package api

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/leadfunnel/internal/config"
	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/httputil"
	"github.com/ignite/leadfunnel/internal/service/admin"
	"github.com/ignite/leadfunnel/internal/tracking"
)

// LeadSubmitter is satisfied by intake.Service.
type LeadSubmitter interface {
	Submit(ctx context.Context, funnel domain.Funnel, form map[string]string, client domain.ClientInfo) (*domain.Lead, error)
}

// RelayRunner is satisfied by relay.Service.
type RelayRunner interface {
	Run(ctx context.Context) (*domain.RelayReport, error)
}

// AdminService is satisfied by admin.Service.
type AdminService interface {
	List(ctx context.Context, f admin.Filter) ([]domain.Lead, int, error)
	UpdateStage(ctx context.Context, funnel domain.Funnel, id int64, stage domain.Stage) error
	Stats(ctx context.Context) ([]admin.Stats, error)
	Report(ctx context.Context, token string) (*domain.Lead, error)
}

// RunLister is satisfied by storage.Storage.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]domain.RelayReport, error)
}

// Options carries the dependencies of the HTTP surface. Relay, Admin, Runs
// and Health may be nil; the routes they back are then not mounted.
type Options struct {
	Leads          LeadSubmitter
	Relay          RelayRunner
	Admin          AdminService
	Runs           RunLister
	Tracking       *tracking.Handler
	Health         *HealthChecker
	Funnels        config.FunnelsConfig
	CronToken      string
	AdminToken     string
	AllowedOrigins []string
	TrustedProxies []*net.IPNet // peers whose forwarding headers are honoured
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	leads          LeadSubmitter
	relay          RelayRunner
	admin          AdminService
	runs           RunLister
	tracking       *tracking.Handler
	health         *HealthChecker
	funnels        config.FunnelsConfig
	cronToken      string
	adminToken     string
	allowedOrigins []string
	trustedProxies []*net.IPNet
}

// NewHandlers creates handlers from opts.
func NewHandlers(opts Options) *Handlers {
	return &Handlers{
		leads:          opts.Leads,
		relay:          opts.Relay,
		admin:          opts.Admin,
		runs:           opts.Runs,
		tracking:       opts.Tracking,
		health:         opts.Health,
		funnels:        opts.Funnels,
		cronToken:      opts.CronToken,
		adminToken:     opts.AdminToken,
		allowedOrigins: opts.AllowedOrigins,
		trustedProxies: opts.TrustedProxies,
	}
}

// HealthCheck is the fallback /health when no HealthChecker is wired.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "healthy"})
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.JSON(w, status, data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	httputil.Error(w, status, message)
}

// clientIP returns the request's remote host. For a trusted proxy peer,
// realIPFromTrusted has already replaced RemoteAddr with the forwarded
// address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// realIPFromTrusted runs middleware.RealIP only when the TCP peer is one of
// trusted. Any other peer keeps its own address, so a client cannot pick
// its rate-limit key through X-Forwarded-For, X-Real-IP or True-Client-IP.
func realIPFromTrusted(trusted []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		forwarded := middleware.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if peerTrusted(r.RemoteAddr, trusted) {
				forwarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func peerTrusted(remoteAddr string, trusted []*net.IPNet) bool {
	if len(trusted) == 0 {
		return false
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
