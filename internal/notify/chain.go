package notify

import (
	"github.com/ignite/leadfunnel/internal/config"
)

// NewMailChain builds the configured transports in fallback order:
// authenticated SMTP when a host is set, SES when enabled and a client is
// given, then the local MTA when enabled.
func NewMailChain(cfg config.MailConfig, ses SESAPI) *Chain {
	var stages []Stage
	if cfg.SMTP.Host != "" {
		stages = append(stages, NewSMTPStage(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Secure, cfg.SMTP.Timeout()))
	}
	if cfg.SES.Enabled && ses != nil {
		stages = append(stages, NewSESStage(ses))
	}
	if cfg.Local.Enabled {
		stages = append(stages, NewLocalStage(cfg.Local.Addr, cfg.Local.Timeout()))
	}
	return NewChain(stages...)
}
