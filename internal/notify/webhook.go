package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/leadfunnel/internal/pkg/httpretry"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// Webhook posts the sanitized form as JSON to a marketing-automation endpoint.
type Webhook struct {
	url      string
	client   httpretry.HTTPDoer
	insecure bool
	log      *logger.Logger
}

// NewWebhook creates a webhook target. TLS certificates are verified unless
// insecureSkipVerify is set, which is logged here and on every call.
func NewWebhook(url string, timeout time.Duration, maxRetries int, insecureSkipVerify bool, opts ...httpretry.Option) *Webhook {
	log := logger.With("component", "webhook")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		log.Warn("webhook TLS certificate verification disabled", "url", url)
	}
	base := &http.Client{Timeout: timeout, Transport: transport}

	return &Webhook{
		url:      url,
		client:   httpretry.NewRetryClient(base, maxRetries, opts...),
		insecure: insecureSkipVerify,
		log:      log,
	}
}

// Post sends form and returns an error for transport failures and non-2xx
// responses.
func (w *Webhook) Post(ctx context.Context, form map[string]string) error {
	if w.insecure {
		w.log.Warn("posting webhook without TLS verification", "url", w.url)
	}

	payload, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("webhook marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
