package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/leadfunnel/internal/pkg/httpretry"
)

// UserAgent identifies the relay to the CRM.
const UserAgent = "CalculadoraRevolving/1.0"

// Sender delivers one payload to the CRM.
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// HTTPSender posts payloads as JSON. Each call is attempted once; a failed
// lead is retried by the next run.
type HTTPSender struct {
	url    string
	client httpretry.HTTPDoer
}

// NewHTTPSender creates a sender with the given per-request timeout.
func NewHTTPSender(url string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{url: url, client: &http.Client{Timeout: timeout}}
}

// NewHTTPSenderWithClient is NewHTTPSender with a caller-supplied client.
func NewHTTPSenderWithClient(url string, client httpretry.HTTPDoer) *HTTPSender {
	return &HTTPSender{url: url, client: client}
}

func (s *HTTPSender) Send(ctx context.Context, p Payload) error {
	if s.url == "" {
		return ErrNoEndpoint
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("Error de conexión: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Error HTTP %d", resp.StatusCode)
	}
	return nil
}
