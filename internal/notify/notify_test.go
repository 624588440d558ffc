package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadfunnel/internal/config"
	"github.com/ignite/leadfunnel/internal/domain"
)

// fakeStage records deliveries and optionally fails.
type fakeStage struct {
	name string
	err  error

	mu   sync.Mutex
	msgs []*Message
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Deliver(_ context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeStage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

// fakeSMTP speaks just enough SMTP for net/smtp, without STARTTLS.
type fakeSMTP struct {
	ln net.Listener

	mu       sync.Mutex
	messages []string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSMTP{ln: ln}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeSMTP) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 fake.local ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			tp.PrintfLine("250 fake.local")
		case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
			tp.PrintfLine("250 OK")
		case cmd == "DATA":
			tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.messages = append(f.messages, string(data))
			f.mu.Unlock()
			tp.PrintfLine("250 OK queued")
		case cmd == "QUIT":
			tp.PrintfLine("221 Bye")
			return
		default:
			tp.PrintfLine("502 Command not implemented")
		}
	}
}

func (f *fakeSMTP) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func testMessage() *Message {
	return &Message{
		To:        "ana@example.com",
		ToName:    "Ana",
		FromEmail: "info@example.com",
		FromName:  "Azuanet Tools",
		Subject:   "Tu Informe: Curso (Descarga Disponible)",
		HTML:      "<p>Hola</p>",
		Text:      "Hola",
	}
}

func roiLead() *domain.Lead {
	return &domain.Lead{
		ID:     7,
		Token:  "abc123",
		Funnel: domain.FunnelROI,
		Name:   "Ana",
		Email:  "ana@example.com",
		ROI: &domain.ROIDetails{
			ProductName: "Curso &amp; Co",
			ROI:         12.5,
			NetProfit:   310,
		},
		Client: domain.ClientInfo{IP: "203.0.113.5", UserAgent: "test"},
	}
}

func TestChain_FallsBackInOrder(t *testing.T) {
	first := &fakeStage{name: "smtp", err: errors.New("auth failed")}
	second := &fakeStage{name: "local"}
	third := &fakeStage{name: "never"}

	stage, err := NewChain(first, second, third).Deliver(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "local", stage)
	assert.Equal(t, 1, second.count())
	assert.Equal(t, 0, third.count())
}

func TestChain_AllFail(t *testing.T) {
	a := &fakeStage{name: "smtp", err: errors.New("timeout")}
	b := &fakeStage{name: "local", err: errors.New("connection refused")}

	_, err := NewChain(a, b).Deliver(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp: timeout")
	assert.Contains(t, err.Error(), "local: connection refused")

	_, err = NewChain().Deliver(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrNoStages)
}

func TestNewMailChain_Order(t *testing.T) {
	cfg := config.MailConfig{
		SMTP:  config.SMTPConfig{Host: "smtp.example.com", Port: 587},
		SES:   config.SESConfig{Enabled: true},
		Local: config.LocalMailConfig{Enabled: true, Addr: "localhost:25"},
	}
	assert.Equal(t, []string{"smtp", "ses", "local"}, NewMailChain(cfg, &fakeSES{}).Stages())

	cfg.SMTP.Host = ""
	assert.Equal(t, []string{"ses", "local"}, NewMailChain(cfg, &fakeSES{}).Stages())
	assert.Equal(t, []string{"local"}, NewMailChain(cfg, nil).Stages())
}

func TestLocalStage_Delivers(t *testing.T) {
	srv := startFakeSMTP(t)

	err := NewLocalStage(srv.ln.Addr().String(), 2*time.Second).Deliver(context.Background(), testMessage())
	require.NoError(t, err)

	msgs := srv.received()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Subject: Tu Informe: Curso (Descarga Disponible)")
	assert.Contains(t, msgs[0], "To: \"Ana\" <ana@example.com>")
	assert.Contains(t, msgs[0], "multipart/alternative")
}

func TestSMTPStage_RequiresSTARTTLS(t *testing.T) {
	srv := startFakeSMTP(t)
	host, portStr, _ := net.SplitHostPort(srv.ln.Addr().String())
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	smtpStage := NewSMTPStage(host, port, "user", "pass", "tls", 2*time.Second)
	err = smtpStage.Deliver(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTTLS")

	// The chain then falls through to the local relay.
	stage, err := NewChain(smtpStage, NewLocalStage(srv.ln.Addr().String(), 2*time.Second)).
		Deliver(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "local", stage)
	assert.Len(t, srv.received(), 1)
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{}, f.err
}

func TestSESStage(t *testing.T) {
	client := &fakeSES{}
	require.NoError(t, NewSESStage(client).Deliver(context.Background(), testMessage()))

	require.NotNil(t, client.in)
	assert.Equal(t, []string{"ana@example.com"}, client.in.Destination.ToAddresses)
	assert.Equal(t, "Azuanet Tools <info@example.com>", *client.in.FromEmailAddress)
	assert.Equal(t, "Hola", *client.in.Content.Simple.Body.Text.Data)

	client.err = errors.New("throttled")
	assert.Error(t, NewSESStage(client).Deliver(context.Background(), testMessage()))
}

func TestRenderer_ROI(t *testing.T) {
	r := NewRenderer("https://calc.example.com/", "info@example.com", "Azuanet Tools")

	msg, err := r.Render(roiLead())
	require.NoError(t, err)

	assert.Equal(t, "Tu Informe: Curso & Co (Descarga Disponible)", msg.Subject)
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Contains(t, msg.HTML, "https://calc.example.com/view_report?token=abc123")
	assert.Contains(t, msg.HTML, "https://calc.example.com/track?t=abc123")
	assert.Contains(t, msg.HTML, "Curso &amp; Co")
	assert.Contains(t, msg.HTML, "12.50%")
	assert.Contains(t, msg.Text, "Curso & Co")
}

func TestRenderer_Revolving(t *testing.T) {
	r := NewRenderer("https://calc.example.com", "info@example.com", "Azuanet Tools")
	lead := &domain.Lead{
		Token:     "tok",
		Funnel:    domain.FunnelRevolving,
		Name:      "Luis",
		Email:     "luis@example.com",
		Revolving: &domain.RevolvingDetails{Entity: "Banco Uno", Recoverable: 480},
	}

	msg, err := r.Render(lead)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "480.00 €")
	assert.Contains(t, msg.HTML, "Banco Uno")
}

func TestWebhook_PostsJSON(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, 2*time.Second, 0, false).Post(context.Background(), map[string]string{"leadName": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", got["leadName"])
}

func TestWebhook_SingleAttemptByDefault(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, 2*time.Second, 0, false).Post(context.Background(), map[string]string{})
	require.Error(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
}

func TestWebhook_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, 2*time.Second, 0, false).Post(context.Background(), map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestWebhook_VerifiesTLSByDefault(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, 2*time.Second, 0, false).Post(context.Background(), map[string]string{})
	assert.Error(t, err, "self-signed certificate must be rejected")

	err = NewWebhook(srv.URL, 2*time.Second, 0, true).Post(context.Background(), map[string]string{})
	assert.NoError(t, err, "explicit opt-out accepts it")
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.LeadEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev domain.LeadEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func TestDispatcher_FansOut(t *testing.T) {
	var hooks int
	var hookMu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hookMu.Lock()
		hooks++
		hookMu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	stage := &fakeStage{name: "fake"}
	pub := &fakePublisher{}
	d := NewDispatcher(DispatcherOptions{
		Mail:     NewChain(stage),
		Renderer: NewRenderer("https://calc.example.com", "info@example.com", "Azuanet Tools"),
		Webhook:  NewWebhook(srv.URL, 2*time.Second, 0, false),
		Events:   pub,
		Policies: map[domain.Funnel]Policy{domain.FunnelROI: {Email: true, Webhook: true}},
	})

	d.Notify(roiLead(), map[string]string{"leadName": "Ana"})
	d.Wait()

	require.Equal(t, 1, stage.count())
	assert.Equal(t, "ana@example.com", stage.msgs[0].To)
	hookMu.Lock()
	assert.Equal(t, 1, hooks)
	hookMu.Unlock()
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventLeadCreated, pub.events[0].Type)
	assert.Equal(t, int64(7), pub.events[0].LeadID)
	assert.NotEmpty(t, pub.events[0].ID)
}

func TestDispatcher_RespectsPolicy(t *testing.T) {
	stage := &fakeStage{name: "fake"}
	pub := &fakePublisher{}
	d := NewDispatcher(DispatcherOptions{
		Mail:     NewChain(stage),
		Renderer: NewRenderer("https://calc.example.com", "info@example.com", "Azuanet Tools"),
		Events:   pub,
	})

	lead := roiLead()
	lead.Funnel = domain.FunnelRevolving
	d.Notify(lead, nil)
	d.Wait()

	assert.Equal(t, 0, stage.count())
	assert.Len(t, pub.events, 1)
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	stage := &fakeStage{name: "fake", err: errors.New("down")}
	d := NewDispatcher(DispatcherOptions{
		Mail:     NewChain(stage),
		Renderer: NewRenderer("https://calc.example.com", "info@example.com", "Azuanet Tools"),
		Webhook:  NewWebhook("http://127.0.0.1:1", time.Second, 0, false),
		Policies: map[domain.Funnel]Policy{domain.FunnelROI: {Email: true, Webhook: true}},
	})

	d.Notify(roiLead(), map[string]string{})
	d.Wait()
	assert.Equal(t, 0, stage.count())
}
