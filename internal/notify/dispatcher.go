package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// EventPublisher emits lead lifecycle events (SQS in production).
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.LeadEvent) error
}

// Policy selects the targets a funnel fans out to. Events are always
// published when a publisher is configured.
type Policy struct {
	Email   bool
	Webhook bool
}

// Dispatcher runs notifications off the request path.
type Dispatcher struct {
	mail     *Chain
	renderer *Renderer
	webhook  *Webhook
	events   EventPublisher
	policies map[domain.Funnel]Policy
	timeout  time.Duration

	wg  sync.WaitGroup
	log *logger.Logger
}

// DispatcherOptions wires a Dispatcher. Nil targets are skipped.
type DispatcherOptions struct {
	Mail     *Chain
	Renderer *Renderer
	Webhook  *Webhook
	Events   EventPublisher
	Policies map[domain.Funnel]Policy
	Timeout  time.Duration // per notification, covering every target
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Policies == nil {
		opts.Policies = map[domain.Funnel]Policy{}
	}
	return &Dispatcher{
		mail:     opts.Mail,
		renderer: opts.Renderer,
		webhook:  opts.Webhook,
		events:   opts.Events,
		policies: opts.Policies,
		timeout:  opts.Timeout,
		log:      logger.With("component", "notify"),
	}
}

// Notify schedules every configured target for lead and returns immediately.
// It satisfies intake.Notifier.
func (d *Dispatcher) Notify(lead *domain.Lead, form map[string]string) {
	l := *lead
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.deliver(ctx, &l, form)
	}()
}

// Wait blocks until in-flight notifications finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, lead *domain.Lead, form map[string]string) {
	policy := d.policies[lead.Funnel]
	log := d.log.With("funnel", lead.Funnel, "lead_id", lead.ID)

	if policy.Email && d.mail != nil && d.renderer != nil {
		msg, err := d.renderer.Render(lead)
		if err != nil {
			log.Error("render email failed", "error", err)
		} else if stage, err := d.mail.Deliver(ctx, msg); err != nil {
			log.Error("all mail stages failed", "to_email", lead.Email, "error", err)
		} else {
			log.Info("report email sent", "stage", stage)
		}
	}

	if policy.Webhook && d.webhook != nil {
		if err := d.webhook.Post(ctx, form); err != nil {
			log.Error("webhook failed", "error", err)
		} else {
			log.Info("webhook delivered")
		}
	}

	if d.events != nil {
		ev := domain.LeadEvent{
			ID:        uuid.New().String(),
			Type:      domain.EventLeadCreated,
			Funnel:    lead.Funnel,
			LeadID:    lead.ID,
			Token:     lead.Token,
			IPAddress: lead.Client.IP,
			UserAgent: lead.Client.UserAgent,
			Timestamp: time.Now().UTC(),
		}
		if err := d.events.Publish(ctx, ev); err != nil {
			log.Warn("publish lead.created failed", "error", err)
		}
	}
}
