package notify

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/leadfunnel/internal/domain"
)

// Template is the Liquid source of one funnel's submitter email.
type Template struct {
	Subject string
	HTML    string
	Text    string
}

// DefaultTemplates returns the built-in submitter emails.
func DefaultTemplates() map[domain.Funnel]Template {
	return map[domain.Funnel]Template{
		domain.FunnelROI: {
			Subject: `Tu Informe: {{ product }} (Descarga Disponible)`,
			HTML: `<html>
<body style="font-family: Arial, sans-serif; color: #333; line-height: 1.6;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #eee; border-radius: 10px;">
    <h2 style="color: #4f46e5;">Hola {{ name }},</h2>
    <p>Tu análisis para <strong>{{ product }}</strong> está listo.</p>
    <p>ROI estimado: <strong>{{ roi | money }}%</strong> · Beneficio neto: <strong>{{ net_profit | money }} €</strong></p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{ report_url }}" style="background-color: #4f46e5; color: white; padding: 15px 25px; text-decoration: none; border-radius: 6px; font-weight: bold;">DESCARGAR INFORME PDF</a>
    </div>
    <p style="font-size: 12px; color: #666;">Enlace alternativo: <a href="{{ report_url }}">{{ report_url }}</a></p>
    <p style="font-size: 12px; color: #999;">Mensaje automático de {{ from_name }}.</p>
  </div>
  <img src="{{ pixel_url }}" width="1" height="1" style="display:none;" alt="" />
</body>
</html>`,
			Text: `Hola {{ name }},

Tu análisis para {{ product }} está listo.
ROI estimado: {{ roi | money }}%

Descarga tu informe: {{ report_url }}

Mensaje automático de {{ from_name }}.`,
		},
		domain.FunnelRevolving: {
			Subject: `Hemos recibido tu solicitud`,
			HTML: `<html>
<body style="font-family: Arial, sans-serif; color: #333; line-height: 1.6;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hola {{ name }},</h2>
    <p>Hemos recibido tu solicitud sobre tu tarjeta revolving de <strong>{{ entity }}</strong>.</p>
    <p>Cantidad recuperable estimada: <strong>{{ recoverable | money }} €</strong></p>
    <p><a href="{{ report_url }}">Ver el detalle del cálculo</a></p>
    <p style="font-size: 12px; color: #999;">Mensaje automático de {{ from_name }}.</p>
  </div>
  <img src="{{ pixel_url }}" width="1" height="1" style="display:none;" alt="" />
</body>
</html>`,
			Text: `Hola {{ name }},

Hemos recibido tu solicitud sobre tu tarjeta revolving de {{ entity }}.
Cantidad recuperable estimada: {{ recoverable | money }} €

Detalle: {{ report_url }}`,
		},
	}
}

// Renderer turns a lead into its submitter email.
type Renderer struct {
	engine    *liquid.Engine
	templates map[domain.Funnel]Template
	baseURL   string
	fromEmail string
	fromName  string
}

// NewRenderer creates a renderer with the built-in templates.
func NewRenderer(baseURL, fromEmail, fromName string) *Renderer {
	engine := liquid.NewEngine()

	// {{ 1234.5 | money }} => 1234.50
	engine.RegisterFilter("money", func(v interface{}) string {
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', 2, 64)
		case int:
			return strconv.FormatFloat(float64(n), 'f', 2, 64)
		default:
			return fmt.Sprintf("%v", v)
		}
	})

	return &Renderer{
		engine:    engine,
		templates: DefaultTemplates(),
		baseURL:   strings.TrimRight(baseURL, "/"),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// ReportURL is the link to the lead's report page.
func ReportURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/view_report?token=" + url.QueryEscape(token)
}

// PixelURL is the open-tracking pixel of the lead.
func PixelURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/track?t=" + url.QueryEscape(token)
}

// Render builds the submitter email for lead.
func (r *Renderer) Render(lead *domain.Lead) (*Message, error) {
	tpl, ok := r.templates[lead.Funnel]
	if !ok {
		return nil, fmt.Errorf("notify: no template for funnel %q", lead.Funnel)
	}

	bindings := map[string]interface{}{
		"name":       lead.Name,
		"email":      lead.Email,
		"from_name":  r.fromName,
		"report_url": ReportURL(r.baseURL, lead.Token),
		"pixel_url":  PixelURL(r.baseURL, lead.Token),
	}
	if lead.ROI != nil {
		bindings["product"] = lead.ROI.ProductName
		bindings["roi"] = lead.ROI.ROI
		bindings["net_profit"] = lead.ROI.NetProfit
	}
	if lead.Revolving != nil {
		bindings["entity"] = lead.Revolving.Entity
		bindings["recoverable"] = lead.Revolving.Recoverable
	}

	subject, err := r.engine.ParseAndRenderString(tpl.Subject, bindings)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err := r.engine.ParseAndRenderString(tpl.HTML, bindings)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	textBody, err := r.engine.ParseAndRenderString(tpl.Text, bindings)
	if err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}

	// Lead values are stored HTML-escaped; plain-text parts need them back.
	return &Message{
		To:        html.UnescapeString(lead.Email),
		ToName:    html.UnescapeString(lead.Name),
		FromEmail: r.fromEmail,
		FromName:  r.fromName,
		Subject:   html.UnescapeString(subject),
		HTML:      htmlBody,
		Text:      html.UnescapeString(textBody),
	}, nil
}
