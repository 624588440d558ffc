package api

import (
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"strings"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/httputil"
	"github.com/ignite/leadfunnel/internal/service/admin"
)

var reportFuncs = template.FuncMap{
	"eur": func(v float64) string { return fmt.Sprintf("%.2f €", v) },
	"pct": func(v float64) string { return fmt.Sprintf("%.2f %%", v) },
	"num": func(v float64) string { return fmt.Sprintf("%.0f", v) },
}

const reportStyle = `<style>
body { font-family: system-ui, sans-serif; background: #f3f4f6; color: #333; padding: 20px; }
.card { max-width: 720px; margin: 0 auto; background: #fff; border-radius: 12px; padding: 30px; }
h1 { color: #4f46e5; }
table { width: 100%; border-collapse: collapse; }
td { padding: 8px 0; border-bottom: 1px solid #eee; }
td.v { text-align: right; font-weight: bold; }
.big { font-size: 2em; }
</style>`

var roiReportPage = template.Must(template.New("roi").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Informe ROI: {{ .ROI.ProductName }}</title>
` + reportStyle + `
</head>
<body>
<div class="card">
<h1>Informe de rentabilidad</h1>
<p>Hola {{ .Name }}, este es el análisis de <strong>{{ .ROI.ProductName }}</strong>.</p>
{{- if .ROI.ProductDescription }}
<p>{{ .ROI.ProductDescription }}</p>
{{- end }}
<p class="big" style="color: {{ if lt .ROI.ROI 0.0 }}#b91c1c{{ else }}#047857{{ end }};">ROI: {{ pct .ROI.ROI }}</p>
<table>
<tr><td>Inversión en publicidad</td><td class="v">{{ eur .ROI.Investment }}</td></tr>
<tr><td>Coste de gestión</td><td class="v">{{ eur .ROI.ManagementFee }}</td></tr>
<tr><td>Coste por clic</td><td class="v">{{ eur .ROI.CPC }}</td></tr>
<tr><td>Precio de venta</td><td class="v">{{ eur .ROI.Price }}</td></tr>
<tr><td>Margen</td><td class="v">{{ pct .ROI.MarginPercent }}</td></tr>
<tr><td>Tasa de conversión</td><td class="v">{{ pct .ROI.ConversionRate }}</td></tr>
<tr><td>Visitas estimadas</td><td class="v">{{ num .ROI.Visitors }}</td></tr>
<tr><td>Ventas estimadas</td><td class="v">{{ num .ROI.Sales }}</td></tr>
<tr><td>Beneficio neto</td><td class="v">{{ eur .ROI.NetProfit }}</td></tr>
{{- if .ROI.TargetRevenue }}
<tr><td>Objetivo de facturación</td><td class="v">{{ eur .ROI.TargetRevenue }}</td></tr>
{{- end }}
</table>
{{- if eq .ROI.Strategy "realistic" }}
<p><small>Cálculo realista: incluye calidad del tráfico, clics desperdiciados, rebote y competencia.</small></p>
{{- end }}
</div>
</body>
</html>
`))

var revolvingReportPage = template.Must(template.New("revolving").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Cálculo revolving: {{ .Revolving.Entity }}</title>
` + reportStyle + `
</head>
<body>
<div class="card">
<h1>Detalle del cálculo</h1>
<p>Hola {{ .Name }}, este es el cálculo de tu tarjeta revolving de <strong>{{ .Revolving.Entity }}</strong>.</p>
<p class="big" style="color: #047857;">Cantidad recuperable: {{ eur .Revolving.Recoverable }}</p>
<table>
<tr><td>Deuda actual</td><td class="v">{{ eur .Revolving.Debt }}</td></tr>
<tr><td>Cuota mensual</td><td class="v">{{ eur .Revolving.MonthlyPayment }}</td></tr>
<tr><td>TAE</td><td class="v">{{ pct .Revolving.APR }}</td></tr>
<tr><td>Meses pagando</td><td class="v">{{ .Revolving.MonthsPaying }}</td></tr>
</table>
<p><small>Estimación orientativa. Un asesor revisará tu caso.</small></p>
</div>
</body>
</html>
`))

// displayLead returns a copy of l with its text fields unescaped. Stored
// values are already HTML-escaped and html/template escapes them again.
func displayLead(l *domain.Lead) *domain.Lead {
	out := *l
	out.Name = html.UnescapeString(l.Name)
	if l.ROI != nil {
		roi := *l.ROI
		roi.ProductName = html.UnescapeString(roi.ProductName)
		roi.ProductDescription = html.UnescapeString(roi.ProductDescription)
		roi.BusinessType = html.UnescapeString(roi.BusinessType)
		out.ROI = &roi
	}
	if l.Revolving != nil {
		rev := *l.Revolving
		rev.Entity = html.UnescapeString(rev.Entity)
		out.Revolving = &rev
	}
	return &out
}

// HandleViewReport renders the report linked from the submitter's email,
// for either funnel.
//
//	GET /view_report?token=<token>
func (h *Handlers) HandleViewReport(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))

	lead, err := h.admin.Report(r.Context(), token)
	if errors.Is(err, admin.ErrNotFound) {
		httputil.HTML(w, http.StatusNotFound, "<!DOCTYPE html><html lang=\"es\"><body><h1>Informe no encontrado</h1></body></html>")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Error al cargar el informe")
		return
	}

	var page *template.Template
	switch {
	case lead.ROI != nil:
		page = roiReportPage
	case lead.Revolving != nil:
		page = revolvingReportPage
	default:
		respondSafeError(w, http.StatusInternalServerError, fmt.Errorf("lead %d has no report details", lead.ID), "Error al cargar el informe")
		return
	}

	var b strings.Builder
	if err := page.Execute(&b, displayLead(lead)); err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Error al cargar el informe")
		return
	}

	if h.tracking != nil {
		h.tracking.Emit(r.Context(), domain.LeadEvent{
			Type:      domain.EventReportViewed,
			Funnel:    lead.Funnel,
			LeadID:    lead.ID,
			Token:     token,
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
	}
	httputil.HTML(w, http.StatusOK, b.String())
}
