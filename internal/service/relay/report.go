package relay

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/ignite/leadfunnel/internal/domain"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// RenderText formats a report for the CLI and the cron trigger.
func RenderText(r *domain.RelayReport) string {
	var b strings.Builder
	b.WriteString("========================================\n")
	b.WriteString("CRON JOB - Envío de Leads a API\n")
	fmt.Fprintf(&b, "Fecha: %s\n", r.StartedAt.Format(reportTimeLayout))
	fmt.Fprintf(&b, "Ejecución: %s\n", r.RunID)
	if r.DryRun {
		b.WriteString("MODO TEST: API desactivada, los leads se marcan como enviados sin enviarse\n")
	}
	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "Total procesados: %d\n", r.Total)
	fmt.Fprintf(&b, "Exitosos: %d\n", r.Sent)
	fmt.Fprintf(&b, "Fallidos: %d\n", r.Failed)
	if r.Skipped > 0 {
		fmt.Fprintf(&b, "Omitidos: %d\n", r.Skipped)
	}
	b.WriteString("========================================\n")

	if len(r.Errors) > 0 {
		b.WriteString("\nERRORES:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "• %s\n", e)
		}
	}
	return b.String()
}

var reportHTML = template.Must(template.New("report").Funcs(template.FuncMap{
	"fmtTime": func(r *domain.RelayReport) string { return r.FinishedAt.Format(reportTimeLayout) },
}).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<title>Envío de Leads a API</title>
<style>
body { font-family: system-ui, sans-serif; background: #f3f4f6; padding: 20px; }
.container { max-width: 900px; margin: 0 auto; background: #fff; border-radius: 12px; padding: 30px; }
.log { border: 1px solid #e5e7eb; border-radius: 8px; padding: 12px 16px; margin: 10px 0; font-family: monospace; }
.error { background: #fee2e2; color: #991b1b; }
.warning { background: #fef3c7; color: #92400e; }
</style>
</head>
<body>
<div class="container">
<h1>Envío de Leads a API del Cliente</h1>
{{- if .DryRun }}
<div class="log warning"><strong>MODO TEST:</strong> La API está desactivada. Los leads se marcan como enviados pero no se envían.</div>
{{- end }}
<div class="log">
Total procesados: <strong>{{ .Total }}</strong><br>
Exitosos: <strong>{{ .Sent }}</strong><br>
Fallidos: <strong>{{ .Failed }}</strong><br>
Omitidos: <strong>{{ .Skipped }}</strong><br>
<small>{{ fmtTime . }}</small>
</div>
{{- if .Errors }}
<h3>Errores detectados</h3>
<div class="log error">
{{- range .Errors }}
• {{ . }}<br>
{{- end }}
</div>
<div class="log">Los leads con error no se marcaron como enviados. Se reintentarán en la próxima ejecución.</div>
{{- end }}
</div>
</body>
</html>
`))

// RenderHTML formats a report for the manual trigger.
func RenderHTML(r *domain.RelayReport) (string, error) {
	var b strings.Builder
	if err := reportHTML.Execute(&b, r); err != nil {
		return "", fmt.Errorf("render relay report: %w", err)
	}
	return b.String(), nil
}
