package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadfunnel/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+34 612 345 678": "612345678",
		"0034612345678":   "612345678",
		"612345678":       "612345678",
		"612-34-56-78":    "612345678",
		"6123456789999":   "612345678",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Ana María García López")
	assert.Equal(t, "Ana", first)
	assert.Equal(t, "María García López", last)

	first, last = SplitName("  Ana ")
	assert.Equal(t, "Ana", first)
	assert.Equal(t, "", last)
}

func TestBuildPayload(t *testing.T) {
	lead := domain.Lead{
		ID:     42,
		Name:   "Ana García",
		Email:  "ana@example.com",
		Phone:  "+34 612 345 678",
		Client: domain.ClientInfo{IP: "203.0.113.9"},
		Revolving: &domain.RevolvingDetails{
			Entity:         "Banco Uno",
			WantsAdvisor:   true,
			Debt:           3000,
			MonthlyPayment: 100,
			APR:            25,
			MonthsPaying:   24,
			Recoverable:    480,
			HasArrears:     true,
		},
		CreatedAt: time.Date(2026, 3, 4, 10, 11, 12, 0, time.UTC),
	}

	data, err := json.Marshal(BuildPayload(lead))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "revolving", got["origen"])
	assert.Equal(t, "Ana", got["nombre"])
	assert.Equal(t, "García", got["apellidos"])
	assert.Equal(t, "612345678", got["telefono"])
	assert.Equal(t, "Banco Uno", got["entidad_financiera"])
	assert.Equal(t, 480.0, got["cantidad_recuperable"])
	assert.Equal(t, 24.0, got["meses_pagando"])
	assert.Equal(t, true, got["desea_asesor"])
	assert.Equal(t, false, got["tiene_seguro"])
	assert.Equal(t, true, got["tiene_impagos"])
	assert.Equal(t, 42.0, got["id_lead_origen"])
	assert.Equal(t, "2026-03-04 10:11:12", got["fecha_registro"])
	assert.Equal(t, "calculadora_web", got["fuente"])
	assert.Equal(t, "203.0.113.9", got["ip_cliente"])

	for _, k := range []string{"dni", "direccion", "codigo_postal", "id_provincia", "id_municipio"} {
		v, ok := got[k]
		assert.True(t, ok, k)
		assert.Nil(t, v, k)
	}
}

func TestRenderReports(t *testing.T) {
	r := &domain.RelayReport{
		RunID:     "run-1",
		StartedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
		Total:     2,
		Sent:      1,
		Failed:    1,
		Errors:    []string{"Lead #2 (<b>Bob</b>): Error HTTP 500"},
	}

	text := RenderText(r)
	assert.Contains(t, text, "Total procesados: 2")
	assert.Contains(t, text, "• Lead #2 (<b>Bob</b>): Error HTTP 500")

	html, err := RenderHTML(r)
	require.NoError(t, err)
	assert.Contains(t, html, "Fallidos: <strong>1</strong>")
	assert.Contains(t, html, "&lt;b&gt;Bob&lt;/b&gt;")
	assert.NotContains(t, html, "MODO TEST")
}
