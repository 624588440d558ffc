package relay

import (
	"regexp"
	"strings"

	"github.com/ignite/leadfunnel/internal/domain"
)

// Payload is the CRM lead intake document. The nil pointer fields are
// required by the receiver but never collected by the calculators.
type Payload struct {
	Origen              string  `json:"origen"`
	Nombre              string  `json:"nombre"`
	Apellidos           string  `json:"apellidos"`
	Email               string  `json:"email"`
	Telefono            string  `json:"telefono"`
	EntidadFinanciera   string  `json:"entidad_financiera"`
	Deuda               float64 `json:"deuda"`
	CuotaMensual        float64 `json:"cuota_mensual"`
	TAE                 float64 `json:"tae"`
	MesesPagando        int     `json:"meses_pagando"`
	CantidadRecuperable float64 `json:"cantidad_recuperable"`
	TieneSeguro         bool    `json:"tiene_seguro"`
	TieneImpagos        bool    `json:"tiene_impagos"`
	DeseaAsesor         bool    `json:"desea_asesor"`
	IDLeadOrigen        int64   `json:"id_lead_origen"`
	FechaRegistro       string  `json:"fecha_registro"`
	Fuente              string  `json:"fuente"`
	IPCliente           *string `json:"ip_cliente"`
	DNI                 *string `json:"dni"`
	Direccion           *string `json:"direccion"`
	CodigoPostal        *string `json:"codigo_postal"`
	IDProvincia         *int    `json:"id_provincia"`
	IDMunicipio         *int    `json:"id_municipio"`
}

// DateTimeLayout is how fecha_registro is rendered.
const DateTimeLayout = "2006-01-02 15:04:05"

var nonDigits = regexp.MustCompile(`\D`)

// BuildPayload maps a revolving lead to the CRM document.
func BuildPayload(l domain.Lead) Payload {
	first, last := SplitName(l.Name)
	p := Payload{
		Origen:        "revolving",
		Nombre:        first,
		Apellidos:     last,
		Email:         l.Email,
		Telefono:      NormalizePhone(l.Phone),
		IDLeadOrigen:  l.ID,
		FechaRegistro: l.CreatedAt.Format(DateTimeLayout),
		Fuente:        "calculadora_web",
	}
	if l.Client.IP != "" {
		ip := l.Client.IP
		p.IPCliente = &ip
	}
	if d := l.Revolving; d != nil {
		p.EntidadFinanciera = d.Entity
		p.Deuda = d.Debt
		p.CuotaMensual = d.MonthlyPayment
		p.TAE = d.APR
		p.MesesPagando = d.MonthsPaying
		p.CantidadRecuperable = d.Recoverable
		p.TieneSeguro = d.HasInsurance
		p.TieneImpagos = d.HasArrears
		p.DeseaAsesor = d.WantsAdvisor
	}
	return p
}

// SplitName splits a full name at the first space into first name and
// surnames.
func SplitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, rest, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(rest)
}

// NormalizePhone keeps digits only, drops a leading 34 and then a leading
// 0034, and truncates to nine digits.
func NormalizePhone(raw string) string {
	tel := nonDigits.ReplaceAllString(raw, "")
	tel = strings.TrimPrefix(tel, "34")
	tel = strings.TrimPrefix(tel, "0034")
	if len(tel) > 9 {
		tel = tel[:9]
	}
	return tel
}
