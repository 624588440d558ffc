package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/leadfunnel/internal/domain"
)

// LeadRepo implements intake.Repository against PostgreSQL. Each funnel
// writes to its own table.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

// Insert stores the lead in one statement and returns the generated id.
func (r *LeadRepo) Insert(ctx context.Context, l *domain.Lead) (int64, error) {
	switch l.Funnel {
	case domain.FunnelROI:
		return r.insertROI(ctx, l)
	case domain.FunnelRevolving:
		return r.insertRevolving(ctx, l)
	default:
		return 0, fmt.Errorf("insert lead: unknown funnel %q", l.Funnel)
	}
}

func (r *LeadRepo) insertROI(ctx context.Context, l *domain.Lead) (int64, error) {
	d := l.ROI
	if d == nil {
		return 0, errors.New("insert roi lead: missing roi details")
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO leads (
			token, contact_name, email, phone, product_name, product_description,
			business_type, investment, cpc, product_price, product_cost, conversion_rate,
			margin_percent, target_revenue, management_fee, roi_strategy, roi, net_profit,
			visitors, sales, privacy_accepted, newsletter_opt_in,
			ip_address, user_agent, os, browser, device_type, screen_resolution, language,
			stage, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22,
			$23, $24, $25, $26, $27, $28, $29,
			$30, $31
		) RETURNING id
	`,
		l.Token, l.Name, l.Email, l.Phone, d.ProductName, d.ProductDescription,
		d.BusinessType, d.Investment, d.CPC, d.Price, d.Cost, d.ConversionRate,
		d.MarginPercent, d.TargetRevenue, d.ManagementFee, d.Strategy, d.ROI, d.NetProfit,
		d.Visitors, d.Sales, l.PrivacyAccepted, l.NewsletterOptIn,
		l.Client.IP, l.Client.UserAgent, l.Client.OS, l.Client.Browser, l.Client.DeviceType,
		l.Client.ScreenResolution, l.Client.Language,
		stageOrNew(l.Stage), l.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert roi lead: %w", err)
	}
	return id, nil
}

func (r *LeadRepo) insertRevolving(ctx context.Context, l *domain.Lead) (int64, error) {
	d := l.Revolving
	if d == nil {
		return 0, errors.New("insert revolving lead: missing revolving details")
	}
	status := l.RelayStatus
	if status == "" {
		status = domain.RelayPending
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO leads_revolving (
			token, nombre, telefono, email, entidad_financiera, desea_asesor,
			deuda, cuota_mensual, tae, meses_pagando, cantidad_recuperable,
			tiene_seguro, tiene_impagos, privacidad_aceptada, newsletter,
			ip_cliente, user_agent, sistema_operativo, navegador, dispositivo,
			resolucion_pantalla, idioma, estado, relay_status, enviado_api, fecha_registro
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26
		) RETURNING id
	`,
		l.Token, l.Name, l.Phone, l.Email, d.Entity, d.WantsAdvisor,
		d.Debt, d.MonthlyPayment, d.APR, d.MonthsPaying, d.Recoverable,
		d.HasInsurance, d.HasArrears, l.PrivacyAccepted, l.NewsletterOptIn,
		l.Client.IP, l.Client.UserAgent, l.Client.OS, l.Client.Browser, l.Client.DeviceType,
		l.Client.ScreenResolution, l.Client.Language, stageOrNew(l.Stage),
		string(status), status == domain.RelayRelayed, l.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert revolving lead: %w", err)
	}
	return id, nil
}

func stageOrNew(s domain.Stage) string {
	if s == "" {
		return string(domain.StageNew)
	}
	return string(s)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const roiColumns = `id, token, contact_name, email, phone, product_name, product_description,
	business_type, investment, cpc, product_price, product_cost, conversion_rate,
	margin_percent, target_revenue, management_fee, roi_strategy, roi, net_profit,
	visitors, sales, privacy_accepted, newsletter_opt_in,
	ip_address, user_agent, os, browser, device_type, screen_resolution, language,
	stage, created_at`

func scanROI(s rowScanner) (domain.Lead, error) {
	l := domain.Lead{Funnel: domain.FunnelROI, ROI: &domain.ROIDetails{}}
	d := l.ROI
	var stage string
	err := s.Scan(
		&l.ID, &l.Token, &l.Name, &l.Email, &l.Phone, &d.ProductName, &d.ProductDescription,
		&d.BusinessType, &d.Investment, &d.CPC, &d.Price, &d.Cost, &d.ConversionRate,
		&d.MarginPercent, &d.TargetRevenue, &d.ManagementFee, &d.Strategy, &d.ROI, &d.NetProfit,
		&d.Visitors, &d.Sales, &l.PrivacyAccepted, &l.NewsletterOptIn,
		&l.Client.IP, &l.Client.UserAgent, &l.Client.OS, &l.Client.Browser, &l.Client.DeviceType,
		&l.Client.ScreenResolution, &l.Client.Language,
		&stage, &l.CreatedAt,
	)
	l.Stage = domain.Stage(stage)
	return l, err
}

const revolvingColumns = `id, token, nombre, telefono, email, entidad_financiera, desea_asesor,
	deuda, cuota_mensual, tae, meses_pagando, cantidad_recuperable,
	tiene_seguro, tiene_impagos, privacidad_aceptada, newsletter,
	ip_cliente, user_agent, sistema_operativo, navegador, dispositivo,
	resolucion_pantalla, idioma, estado, relay_status, claimed_at, relay_error,
	fecha_envio_api, fecha_registro`

func scanRevolving(s rowScanner) (domain.Lead, error) {
	l := domain.Lead{Funnel: domain.FunnelRevolving, Revolving: &domain.RevolvingDetails{}}
	d := l.Revolving
	var (
		stage, status        string
		claimedAt, relayedAt sql.NullTime
	)
	err := s.Scan(
		&l.ID, &l.Token, &l.Name, &l.Phone, &l.Email, &d.Entity, &d.WantsAdvisor,
		&d.Debt, &d.MonthlyPayment, &d.APR, &d.MonthsPaying, &d.Recoverable,
		&d.HasInsurance, &d.HasArrears, &l.PrivacyAccepted, &l.NewsletterOptIn,
		&l.Client.IP, &l.Client.UserAgent, &l.Client.OS, &l.Client.Browser, &l.Client.DeviceType,
		&l.Client.ScreenResolution, &l.Client.Language, &stage, &status, &claimedAt, &l.RelayError,
		&relayedAt, &l.CreatedAt,
	)
	l.Stage = domain.Stage(stage)
	l.RelayStatus = domain.RelayStatus(status)
	if claimedAt.Valid {
		l.ClaimedAt = &claimedAt.Time
	}
	if relayedAt.Valid {
		l.RelayedAt = &relayedAt.Time
	}
	return l, err
}
