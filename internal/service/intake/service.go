package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/financial"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// Options selects the calculator strategies.
type Options struct {
	ROIStrategy      string
	RecoveryStrategy string
	LegalRate        float64
}

// Service runs the submission pipeline. It is safe for concurrent use.
type Service struct {
	repo        Repository
	limiter     RateLimiter
	notifier    Notifier
	validator   *Validator
	roiStrategy string
	recovery    financial.RecoveryEstimator
	now         func() time.Time
	log         *logger.Logger
}

// NewService creates an intake service. limiter and notifier may be nil.
func NewService(repo Repository, limiter RateLimiter, notifier Notifier, opts Options) (*Service, error) {
	switch opts.ROIStrategy {
	case "", financial.StrategyPlain, financial.StrategyRealistic:
	default:
		return nil, fmt.Errorf("%w: %q", financial.ErrUnknownStrategy, opts.ROIStrategy)
	}
	recovery, err := financial.NewRecoveryEstimator(opts.RecoveryStrategy, opts.LegalRate)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:        repo,
		limiter:     limiter,
		notifier:    notifier,
		validator:   NewValidator(opts.ROIStrategy),
		roiStrategy: opts.ROIStrategy,
		recovery:    recovery,
		now:         time.Now,
		log:         logger.With("component", "intake"),
	}, nil
}

// Submit validates, computes and stores one form submission, then hands the
// stored lead to the notifier. The returned error is one of ErrBotSuspected,
// ErrRateLimited, *ValidationError or ErrStorage; map it for the visitor with
// PublicMessage.
func (s *Service) Submit(ctx context.Context, funnel domain.Funnel, form map[string]string, client domain.ClientInfo) (*domain.Lead, error) {
	fs, ok := FieldsFor(funnel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunnel, funnel)
	}

	if form[HoneypotField] != "" {
		s.log.Warn("honeypot triggered", "funnel", funnel, "ip", client.IP)
		return nil, ErrBotSuspected
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, client.IP)
		if err != nil {
			s.log.Warn("rate limiter unavailable, allowing request", "ip", client.IP, "error", err)
		} else if !allowed {
			s.log.Warn("rate limit exceeded", "funnel", funnel, "ip", client.IP)
			return nil, ErrRateLimited
		}
	}

	sub, err := s.validator.Validate(form, fs)
	if err != nil {
		return nil, err
	}

	lead, err := s.buildLead(sub, client)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.Insert(ctx, lead)
	if err != nil {
		s.log.Error("lead insert failed", "funnel", funnel, "email", lead.Email, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	lead.ID = id
	s.log.Info("lead stored", "funnel", funnel, "lead_id", id, "relay_status", lead.RelayStatus)

	if s.notifier != nil {
		s.notifier.Notify(lead, sub.Fields)
	}
	return lead, nil
}

func (s *Service) buildLead(sub *Submission, client domain.ClientInfo) (*domain.Lead, error) {
	token, err := domain.NewToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	lead := &domain.Lead{
		Token:           token,
		Funnel:          sub.Funnel,
		Name:            sub.Name,
		Email:           sub.Email,
		Phone:           sub.Phone,
		PrivacyAccepted: sub.PrivacyAccepted,
		NewsletterOptIn: sub.NewsletterOptIn,
		Client:          client,
		Stage:           domain.StageNew,
		RelayStatus:     domain.RelayPending,
		CreatedAt:       s.now().UTC(),
	}

	switch sub.Funnel {
	case domain.FunnelROI:
		details, err := s.roiDetails(sub.Fields)
		if err != nil {
			return nil, err
		}
		lead.ROI = details
	case domain.FunnelRevolving:
		lead.Revolving = s.revolvingDetails(sub.Fields)
	}
	return lead, nil
}

func (s *Service) roiDetails(f map[string]string) (*domain.ROIDetails, error) {
	in := financial.ROIInput{
		AdSpend:        parseFloat(f["investment"]),
		CostPerClick:   parseFloat(f["cpc"]),
		Price:          parseFloat(f["price"]),
		MarginPercent:  parseFloat(f["margin"]),
		ConversionRate: parseFloat(f["conversion"]),
		ManagementFee:  parseFloat(f["managementFee"]),
	}

	res, err := financial.ComputeROI(s.roiStrategy, in, factorsFrom(f))
	if errors.Is(err, financial.ErrWastedClicksOutOfRange) {
		return nil, &ValidationError{Messages: []string{"Los clics desperdiciados deben ser menores que 100"}}
	}
	if err != nil {
		return nil, err
	}

	return &domain.ROIDetails{
		ProductName:        f["prodName"],
		ProductDescription: f["prodDesc"],
		BusinessType:       f["businessType"],
		Investment:         in.AdSpend,
		CPC:                in.CostPerClick,
		Price:              in.Price,
		Cost:               res.UnitCost,
		ConversionRate:     in.ConversionRate,
		MarginPercent:      in.MarginPercent,
		TargetRevenue:      parseFloat(f["targetRevenue"]),
		ManagementFee:      in.ManagementFee,
		Strategy:           res.Strategy,
		ROI:                res.ROI,
		NetProfit:          res.Profit,
		Visitors:           res.Visitors,
		Sales:              res.Sales,
	}, nil
}

// factorsFrom starts from the defaults and overrides every factor the form supplied.
func factorsFrom(f map[string]string) financial.Factors {
	factors := financial.DefaultFactors()
	if v, ok := f["trafficQuality"]; ok && v != "" {
		factors.TrafficQuality = parseFloat(v)
	}
	if v, ok := f["wastedClicks"]; ok && v != "" {
		factors.WastedClicks = parseFloat(v)
	}
	if v, ok := f["bounceRate"]; ok && v != "" {
		factors.BounceRate = parseFloat(v)
	}
	if v, ok := f["competitionFactor"]; ok && v != "" {
		factors.CompetitionFactor = parseFloat(v)
	}
	return factors
}

// revolvingDetails ignores any client-posted "recuperable"; the amount is
// always recomputed with the configured estimator.
func (s *Service) revolvingDetails(f map[string]string) *domain.RevolvingDetails {
	_, wantsAdvisor := f["asesor"]
	d := &domain.RevolvingDetails{
		Entity:         f["entidad"],
		WantsAdvisor:   wantsAdvisor,
		Debt:           parseFloat(f["deuda"]),
		MonthlyPayment: parseFloat(f["cuota"]),
		APR:            parseFloat(f["tae"]),
		MonthsPaying:   parseInt(f["tiempo_pagando"]),
		HasInsurance:   parseFlag(f["tiene_seguro"]),
		HasArrears:     parseFlag(f["hay_impagos"]),
	}
	d.Recoverable = s.recovery.Estimate(financial.RecoveryInput{
		Debt:           d.Debt,
		MonthlyPayment: d.MonthlyPayment,
		APR:            d.APR,
		MonthsPaying:   d.MonthsPaying,
	})
	return d
}
