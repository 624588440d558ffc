package financial

import (
	"fmt"
	"math"
)

// Recovery estimator names.
const (
	RecoveryUsuryExcess       = "usury_excess"
	RecoveryPaidOverPrincipal = "paid_over_principal"
)

// RecoveryInput holds the revolving credit figures from the claims funnel.
type RecoveryInput struct {
	Debt           float64
	MonthlyPayment float64
	APR            float64 // TAE, percent
	MonthsPaying   int
}

// RecoveryEstimator maps credit figures to an estimated recoverable amount.
// Implementations never return a negative or non-finite value.
type RecoveryEstimator interface {
	Name() string
	Estimate(in RecoveryInput) float64
}

// NewRecoveryEstimator returns the named estimator.
func NewRecoveryEstimator(name string, legalRate float64) (RecoveryEstimator, error) {
	switch name {
	case RecoveryUsuryExcess, "":
		return UsuryExcess{LegalRate: legalRate}, nil
	case RecoveryPaidOverPrincipal:
		return PaidOverPrincipal{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// UsuryExcess treats the share of the APR above LegalRate as recoverable
// from everything paid so far.
type UsuryExcess struct {
	LegalRate float64
}

func (UsuryExcess) Name() string { return RecoveryUsuryExcess }

func (u UsuryExcess) Estimate(in RecoveryInput) float64 {
	paid := totalPaid(in)
	excess := safeDiv(in.APR-u.LegalRate, in.APR)
	if excess <= 0 {
		return 0
	}
	return clampRecoverable(paid*excess, paid)
}

// PaidOverPrincipal treats everything paid beyond the outstanding debt as
// recoverable, as when the contract is declared void.
type PaidOverPrincipal struct{}

func (PaidOverPrincipal) Name() string { return RecoveryPaidOverPrincipal }

func (PaidOverPrincipal) Estimate(in RecoveryInput) float64 {
	paid := totalPaid(in)
	return clampRecoverable(paid-in.Debt, paid)
}

func totalPaid(in RecoveryInput) float64 {
	if in.MonthlyPayment <= 0 || in.MonthsPaying <= 0 {
		return 0
	}
	return in.MonthlyPayment * float64(in.MonthsPaying)
}

func clampRecoverable(v, ceiling float64) float64 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	if v > ceiling {
		v = ceiling
	}
	return math.Round(v*100) / 100
}
