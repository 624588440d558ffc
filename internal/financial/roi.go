package financial

import (
	"fmt"
	"math"
)

// Strategy names accepted by ComputeROI.
const (
	StrategyPlain     = "plain"
	StrategyRealistic = "realistic"
)

// ROIInput holds the marketing-spend funnel inputs. Percentages are 0..100.
type ROIInput struct {
	AdSpend        float64
	CostPerClick   float64
	Price          float64
	MarginPercent  float64
	ConversionRate float64
	ManagementFee  float64
}

// Factors discount a projection for cold traffic.
type Factors struct {
	TrafficQuality    float64 // % of visitors that are real prospects
	WastedClicks      float64 // % of paid clicks that never land
	BounceRate        float64 // % of landed visitors that leave immediately
	CompetitionFactor float64 // multiplier on the bid price
}

// DefaultFactors returns the pessimistic defaults used when the form does
// not supply a factor.
func DefaultFactors() Factors {
	return Factors{
		TrafficQuality:    25,
		WastedClicks:      25,
		BounceRate:        60,
		CompetitionFactor: 1.3,
	}
}

// ROIResult is the projection derived from an ROIInput.
type ROIResult struct {
	Strategy            string  `json:"strategy"`
	MarginPerUnit       float64 `json:"margin_per_unit"`
	UnitCost            float64 `json:"unit_cost"`
	TotalInvestment     float64 `json:"total_investment"`
	EffectiveCPC        float64 `json:"effective_cpc"`
	EffectiveConversion float64 `json:"effective_conversion"`
	Visitors            float64 `json:"visitors"`
	Sales               float64 `json:"sales"`
	Profit              float64 `json:"profit"`
	ROI                 float64 `json:"roi"`
}

// ComputeROI runs the named strategy. Factors are ignored by the plain strategy.
func ComputeROI(strategy string, in ROIInput, f Factors) (ROIResult, error) {
	switch strategy {
	case StrategyPlain, "":
		return PlainROI(in), nil
	case StrategyRealistic:
		return RealisticROI(in, f)
	default:
		return ROIResult{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// PlainROI projects ROI straight from the advertised CPC and conversion rate.
func PlainROI(in ROIInput) ROIResult {
	r := project(in, in.CostPerClick, in.ConversionRate)
	r.Strategy = StrategyPlain
	return r
}

// RealisticROI inflates the CPC by competition and wasted clicks and deflates
// the conversion rate by traffic quality and bounce rate before projecting.
func RealisticROI(in ROIInput, f Factors) (ROIResult, error) {
	if f.WastedClicks >= 100 {
		return ROIResult{}, ErrWastedClicksOutOfRange
	}

	cpcReal := in.CostPerClick * f.CompetitionFactor * safeDiv(1, 1-f.WastedClicks/100)
	convEffective := in.ConversionRate * (f.TrafficQuality / 100) * (1 - f.BounceRate/100)
	if convEffective < 0 {
		convEffective = 0
	}

	r := project(in, cpcReal, convEffective)
	r.Strategy = StrategyRealistic
	return r, nil
}

func project(in ROIInput, cpc, conversion float64) ROIResult {
	marginPerUnit := in.Price * (in.MarginPercent / 100)
	totalInvestment := in.AdSpend + in.ManagementFee

	visitors := safeDiv(in.AdSpend, cpc)
	sales := visitors * conversion / 100
	profit := sales*marginPerUnit - totalInvestment

	return ROIResult{
		MarginPerUnit:       finite(marginPerUnit),
		UnitCost:            finite(in.Price - marginPerUnit),
		TotalInvestment:     finite(totalInvestment),
		EffectiveCPC:        finite(cpc),
		EffectiveConversion: finite(conversion),
		Visitors:            finite(visitors),
		Sales:               finite(sales),
		Profit:              finite(profit),
		ROI:                 finite(safeDiv(profit, totalInvestment) * 100),
	}
}

// safeDiv returns 0 for a non-positive denominator.
func safeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return finite(num / den)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
