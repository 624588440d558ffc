package financial

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainROI_BreakEven(t *testing.T) {
	r := PlainROI(ROIInput{
		AdSpend:        1000,
		CostPerClick:   2,
		Price:          100,
		MarginPercent:  40,
		ConversionRate: 5,
		ManagementFee:  0,
	})

	assert.Equal(t, 500.0, r.Visitors)
	assert.Equal(t, 25.0, r.Sales)
	assert.Equal(t, 40.0, r.MarginPerUnit)
	assert.Equal(t, 60.0, r.UnitCost)
	assert.Equal(t, 0.0, r.Profit)
	assert.Equal(t, 0.0, r.ROI)
	assert.Equal(t, StrategyPlain, r.Strategy)
}

func TestPlainROI_ManagementFeeCountsAsInvestment(t *testing.T) {
	r := PlainROI(ROIInput{AdSpend: 1000, CostPerClick: 1, Price: 50, MarginPercent: 50, ConversionRate: 10, ManagementFee: 500})

	// 1000 visitors, 100 sales, 25 margin each = 2500 - 1500 invested.
	assert.Equal(t, 1500.0, r.TotalInvestment)
	assert.Equal(t, 1000.0, r.Profit)
	assert.InDelta(t, 66.6667, r.ROI, 0.001)
}

func TestPlainROI_DegenerateDenominators(t *testing.T) {
	tests := []struct {
		name string
		in   ROIInput
	}{
		{"zero investment", ROIInput{AdSpend: 0, ManagementFee: 0, CostPerClick: 2, Price: 10, MarginPercent: 10, ConversionRate: 5}},
		{"zero cpc", ROIInput{AdSpend: 100, CostPerClick: 0, Price: 10, MarginPercent: 10, ConversionRate: 5}},
		{"negative cpc", ROIInput{AdSpend: 100, CostPerClick: -1, Price: 10, MarginPercent: 10, ConversionRate: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PlainROI(tt.in)
			assert.False(t, math.IsNaN(r.ROI))
			assert.False(t, math.IsInf(r.ROI, 0))
			assert.Equal(t, 0.0, r.Visitors)
		})
	}

	r := PlainROI(ROIInput{})
	assert.Equal(t, 0.0, r.ROI)
}

func TestRealisticROI_AppliesFactors(t *testing.T) {
	in := ROIInput{AdSpend: 1000, CostPerClick: 1, Price: 100, MarginPercent: 50, ConversionRate: 10}

	r, err := RealisticROI(in, DefaultFactors())
	require.NoError(t, err)

	// cpc 1 * 1.3 / 0.75, conversion 10 * 0.25 * 0.4
	assert.InDelta(t, 1.73333, r.EffectiveCPC, 0.0001)
	assert.InDelta(t, 1.0, r.EffectiveConversion, 0.0001)
	assert.InDelta(t, 576.923, r.Visitors, 0.001)
	assert.InDelta(t, 5.76923, r.Sales, 0.0001)
	assert.Equal(t, StrategyRealistic, r.Strategy)

	plain := PlainROI(in)
	assert.Less(t, r.ROI, plain.ROI)
}

func TestRealisticROI_WastedClicksAtHundredIsDomainError(t *testing.T) {
	f := DefaultFactors()
	f.WastedClicks = 100

	_, err := RealisticROI(ROIInput{AdSpend: 100, CostPerClick: 1}, f)
	assert.True(t, errors.Is(err, ErrWastedClicksOutOfRange))
}

func TestRealisticROI_ZeroConversionYieldsNoSales(t *testing.T) {
	f := DefaultFactors()
	f.BounceRate = 100

	r, err := RealisticROI(ROIInput{AdSpend: 100, CostPerClick: 1, Price: 10, MarginPercent: 10, ConversionRate: 5}, f)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Sales)
	assert.Equal(t, -100.0, r.ROI)
}

func TestComputeROI_SelectsStrategy(t *testing.T) {
	in := ROIInput{AdSpend: 1000, CostPerClick: 2, Price: 100, MarginPercent: 40, ConversionRate: 5}

	r, err := ComputeROI(StrategyPlain, in, Factors{})
	require.NoError(t, err)
	assert.Equal(t, StrategyPlain, r.Strategy)

	r, err = ComputeROI(StrategyRealistic, in, DefaultFactors())
	require.NoError(t, err)
	assert.Equal(t, StrategyRealistic, r.Strategy)

	_, err = ComputeROI("optimistic", in, Factors{})
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}
