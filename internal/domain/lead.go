package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Funnel identifies which calculator produced a lead. Each funnel has its
// own table and field set.
type Funnel string

const (
	FunnelROI       Funnel = "roi"
	FunnelRevolving Funnel = "revolving"
)

// Valid reports whether f is a known funnel.
func (f Funnel) Valid() bool {
	return f == FunnelROI || f == FunnelRevolving
}

// Stage is the sales pipeline label. Only admin actions move it.
type Stage string

const (
	StageNew        Stage = "nuevo"
	StageContacted  Stage = "contactado"
	StageInProgress Stage = "en_proceso"
	StageWon        Stage = "ganado"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageNew, StageContacted, StageInProgress, StageWon:
		return true
	}
	return false
}

// Lead is one form submission with its computed outputs.
type Lead struct {
	ID              int64             `json:"id"`
	Token           string            `json:"-"`
	Funnel          Funnel            `json:"funnel"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	PrivacyAccepted bool              `json:"privacy_accepted"`
	NewsletterOptIn bool              `json:"newsletter_opt_in"`
	ROI             *ROIDetails       `json:"roi,omitempty"`
	Revolving       *RevolvingDetails `json:"revolving,omitempty"`
	Client          ClientInfo        `json:"client"`
	Stage           Stage             `json:"stage"`
	RelayStatus     RelayStatus       `json:"relay_status"`
	ClaimedAt       *time.Time        `json:"claimed_at,omitempty"`
	RelayedAt       *time.Time        `json:"relayed_at,omitempty"`
	RelayError      string            `json:"relay_error,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ROIDetails holds the marketing-spend funnel inputs and outputs.
type ROIDetails struct {
	ProductName        string  `json:"product_name"`
	ProductDescription string  `json:"product_description"`
	BusinessType       string  `json:"business_type"`
	Investment         float64 `json:"investment"` // ad spend
	CPC                float64 `json:"cpc"`
	Price              float64 `json:"price"`
	Cost               float64 `json:"cost"` // derived from price and margin
	ConversionRate     float64 `json:"conversion_rate"`
	MarginPercent      float64 `json:"margin_percent"`
	TargetRevenue      float64 `json:"target_revenue"`
	ManagementFee      float64 `json:"management_fee"`
	Strategy           string  `json:"strategy"`
	ROI                float64 `json:"roi"`
	NetProfit          float64 `json:"net_profit"`
	Visitors           float64 `json:"visitors"`
	Sales              float64 `json:"sales"`
}

// RevolvingDetails holds the debt-recovery funnel inputs and outputs.
type RevolvingDetails struct {
	Entity         string  `json:"entity"`
	WantsAdvisor   bool    `json:"wants_advisor"`
	Debt           float64 `json:"debt"`
	MonthlyPayment float64 `json:"monthly_payment"`
	APR            float64 `json:"apr"`
	MonthsPaying   int     `json:"months_paying"`
	Recoverable    float64 `json:"recoverable"`
	HasInsurance   bool    `json:"has_insurance"`
	HasArrears     bool    `json:"has_arrears"`
}

// ClientInfo is technical metadata captured with the submission. It is
// stored as-is and never validated.
type ClientInfo struct {
	IP               string `json:"ip"`
	UserAgent        string `json:"user_agent"`
	OS               string `json:"os"`
	Browser          string `json:"browser"`
	DeviceType       string `json:"device_type"`
	ScreenResolution string `json:"screen_resolution"`
	Language         string `json:"language"`
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
