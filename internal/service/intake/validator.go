package intake

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/financial"
)

var (
	phoneStrip   = regexp.MustCompile(`[^\d+]`)
	phonePattern = regexp.MustCompile(`^(\+34)?[6-9]\d{8}$`)
)

// Submission is a sanitized, validated form.
type Submission struct {
	Funnel          domain.Funnel
	Name            string
	Email           string
	Phone           string
	PrivacyAccepted bool
	NewsletterOptIn bool
	Fields          map[string]string // every sanitized value, honeypot removed
}

// factorRule bounds an optional realism factor of the roi funnel.
type factorRule struct {
	field string
	tag   string
	msg   string
}

var factorRules = []factorRule{
	{"trafficQuality", "gte=0,lte=100", "La calidad del tráfico debe estar entre 0 y 100"},
	{"wastedClicks", "gte=0,lt=100", "Los clics desperdiciados deben ser menores que 100"},
	{"bounceRate", "gte=0,lte=100", "La tasa de rebote debe estar entre 0 y 100"},
	{"competitionFactor", "gt=0", "El factor de competencia debe ser mayor que 0"},
}

// Validator applies the shared submission rules. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
	// range-check the realism factors; only the realistic roi strategy reads them
	checkFactors bool
}

// NewValidator creates a Validator for the given roi strategy.
func NewValidator(roiStrategy string) *Validator {
	return &Validator{
		v:            validator.New(),
		checkFactors: roiStrategy == financial.StrategyRealistic,
	}
}

// Validate sanitizes the form and checks it against the funnel's field set.
// The honeypot is checked before anything else. All other rules run and
// their messages accumulate in a *ValidationError.
func (val *Validator) Validate(form map[string]string, fs FieldSet) (*Submission, error) {
	if form[HoneypotField] != "" {
		return nil, ErrBotSuspected
	}

	clean := SanitizeForm(form)
	delete(clean, HoneypotField)

	name := clean[fs.Name]
	phone := clean[fs.Phone]
	email := clean[fs.Email]

	var msgs []string

	if name == "" {
		msgs = append(msgs, "El nombre es obligatorio")
	}

	if phone == "" {
		msgs = append(msgs, "El teléfono es obligatorio")
	} else if !ValidPhone(phone) {
		msgs = append(msgs, "El teléfono no tiene un formato válido")
	}

	if email == "" {
		msgs = append(msgs, "El email es obligatorio")
	} else if val.v.Var(email, "email") != nil {
		msgs = append(msgs, "El email no tiene un formato válido")
	}

	if clean[fs.Required] == "" {
		msgs = append(msgs, fs.RequiredMsg)
	}

	if clean[fs.Consent] == "" {
		msgs = append(msgs, "Debes aceptar la política de privacidad")
	}

	if fs.Funnel == domain.FunnelROI && val.checkFactors {
		msgs = append(msgs, val.factorMessages(clean)...)
	}

	if len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	sub := &Submission{
		Funnel:          fs.Funnel,
		Name:            name,
		Email:           email,
		Phone:           phone,
		PrivacyAccepted: true,
		Fields:          clean,
	}
	if fs.OptIn != "" {
		_, sub.NewsletterOptIn = clean[fs.OptIn]
	}
	return sub, nil
}

func (val *Validator) factorMessages(clean map[string]string) []string {
	var msgs []string
	for _, r := range factorRules {
		raw, ok := clean[r.field]
		if !ok || raw == "" {
			continue
		}
		if val.v.Var(parseFloat(raw), r.tag) != nil {
			msgs = append(msgs, r.msg)
		}
	}
	return msgs
}

// ValidPhone reports whether v is a Spanish mobile or landline number,
// optionally prefixed with +34. Spaces and punctuation are ignored.
func ValidPhone(v string) bool {
	return phonePattern.MatchString(phoneStrip.ReplaceAllString(v, ""))
}
