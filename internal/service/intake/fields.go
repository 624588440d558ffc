package intake

import "github.com/ignite/leadfunnel/internal/domain"

// HoneypotField is hidden from humans on every funnel form.
const HoneypotField = "website"

// FieldSet names the form keys that carry the common lead fields.
type FieldSet struct {
	Funnel      domain.Funnel
	Name        string
	Email       string
	Phone       string
	Required    string // funnel-specific mandatory field
	RequiredMsg string
	Consent     string
	OptIn       string // optional, empty when the funnel has none
}

var (
	ROIFields = FieldSet{
		Funnel:      domain.FunnelROI,
		Name:        "leadName",
		Email:       "leadEmail",
		Phone:       "leadPhone",
		Required:    "prodName",
		RequiredMsg: "El nombre del producto es obligatorio",
		Consent:     "privacyAccepted",
		OptIn:       "newsletterOptIn",
	}

	RevolvingFields = FieldSet{
		Funnel:      domain.FunnelRevolving,
		Name:        "nombre",
		Email:       "email",
		Phone:       "telefono",
		Required:    "entidad",
		RequiredMsg: "La entidad financiera es obligatoria",
		Consent:     "privacidad",
	}
)

// FieldsFor returns the field set of a funnel.
func FieldsFor(f domain.Funnel) (FieldSet, bool) {
	switch f {
	case domain.FunnelROI:
		return ROIFields, true
	case domain.FunnelRevolving:
		return RevolvingFields, true
	}
	return FieldSet{}, false
}
