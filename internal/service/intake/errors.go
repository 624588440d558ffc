package intake

import (
	"errors"
	"strings"
)

// Sentinel errors for the intake service layer.
var (
	ErrBotSuspected  = errors.New("honeypot field filled")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrStorage       = errors.New("lead storage failed")
	ErrUnknownFunnel = errors.New("unknown funnel")
)

// Public messages shown to the visitor. Internal causes are logged, never echoed.
const (
	MsgSuccess          = "Solicitud registrada correctamente"
	MsgBotSuspected     = "Solicitud no válida"
	MsgRateLimited      = "Has enviado demasiadas solicitudes. Por favor, espera unos minutos e inténtalo de nuevo."
	MsgStorage          = "Error al procesar la solicitud"
	MsgMethodNotAllowed = "Método no permitido"
)

// ValidationError carries every failed rule, in rule order.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ". ")
}

// PublicMessage maps a Submit error to the message returned to the visitor.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return MsgSuccess
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrBotSuspected):
		return MsgBotSuspected
	case errors.Is(err, ErrRateLimited):
		return MsgRateLimited
	default:
		return MsgStorage
	}
}
