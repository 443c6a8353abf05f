package plans

import (
	"errors"

	"github.com/mihaigidu/FitGenius/internal/ai"
	"github.com/mihaigidu/FitGenius/internal/plan"
)

const (
	msgConnection = "Error de conexión con el servicio de IA. Comprueba tu conexión a internet y vuelve a intentarlo; si el problema continúa, el servicio puede estar saturado."
	msgTimeout    = "El servicio de IA tardó demasiado en responder. Vuelve a intentarlo en unos minutos o revisa tu conexión."
	msgEmpty      = "no response generated"
	msgParse      = "No se pudo interpretar el plan. Vuelve a generarlo."
	msgUnknown    = "Error inesperado al generar el plan. Vuelve a intentarlo."
)

// describeFailure maps a generation error onto the message shown to the user.
// Raw parser output never becomes the message.
func describeFailure(err error) *Failure {
	f := &Failure{Retryable: true}

	if plan.IsParseError(err) {
		f.Kind, f.Code, f.Message = "parse", "parse_error", msgParse
		return f
	}

	switch ai.Classify(err) {
	case ai.KindNetwork:
		f.Kind, f.Code, f.Message = string(ai.KindNetwork), "connection_error", msgConnection
		var te *ai.TransportError
		if errors.As(err, &te) && te.Timeout() {
			f.Message = msgTimeout
		}
	case ai.KindUpstream:
		f.Kind, f.Code = string(ai.KindUpstream), "upstream_error"
		var ue *ai.UpstreamError
		if errors.As(err, &ue) {
			f.Message = ue.Error()
		} else {
			f.Message = "Respuesta no válida del servicio de IA."
		}
	case ai.KindEmpty:
		f.Kind, f.Code, f.Message = string(ai.KindEmpty), "empty_response", msgEmpty
	default:
		f.Kind, f.Code, f.Message = string(ai.KindUnknown), "generation_error", msgUnknown
	}
	return f
}
