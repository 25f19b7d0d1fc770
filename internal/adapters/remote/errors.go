package remote

import "errors"

// Sentinel kinds for remote call failures. Every failed Result wraps one.
var (
	ErrGuardViolation    = errors.New("no identity")
	ErrTransport         = errors.New("transport failure")
	ErrService           = errors.New("service failure")
	ErrMalformedResponse = errors.New("malformed response")
)

// ErrResponseTooLarge is the cause of a malformed result whose body exceeded
// MaxResponseBytes.
var ErrResponseTooLarge = errors.New("response too large")

// Kind classifies a Result.
type Kind int

const (
	KindNone Kind = iota
	KindGuardViolation
	KindTransportFailure
	KindServiceFailure
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindGuardViolation:
		return "guard"
	case KindTransportFailure:
		return "transport"
	case KindServiceFailure:
		return "service"
	case KindMalformedResponse:
		return "malformed"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindGuardViolation:
		return ErrGuardViolation
	case KindTransportFailure:
		return ErrTransport
	case KindServiceFailure:
		return ErrService
	case KindMalformedResponse:
		return ErrMalformedResponse
	default:
		return nil
	}
}

// KindOf maps an error back to its Kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrGuardViolation):
		return KindGuardViolation
	case errors.Is(err, ErrTransport):
		return KindTransportFailure
	case errors.Is(err, ErrService):
		return KindServiceFailure
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindTransportFailure
	}
}
