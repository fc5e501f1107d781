package sources

import (
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

// ErrorKind classifies a failed resolution.
type ErrorKind int

const (
	KindNoMatch ErrorKind = iota + 1
	KindNetwork
	KindUpstreamRejected
	KindPayloadNotFound
	KindMalformedPayload
	KindInvalidQuery
)

// Sentinels for errors.Is. ErrPayloadNotFound and ErrMalformedPayload both match ErrParse.
var (
	ErrNoMatch          = errors.New("no match")
	ErrNetwork          = errors.New("network error")
	ErrUpstreamRejected = errors.New("upstream rejected")
	ErrParse            = errors.New("parse error")
	ErrPayloadNotFound  = fmt.Errorf("%w: payload not found", ErrParse)
	ErrMalformedPayload = fmt.Errorf("%w: malformed payload", ErrParse)
	ErrInvalidQuery     = errors.New("invalid query")
)

// Code returns the wire name of the kind.
func (k ErrorKind) Code() string {
	switch k {
	case KindNoMatch:
		return engine.OutcomeNoMatch
	case KindNetwork:
		return engine.OutcomeNetworkError
	case KindUpstreamRejected:
		return engine.OutcomeUpstreamRejected
	case KindPayloadNotFound:
		return engine.OutcomePayloadNotFound
	case KindMalformedPayload:
		return engine.OutcomeMalformedPayload
	case KindInvalidQuery:
		return "InvalidQuery"
	}
	return "Unknown"
}

// Retryable reports whether trying again later may succeed without a code change.
func (k ErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindUpstreamRejected
}

// Drift reports whether the failure points at changed upstream markup.
func (k ErrorKind) Drift() bool {
	return k == KindPayloadNotFound || k == KindMalformedPayload
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNoMatch:
		return ErrNoMatch
	case KindNetwork:
		return ErrNetwork
	case KindUpstreamRejected:
		return ErrUpstreamRejected
	case KindPayloadNotFound:
		return ErrPayloadNotFound
	case KindMalformedPayload:
		return ErrMalformedPayload
	case KindInvalidQuery:
		return ErrInvalidQuery
	}
	return nil
}

// ResolveError is the only error type a Resolver returns.
type ResolveError struct {
	Kind    ErrorKind
	Message string // human-readable; for the delegated variant, the backend's message
	Remote  bool   // Message came from the scraping backend and is meant for users
	Timeout bool   // KindNetwork only: the call hit its deadline
	Err     error  // underlying cause, may be nil
}

func (e *ResolveError) Error() string {
	msg := "youtube resolve: " + e.Kind.Code()
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolveError) Unwrap() error { return e.Err }

func (e *ResolveError) Is(target error) bool {
	if target == ErrParse {
		return e.Kind.Drift()
	}
	return target == e.Kind.sentinel()
}

func newError(kind ErrorKind, msg string, err error) *ResolveError {
	return &ResolveError{Kind: kind, Message: msg, Err: err}
}

// AsResolveError unwraps err into a *ResolveError.
func AsResolveError(err error) (*ResolveError, bool) {
	var re *ResolveError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// OutcomeOf maps a Resolve result to its outcome code.
func OutcomeOf(err error) string {
	if err == nil {
		return engine.OutcomeMatch
	}
	if re, ok := AsResolveError(err); ok {
		return re.Kind.Code()
	}
	return engine.OutcomeNetworkError
}
