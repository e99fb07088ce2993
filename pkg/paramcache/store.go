package paramcache

import (
	"context"
	"errors"
)

// MaxParametersPerRequest is the largest batch a single GetParameters call may
// carry. This mirrors the remote store's per-call limit and is a protocol
// constant, not a tuning knob.
const MaxParametersPerRequest = 10

// ErrUnknownAlias is returned when a caller asks for an alias that was not in
// the mapping supplied at construction.
var ErrUnknownAlias = errors.New("paramcache: alias not configured")

// BatchRequest is one network call's worth of parameter names.
type BatchRequest struct {
	// Names holds at most MaxParametersPerRequest remote paths.
	Names []string
	// WithDecryption asks the store to decrypt secret-typed values.
	WithDecryption bool
}

// Parameter is a single resolved value as returned by the remote store.
type Parameter struct {
	Name  string
	Value string
	Type  string
}

// BatchResponse holds the resolved parameters for one batch. Names that the
// store could not resolve are simply absent; their absence is not an error.
type BatchResponse struct {
	Parameters []Parameter
}

// ParameterStore is the remote collaborator a ParameterCache pulls from.
// Implementations are expected to make exactly one remote call per
// GetParameters invocation and to surface transport failures unmodified.
type ParameterStore interface {
	GetParameters(ctx context.Context, req BatchRequest) (BatchResponse, error)
}

// Value is a parameter value that may be absent, either because no load has
// completed yet or because the remote store never returned the path.
type Value struct {
	raw     string
	present bool
}

// PresentValue builds a present Value. Store implementations use it when
// assembling a BatchResponse is not enough, e.g. in tests.
func PresentValue(s string) Value {
	return Value{raw: s, present: true}
}

// Get returns the underlying string and whether it is present.
func (v Value) Get() (string, bool) {
	return v.raw, v.present
}

// Present reports whether the remote store ever resolved this parameter.
func (v Value) Present() bool {
	return v.present
}

// StringOr returns the value, or def when absent.
func (v Value) StringOr(def string) string {
	if !v.present {
		return def
	}
	return v.raw
}
