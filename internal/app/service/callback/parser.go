package callback

import (
	"errors"
	"net/http"

	"github.com/tierbill/tierbill/internal/platform/provider"
)

var (
	// ErrBadSignature marks a webhook whose signature check failed. The
	// payload is still logged but never applied.
	ErrBadSignature = errors.New("webhook signature verification failed")
	// ErrIgnoredEvent marks event types this service does not act on.
	ErrIgnoredEvent = errors.New("webhook event ignored")
)

// Parsed is the outcome of authenticating and decoding one webhook body.
type Parsed struct {
	Confirmation *provider.Confirmation
	// Reference is the provider-side verify handle, when the provider has
	// one.
	Reference string
}

// Parser authenticates a raw webhook and normalizes it into a confirmation.
// Each provider ships its own signature scheme, so each gets its own parser.
type Parser interface {
	Parse(header http.Header, body []byte) (*Parsed, error)
}
