package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// Header defaults.
const (
	DefaultTokenKey         = "token"
	DefaultCredentialHeader = "Authorization"
	DefaultRequestIDHeader  = "X-Request-ID"
)

// TokenSource is the read side of the durable store. kv.Store satisfies it.
type TokenSource interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// AugmentOptions controls how the credential is attached.
type AugmentOptions struct {
	TokenKey string
	Header   string
	// Scheme, when set, is prepended to the token ("Bearer"). Empty sends the
	// raw token.
	Scheme          string
	RequestIDHeader string
}

func (o AugmentOptions) withDefaults() AugmentOptions {
	if o.TokenKey == "" {
		o.TokenKey = DefaultTokenKey
	}
	if o.Header == "" {
		o.Header = DefaultCredentialHeader
	}
	if o.RequestIDHeader == "" {
		o.RequestIDHeader = DefaultRequestIDHeader
	}
	return o
}

// Augment reads the token from tokens and attaches it to req. An empty or
// missing token leaves the credential header unset. A read error also sends
// the request without a credential; the error is returned for logging only.
func Augment(ctx context.Context, req *http.Request, tokens TokenSource, opts AugmentOptions) error {
	opts = opts.withDefaults()

	if req.Header.Get(opts.RequestIDHeader) == "" {
		req.Header.Set(opts.RequestIDHeader, uuid.NewString())
	}
	if tokens == nil {
		return nil
	}

	token, _, err := tokens.Get(ctx, opts.TokenKey)
	if err != nil {
		return errors.Join(errTokenRead, err)
	}
	if token == "" {
		return nil
	}
	if opts.Scheme != "" {
		token = opts.Scheme + " " + token
	}
	req.Header.Set(opts.Header, token)
	return nil
}

var errTokenRead = errors.New("read token")

// Transport is an http.RoundTripper that augments every request before
// handing it to Base. It lets callers keep their own http.Client.
type Transport struct {
	Base    http.RoundTripper
	Tokens  TokenSource
	Options AugmentOptions
	// OnTokenError is called when the token cannot be read.
	OnTokenError func(error)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	out := req.Clone(req.Context())
	if err := Augment(req.Context(), out, t.Tokens, t.Options); err != nil && t.OnTokenError != nil {
		t.OnTokenError(err)
	}
	return base.RoundTrip(out)
}
