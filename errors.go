package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/pipeline"
	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrClientNotReady is returned by methods called on a nil or closed Client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidCredentials is returned when the login form is incomplete.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// Request pipeline failure kinds. Match with errors.Is.
var (
	ErrTransport = pipeline.ErrTransport
	ErrAuth      = pipeline.ErrAuth
	ErrBusiness  = pipeline.ErrBusiness
	ErrServer    = pipeline.ErrServer
)

// Session store and storage errors.
var (
	ErrLoggedOut        = session.ErrLoggedOut
	ErrMenuSuperseded   = session.ErrMenuSuperseded
	ErrEmptyToken       = session.ErrEmptyToken
	ErrStoreUnavailable = kv.ErrStoreUnavailable
	ErrPasswordPolicy   = api.ErrPasswordPolicy
	ErrPasswordMismatch = api.ErrPasswordMismatch
	ErrPasswordRequired = api.ErrPasswordRequired
)
