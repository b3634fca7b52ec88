package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/session"
)

// Default endpoint paths, relative to the pipeline base URL.
const (
	DefaultLoginPath    = "/auth/login"
	DefaultUserInfoPath = "/auth/info"
	DefaultMenuPath     = "/auth/menu"
	DefaultLogoutPath   = "/auth/logout"
	DefaultPasswordPath = "/auth/password"
)

// ErrNoCaller is returned by New without a Caller.
var ErrNoCaller = errors.New("api caller not configured")

// Caller sends one classified call and decodes the envelope data into out.
// *pipeline.Pipeline satisfies it.
type Caller interface {
	DoInto(ctx context.Context, method, path string, body, out any) error
}

// Paths overrides endpoint paths. Empty fields use the defaults.
type Paths struct {
	Login    string `env:"LOGIN"`
	UserInfo string `env:"USER_INFO"`
	Menu     string `env:"MENU"`
	Logout   string `env:"LOGOUT"`
	Password string `env:"PASSWORD"`
}

// DefaultPaths returns the stock endpoint layout.
func DefaultPaths() Paths {
	return Paths{
		Login:    DefaultLoginPath,
		UserInfo: DefaultUserInfoPath,
		Menu:     DefaultMenuPath,
		Logout:   DefaultLogoutPath,
		Password: DefaultPasswordPath,
	}
}

func (p Paths) withDefaults() Paths {
	d := DefaultPaths()
	if p.Login == "" {
		p.Login = d.Login
	}
	if p.UserInfo == "" {
		p.UserInfo = d.UserInfo
	}
	if p.Menu == "" {
		p.Menu = d.Menu
	}
	if p.Logout == "" {
		p.Logout = d.Logout
	}
	if p.Password == "" {
		p.Password = d.Password
	}
	return p
}

// Client calls the authentication endpoints.
type Client struct {
	caller Caller
	paths  Paths
}

var _ session.Backend = (*Client)(nil)

// New returns a client sending through caller.
func New(caller Caller, paths Paths) (*Client, error) {
	if caller == nil {
		return nil, ErrNoCaller
	}
	return &Client{caller: caller, paths: paths.withDefaults()}, nil
}

// Paths returns the effective endpoint paths.
func (c *Client) Paths() Paths {
	return c.paths
}

// Login exchanges credentials for a token. The envelope data is the token
// string itself.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (string, error) {
	var token string
	if err := c.caller.DoInto(ctx, http.MethodPost, c.paths.Login, creds, &token); err != nil {
		return "", err
	}
	return token, nil
}

// UserInfo returns the profile of the authenticated user. A null profile is
// returned as an empty map.
func (c *Client) UserInfo(ctx context.Context) (map[string]any, error) {
	var profile map[string]any
	if err := c.caller.DoInto(ctx, http.MethodGet, c.paths.UserInfo, nil, &profile); err != nil {
		return nil, err
	}
	if profile == nil {
		profile = map[string]any{}
	}
	return profile, nil
}

// Menu returns the authorization menu. A null menu is returned as nil; the
// session store treats it as empty.
func (c *Client) Menu(ctx context.Context) ([]session.MenuNode, error) {
	var menu []session.MenuNode
	if err := c.caller.DoInto(ctx, http.MethodGet, c.paths.Menu, nil, &menu); err != nil {
		return nil, err
	}
	return menu, nil
}

// Logout tells the backend to end the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.caller.DoInto(ctx, http.MethodPost, c.paths.Logout, nil, nil)
}

// ChangePassword validates req locally and submits it.
func (c *Client) ChangePassword(ctx context.Context, req PasswordChange) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.caller.DoInto(ctx, http.MethodPut, c.paths.Password, req, nil)
}
