package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/pipeline"
	"github.com/MrEthical07/goSession/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *kv.Memory) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := kv.NewMemory()
	p, err := pipeline.New(pipeline.Options{
		BaseURL:  srv.URL + "/api",
		Tokens:   tokens,
		Notifier: pipeline.NotifierFunc(func(context.Context, pipeline.Notice) {}),
	})
	if err != nil {
		t.Fatalf("new pipeline failed: %v", err)
	}
	c, err := New(p, Paths{})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return c, tokens
}

func envelope(w http.ResponseWriter, code int, data any) {
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(pipeline.Envelope{Code: code, Data: raw})
}

func TestNewRequiresCaller(t *testing.T) {
	if _, err := New(nil, Paths{}); !errors.Is(err, ErrNoCaller) {
		t.Fatalf("expected ErrNoCaller, got %v", err)
	}
}

func TestPathsDefaults(t *testing.T) {
	c, err := New(&pipeline.Pipeline{}, Paths{Menu: "/menus/tree"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	got := c.Paths()
	if got.Menu != "/menus/tree" || got.Login != DefaultLoginPath || got.Password != DefaultPasswordPath {
		t.Fatalf("unexpected paths: %+v", got)
	}
}

func TestLoginReturnsToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var creds session.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" || creds.Username != "alice" {
			envelope(w, 500, nil)
			return
		}
		envelope(w, 200, "tok-123")
	})

	token, err := c.Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("expected tok-123, got %q", token)
	}
}

func TestUserInfoSendsCredential(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "tok-1" {
			envelope(w, 401, nil)
			return
		}
		envelope(w, 200, map[string]any{"username": "alice", "role": 1})
	})
	_ = tokens.Set(context.Background(), pipeline.DefaultTokenKey, "tok-1")

	profile, err := c.UserInfo(context.Background())
	if err != nil {
		t.Fatalf("user info failed: %v", err)
	}
	if profile["username"] != "alice" {
		t.Fatalf("unexpected profile: %v", profile)
	}
}

func TestUserInfoNullIsEmptyProfile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		envelope(w, 200, nil)
	})

	profile, err := c.UserInfo(context.Background())
	if err != nil {
		t.Fatalf("user info failed: %v", err)
	}
	if profile == nil || len(profile) != 0 {
		t.Fatalf("expected empty non-nil profile, got %v", profile)
	}
}

func TestMenuDecodesTree(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		envelope(w, 200, []session.MenuNode{{
			ID:   1,
			Name: "System",
			Path: "/system",
			Children: []session.MenuNode{
				{ID: 2, ParentID: 1, Name: "Users", Path: "/system/users"},
			},
		}})
	})

	menu, err := c.Menu(context.Background())
	if err != nil {
		t.Fatalf("menu failed: %v", err)
	}
	if len(menu) != 1 || len(menu[0].Children) != 1 || menu[0].Children[0].ParentID != 1 {
		t.Fatalf("unexpected menu: %+v", menu)
	}
}

func TestMenuPropagatesAuthFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		envelope(w, 401, nil)
	})

	if _, err := c.Menu(context.Background()); !errors.Is(err, pipeline.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestLogoutPostsToLogoutPath(t *testing.T) {
	var path, method string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		envelope(w, 200, nil)
	})

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if path != "/api/auth/logout" || method != http.MethodPost {
		t.Fatalf("unexpected request %s %s", method, path)
	}
}

func TestChangePasswordValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req PasswordChange
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.Method != http.MethodPut || req.NewPassword != "Str0ng!Pass" {
			envelope(w, 500, nil)
			return
		}
		envelope(w, 200, nil)
	})
	ctx := context.Background()

	err := c.ChangePassword(ctx, PasswordChange{OldPassword: "old", NewPassword: "weak", ConfirmPassword: "weak"})
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("invalid form must not reach the server")
	}

	err = c.ChangePassword(ctx, PasswordChange{OldPassword: "old", NewPassword: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass"})
	if err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	tests := []struct {
		pw string
		ok bool
	}{
		{"Str0ng!Pass", true},
		{"Aa1@aaaa", true},
		{"Aa1@aaaaaaaaaaaaaaaa", true},
		{"Aa1@aaa", false},
		{"Aa1@aaaaaaaaaaaaaaaaa", false},
		{"str0ng!pass", false},
		{"STR0NG!PASS", false},
		{"Strong!Pass", false},
		{"Str0ngPass1", false},
		{"Str0ng Pass!", false},
		{"Str0ng#Pass!", false},
	}
	for _, tt := range tests {
		err := CheckPasswordPolicy(tt.pw)
		if tt.ok && err != nil {
			t.Errorf("%q: expected valid, got %v", tt.pw, err)
		}
		if !tt.ok && !errors.Is(err, ErrPasswordPolicy) {
			t.Errorf("%q: expected ErrPasswordPolicy, got %v", tt.pw, err)
		}
	}
}

func TestPasswordChangeValidate(t *testing.T) {
	tests := []struct {
		name string
		req  PasswordChange
		want error
	}{
		{"ok", PasswordChange{"old", "Str0ng!Pass", "Str0ng!Pass"}, nil},
		{"blank old", PasswordChange{" ", "Str0ng!Pass", "Str0ng!Pass"}, ErrPasswordRequired},
		{"mismatch", PasswordChange{"old", "Str0ng!Pass", "Str0ng!Pas5"}, ErrPasswordMismatch},
		{"policy", PasswordChange{"old", "short", "short"}, ErrPasswordPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
