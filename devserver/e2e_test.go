package devserver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/devserver"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/pipeline"
	"github.com/MrEthical07/goSession/routes"
	"github.com/MrEthical07/goSession/session"
)

func TestClientAgainstDevServer(t *testing.T) {
	for _, mode := range []devserver.RejectMode{devserver.RejectEnvelope, devserver.RejectStatus} {
		srv, err := devserver.New(devserver.Config{
			TokenKey: []byte("0123456789abcdef0123456789abcdef"),
			Reject:   mode,
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		}, devserver.User{
			Username: "alice",
			Password: "Secret#123",
			Menu: []session.MenuNode{
				{Name: "System", Path: "/system", Children: []session.MenuNode{
					{Name: "Users", Path: "users"},
				}},
			},
		})
		if err != nil {
			t.Fatalf("devserver.New: %v", err)
		}
		ts := httptest.NewServer(srv)
		defer ts.Close()

		cfg := goSession.DefaultConfig()
		cfg.Pipeline.BaseURL = ts.URL + "/api"
		cfg.Guard.ResetDelay = time.Hour
		history := routes.NewHistory("/")

		client, err := goSession.New().
			WithConfig(cfg).
			WithStore(kv.NewMemory()).
			WithNavigator(history).
			WithNotifier(pipeline.NotifierFunc(func(context.Context, pipeline.Notice) {})).
			Build(context.Background())
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		defer client.Close()

		ctx := context.Background()
		if err := client.SignIn(ctx, session.Credentials{Username: "alice", Password: "Secret#123"}); err != nil {
			t.Fatalf("SignIn: %v", err)
		}
		s := client.Session()
		if !s.LoggedIn() || !s.MenuLoaded || s.Profile["username"] != "alice" {
			t.Fatalf("unexpected session %+v", s)
		}
		if !client.Routes().HasRoute("Users") {
			t.Fatal("menu routes not registered")
		}

		err = client.ChangePassword(ctx, api.PasswordChange{
			OldPassword: "Secret#123", NewPassword: "Better#456", ConfirmPassword: "Better#456",
		})
		if err != nil {
			t.Fatalf("ChangePassword: %v", err)
		}

		srv.RevokeAll()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := client.Do(ctx, http.MethodGet, "/auth/info", nil)
				if !errors.Is(err, goSession.ErrAuth) {
					t.Errorf("expected ErrAuth, got %v", err)
				}
			}()
		}
		wg.Wait()

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := history.WaitFor(waitCtx, "/login"); err != nil {
			t.Fatalf("no navigation to /login: %v", err)
		}
		cancel()

		if n := history.Count("/login"); n != 1 {
			t.Fatalf("mode %d: expected one navigation, got %d", mode, n)
		}
		if client.Session().LoggedIn() {
			t.Fatal("session must be cleared after expiry")
		}
		if got := client.MetricsSnapshot().Counters[goSession.MetricSessionExpired]; got != 1 {
			t.Fatalf("expected one expiry reaction, got %d", got)
		}
	}
}
