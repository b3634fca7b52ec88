package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/kv"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Message
	}
	return out
}

type countingObserver struct {
	requests atomic.Int64
	notices  atomic.Int64
	expired  atomic.Int64
	reacted  atomic.Int64
}

func (c *countingObserver) RequestDone(error, time.Duration) { c.requests.Add(1) }
func (c *countingObserver) NoticeShown()                     { c.notices.Add(1) }
func (c *countingObserver) ExpiryDetected(reacted bool) {
	c.expired.Add(1)
	if reacted {
		c.reacted.Add(1)
	}
}

type testHarness struct {
	pipeline  *Pipeline
	tokens    *kv.Memory
	notifier  *recordingNotifier
	observer  *countingObserver
	reactions *atomic.Int64
}

func newTestPipeline(t *testing.T, handler http.Handler) *testHarness {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	h := &testHarness{
		tokens:    kv.NewMemory(),
		notifier:  &recordingNotifier{},
		observer:  &countingObserver{},
		reactions: &atomic.Int64{},
	}
	guard := NewExpiryGuard(time.Hour, func(ctx context.Context) {
		h.reactions.Add(1)
		_ = h.tokens.Remove(ctx, DefaultTokenKey)
	})

	p, err := New(Options{
		BaseURL:  srv.URL + "/api",
		Tokens:   h.tokens,
		Notifier: h.notifier,
		Guard:    guard,
		Observer: h.observer,
	})
	if err != nil {
		t.Fatalf("new pipeline failed: %v", err)
	}
	h.pipeline = p
	return h
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "/api", "://bad"} {
		if _, err := New(Options{BaseURL: raw}); !errors.Is(err, ErrInvalidBaseURL) {
			t.Fatalf("%q: expected ErrInvalidBaseURL, got %v", raw, err)
		}
	}
}

func TestDoAttachesStoredTokenPerCall(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		ids  []string
	)
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		ids = append(ids, r.Header.Get(DefaultRequestIDHeader))
		mu.Unlock()
		writeEnvelope(w, 200, Envelope{Code: 200, Data: json.RawMessage(`{}`)})
	}))
	ctx := context.Background()

	if _, err := h.pipeline.Do(ctx, http.MethodGet, "/auth/info", nil); err != nil {
		t.Fatalf("anonymous call failed: %v", err)
	}
	_ = h.tokens.Set(ctx, DefaultTokenKey, "tok-1")
	if _, err := h.pipeline.Do(ctx, http.MethodGet, "/auth/info", nil); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	_ = h.tokens.Set(ctx, DefaultTokenKey, "tok-2")
	if _, err := h.pipeline.Do(ctx, http.MethodGet, "/auth/info", nil); err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if seen[0] != "" || seen[1] != "tok-1" || seen[2] != "tok-2" {
		t.Fatalf("expected credential read fresh per call, got %q", seen)
	}
	if ids[0] == "" || ids[0] == ids[1] {
		t.Fatalf("expected distinct request ids, got %q", ids)
	}
}

func TestAugmentWithScheme(t *testing.T) {
	tokens := kv.NewMemory()
	_ = tokens.Set(context.Background(), "jwt", "abc")
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	err := Augment(context.Background(), req, tokens, AugmentOptions{TokenKey: "jwt", Header: "X-Auth", Scheme: "Bearer"})
	if err != nil {
		t.Fatalf("augment failed: %v", err)
	}
	if got := req.Header.Get("X-Auth"); got != "Bearer abc" {
		t.Fatalf("expected Bearer abc, got %q", got)
	}
}

type brokenTokens struct{}

func (brokenTokens) Get(context.Context, string) (string, bool, error) {
	return "", false, kv.ErrStoreUnavailable
}

func TestAugmentSendsWithoutCredentialOnReadError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	err := Augment(context.Background(), req, brokenTokens{}, AugmentOptions{})
	if !errors.Is(err, kv.ErrStoreUnavailable) {
		t.Fatalf("expected read error reported, got %v", err)
	}
	if req.Header.Get(DefaultCredentialHeader) != "" {
		t.Fatal("expected no credential header")
	}
	if req.Header.Get(DefaultRequestIDHeader) == "" {
		t.Fatal("expected request id even without credential")
	}
}

func TestDoIntoDecodesData(t *testing.T) {
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/api/auth/login" || r.Header.Get("Content-Type") != "application/json" {
			writeEnvelope(w, 200, Envelope{Code: 400, Message: "bad request"})
			return
		}
		writeEnvelope(w, 200, Envelope{Code: 200, Data: json.RawMessage(`"tok-` + body["username"] + `"`)})
	}))

	var token string
	err := h.pipeline.DoInto(context.Background(), http.MethodPost, "auth/login", map[string]string{"username": "123"}, &token)
	if err != nil {
		t.Fatalf("login call failed: %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("expected tok-123, got %q", token)
	}
	if h.observer.requests.Load() != 1 || h.observer.notices.Load() != 0 {
		t.Fatal("expected one successful request and no notice")
	}
}

func TestDoIntoUndecodableDataIsBusinessFailure(t *testing.T) {
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, Envelope{Code: 200, Data: json.RawMessage(`12345`)})
	}))

	var token string
	err := h.pipeline.DoInto(context.Background(), http.MethodPost, "/auth/login", nil, &token)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || !errors.Is(err, ErrBusiness) {
		t.Fatalf("expected a business RequestError, got %v", err)
	}
	if reqErr.Err == nil {
		t.Fatal("expected the decode error as cause")
	}
	if got := h.notifier.messages(); len(got) != 1 || got[0] != NoticeRequestFailed {
		t.Fatalf("expected exactly one generic notice, got %q", got)
	}
	if h.observer.requests.Load() != 1 || h.observer.notices.Load() != 1 {
		t.Fatalf("expected one request and one notice observed, got %d/%d", h.observer.requests.Load(), h.observer.notices.Load())
	}
	if h.reactions.Load() != 0 {
		t.Fatal("decode failure must not trigger the expiry reaction")
	}
}

func TestDoBusinessFailureShowsOneNotice(t *testing.T) {
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, Envelope{Code: 500, Message: "password incorrect"})
	}))

	_, err := h.pipeline.Do(context.Background(), http.MethodGet, "/auth/info", nil)
	if !errors.Is(err, ErrBusiness) {
		t.Fatalf("expected ErrBusiness, got %v", err)
	}
	if got := h.notifier.messages(); len(got) != 1 || got[0] != "password incorrect" {
		t.Fatalf("expected exactly one notice with the envelope message, got %q", got)
	}
	if h.reactions.Load() != 0 {
		t.Fatal("business failure must not trigger the expiry reaction")
	}
}

func TestDoConcurrentEnvelope401ReactsOnce(t *testing.T) {
	release := make(chan struct{})
	var arrived atomic.Int64
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived.Add(1)
		<-release
		writeEnvelope(w, 200, Envelope{Code: 401, Message: "expired"})
	}))
	_ = h.tokens.Set(context.Background(), DefaultTokenKey, "dead")

	const n = 16
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := h.pipeline.Do(context.Background(), http.MethodGet, "/auth/menu", nil)
			errs <- err
		}()
	}
	waitFor(t, func() bool { return arrived.Load() == n })
	close(release)

	for i := 0; i < n; i++ {
		if err := <-errs; !errors.Is(err, ErrAuth) {
			t.Fatalf("expected ErrAuth for every call, got %v", err)
		}
	}
	if h.reactions.Load() != 1 {
		t.Fatalf("expected exactly one expiry reaction, got %d", h.reactions.Load())
	}
	if h.observer.expired.Load() != n || h.observer.reacted.Load() != 1 {
		t.Fatalf("expected %d detections and 1 reaction, got %d/%d", n, h.observer.expired.Load(), h.observer.reacted.Load())
	}
	if len(h.notifier.messages()) != 0 {
		t.Fatalf("401 must not show notices, got %q", h.notifier.messages())
	}
}

func TestDoHTTP401ReactsWithoutNotice(t *testing.T) {
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, Envelope{Code: 401, Message: "token invalid"})
	}))

	_, err := h.pipeline.Do(context.Background(), http.MethodGet, "/auth/info", nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != ErrAuth || reqErr.Status != 401 {
		t.Fatalf("expected http 401 auth error, got %v", err)
	}
	if h.reactions.Load() != 1 || len(h.notifier.messages()) != 0 {
		t.Fatalf("expected one reaction and no notice, got %d/%q", h.reactions.Load(), h.notifier.messages())
	}
}

func TestDoHTTP401WithTruncatedBodyStillReacts(t *testing.T) {
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "512")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":4`))
	}))

	_, err := h.pipeline.Do(context.Background(), http.MethodGet, "/auth/info", nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != ErrAuth || reqErr.Status != 401 {
		t.Fatalf("expected http 401 auth error, got %v", err)
	}
	if h.reactions.Load() != 1 || len(h.notifier.messages()) != 0 {
		t.Fatalf("expected one reaction and no notice, got %d/%q", h.reactions.Load(), h.notifier.messages())
	}
}

func TestDoHTTP404(t *testing.T) {
	h := newTestPipeline(t, http.NotFoundHandler())

	_, err := h.pipeline.Do(context.Background(), http.MethodGet, "/missing", nil)
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
	if got := h.notifier.messages(); len(got) != 1 || got[0] != NoticeNotFound {
		t.Fatalf("expected not-found notice, got %q", got)
	}
	if h.reactions.Load() != 0 {
		t.Fatal("404 must not trigger the expiry reaction")
	}
}

func TestDoConnectionDropped(t *testing.T) {
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer does not support hijacking")
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))

	_, err := h.pipeline.Do(context.Background(), http.MethodGet, "/auth/info", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if got := h.notifier.messages(); len(got) != 1 || got[0] != NoticeNetwork {
		t.Fatalf("expected connectivity notice, got %q", got)
	}
	if h.reactions.Load() != 0 {
		t.Fatal("dropped connection must not trigger the expiry reaction")
	}
}

func TestDoRequestNeverSent(t *testing.T) {
	var hits atomic.Int64
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	_, err := h.pipeline.Do(context.Background(), "BAD METHOD", "/auth/info", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("request must not reach the server")
	}
	if got := h.notifier.messages(); len(got) != 1 || got[0] == "" {
		t.Fatalf("expected one notice carrying the construction error, got %q", got)
	}
}

func TestDoEmptyBodyIsNoResponse(t *testing.T) {
	h := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	_, err := h.pipeline.Do(context.Background(), http.MethodGet, "/auth/info", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if got := h.notifier.messages(); len(got) != 1 || got[0] != NoticeNoResponse {
		t.Fatalf("expected no-response notice, got %q", got)
	}
}

func TestTransportKeepsCallerRequestUntouched(t *testing.T) {
	tokens := kv.NewMemory()
	_ = tokens.Set(context.Background(), DefaultTokenKey, "tok")

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{Tokens: tokens}}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	if got != "tok" {
		t.Fatalf("expected server to see tok, got %q", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("transport must not mutate the caller's request")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
