package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTimeout bounds one call when no http.Client is supplied.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 8 << 20
	tracerName       = "github.com/MrEthical07/goSession/pipeline"
)

// Observer receives one callback per call outcome. Implementations must be
// safe for concurrent use.
type Observer interface {
	// RequestDone reports the failure kind (nil on success) and latency.
	RequestDone(kind error, d time.Duration)
	NoticeShown()
	// ExpiryDetected reports a 401 and whether this call ran the reaction.
	ExpiryDetected(reacted bool)
}

type nopObserver struct{}

func (nopObserver) RequestDone(error, time.Duration) {}
func (nopObserver) NoticeShown()                     {}
func (nopObserver) ExpiryDetected(bool)              {}

// Options configures a [Pipeline].
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration

	Tokens  TokenSource
	Augment AugmentOptions

	Notifier Notifier
	Guard    *ExpiryGuard
	Observer Observer
	Logger   *slog.Logger

	// TracerProvider defaults to the global otel provider.
	TracerProvider trace.TracerProvider
}

// Pipeline sends API calls and classifies their responses.
type Pipeline struct {
	baseURL  string
	client   *http.Client
	notifier Notifier
	guard    *ExpiryGuard
	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New builds a pipeline. The supplied http.Client is copied and its transport
// wrapped with a credential-attaching [Transport].
func New(opts Options) (*Pipeline, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, opts.BaseURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pipeline")

	var client http.Client
	if opts.HTTPClient != nil {
		client = *opts.HTTPClient
	} else {
		client.Timeout = opts.Timeout
		if client.Timeout <= 0 {
			client.Timeout = DefaultTimeout
		}
	}
	client.Transport = &Transport{
		Base:    client.Transport,
		Tokens:  opts.Tokens,
		Options: opts.Augment,
		OnTokenError: func(err error) {
			logger.Warn("sending without credential", "error", err)
		},
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Pipeline{
		baseURL:  strings.TrimRight(base.String(), "/"),
		client:   &client,
		notifier: notifier,
		guard:    opts.Guard,
		observer: observer,
		logger:   logger,
		tracer:   tp.Tracer(tracerName),
	}, nil
}

// Guard returns the expiry guard the pipeline triggers.
func (p *Pipeline) Guard() *ExpiryGuard {
	return p.guard
}

// Do sends one call and returns the envelope's data on success. On failure
// the returned error is a *RequestError, after the notice and the expiry
// reaction (if any) have run.
func (p *Pipeline) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	return p.do(ctx, method, path, body, nil)
}

// DoInto is Do followed by decoding data into out. A nil out discards data.
// Data that does not decode into out is a business failure with the generic
// notice.
func (p *Pipeline) DoInto(ctx context.Context, method, path string, body, out any) error {
	_, err := p.do(ctx, method, path, body, out)
	return err
}

func (p *Pipeline) do(ctx context.Context, method, path string, body, into any) (json.RawMessage, error) {
	ctx, span := p.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	out := p.roundTrip(ctx, method, path, body)
	if out.Err == nil && into != nil && len(out.Data) > 0 {
		if err := json.Unmarshal(out.Data, into); err != nil {
			err = fmt.Errorf("decode %s %s data: %w", method, path, err)
			out = failed(&RequestError{Kind: ErrBusiness, Message: NoticeRequestFailed, Err: err}, NoticeRequestFailed)
		}
	}
	p.apply(ctx, method, path, out)
	p.observer.RequestDone(out.Kind(), time.Since(start))

	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Kind.Error())
		return nil, out.Err
	}
	span.SetStatus(codes.Ok, "")
	return out.Data, nil
}

func (p *Pipeline) roundTrip(ctx context.Context, method, path string, body any) Outcome {
	req, err := p.newRequest(ctx, method, path, body)
	if err != nil {
		return ClassifyTransport(Failure{Stage: StageBuild, Err: err})
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return ClassifyTransport(Failure{Stage: StageSend, Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	// The status line already arrived, so a non-2xx status wins over a
	// truncated body.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if err != nil {
			data = nil
		}
		return ClassifyTransport(Failure{Stage: StageStatus, Status: resp.StatusCode, Body: data})
	}
	if err != nil {
		return ClassifyTransport(Failure{Stage: StageSend, Err: err})
	}
	return ClassifyBody(data)
}

func (p *Pipeline) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.url(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (p *Pipeline) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return p.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (p *Pipeline) apply(ctx context.Context, method, path string, out Outcome) {
	p.logger.DebugContext(ctx, "response",
		"method", method,
		"path", path,
		"ok", out.OK(),
		"kind", out.Kind(),
		"expired", out.Expired,
	)

	if out.Notice != "" {
		p.notifier.Notify(ctx, Notice{Message: out.Notice, Kind: out.Kind()})
		p.observer.NoticeShown()
	}
	if out.Expired {
		reacted := p.guard.Trigger(ctx)
		p.observer.ExpiryDetected(reacted)
	}
}
