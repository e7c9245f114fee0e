package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/metrics"
)

const tracerName = "github.com/JakeFAU/crawler-console/internal/transport"

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 4 << 10

// Envelope is the response wrapper every backend endpoint returns.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RawResponse is an undecoded body, used for binary exports.
type RawResponse struct {
	Data        []byte
	ContentType string
	// Filename is taken from Content-Disposition when the server sets one.
	Filename string
}

// Config wires a Client.
type Config struct {
	// BaseURL is the API root, for example http://localhost:8000/api/v1.
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *zap.Logger
	UserAgent  string
	// Limiter throttles calls before they are sent. Nil sends immediately.
	Limiter Limiter
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Limiter blocks until a call to url may be sent.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Client issues requests against the backend API root. It is safe for
// concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    TokenSource
	logger    *zap.Logger
	userAgent string
	limiter   Limiter
	tracer    trace.Tracer
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("transport: base URL must be http or https, got %q", base.Scheme)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "crawler-console/1.0"
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Client{
		base:      base,
		http:      hc,
		tokens:    cfg.Tokens,
		logger:    logger.Named("transport"),
		userAgent: ua,
		limiter:   cfg.Limiter,
		tracer:    tracer,
	}, nil
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Get issues a GET and decodes the envelope payload as T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (Envelope[T], error) {
	return call[T](ctx, c, http.MethodGet, path, nil, opts)
}

// Post issues a POST with a JSON body.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (Envelope[T], error) {
	return call[T](ctx, c, http.MethodPost, path, body, opts)
}

// Put issues a PUT with a JSON body.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (Envelope[T], error) {
	return call[T](ctx, c, http.MethodPut, path, body, opts)
}

// Patch issues a PATCH with a JSON body.
func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (Envelope[T], error) {
	return call[T](ctx, c, http.MethodPatch, path, body, opts)
}

// Delete issues a DELETE.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (Envelope[T], error) {
	return call[T](ctx, c, http.MethodDelete, path, nil, opts)
}

// Raw issues a request and returns the body without envelope decoding.
// Non-2xx responses still fail with a *StatusError.
func (c *Client) Raw(ctx context.Context, method, path string, opts ...RequestOption) (RawResponse, error) {
	resp, body, err := c.do(ctx, method, path, nil, opts)
	if err != nil {
		return RawResponse{}, err
	}
	out := RawResponse{Data: body, ContentType: resp.Header.Get("Content-Type")}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, perr := mime.ParseMediaType(cd); perr == nil {
			out.Filename = params["filename"]
		}
	}
	return out, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any, opts []RequestOption) (Envelope[T], error) {
	_, raw, err := c.do(ctx, method, path, body, opts)
	if err != nil {
		return Envelope[T]{}, err
	}
	return decodeEnvelope[T](method, path, raw)
}

func decodeEnvelope[T any](method, path string, raw []byte) (Envelope[T], error) {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Envelope[T]{}, fmt.Errorf("%w: %s %s: %w", ErrDecode, method, path, err)
	}
	if probe.Success == nil {
		return Envelope[T]{}, fmt.Errorf("%w: %s %s: missing success flag", ErrDecode, method, path)
	}
	var env Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope[T]{}, fmt.Errorf("%w: %s %s: %w", ErrDecode, method, path, err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "request was not successful"
		}
		return env, &EnvelopeError{Method: method, Path: path, Message: msg}
	}
	return env, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts []RequestOption) (_ *http.Response, _ []byte, err error) {
	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(semconv.HTTPMethodKey.String(method)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	o := collectOptions(opts)
	req, err := c.newRequest(ctx, method, path, body, o)
	if err != nil {
		c.logger.Error("error setting up request", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, nil, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, req.URL.String()); err != nil {
			return nil, nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(method, 0, time.Since(start))
		c.logger.Error("no response received", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(resp.StatusCode))
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()
	raw, err := io.ReadAll(resp.Body)
	metrics.ObserveAPIRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s %s: read body: %w", ErrNetwork, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Code: resp.StatusCode, Method: method, Path: path, Message: errorMessage(raw)}
		c.logStatus(serr)
		return nil, nil, serr
	}
	return resp, raw, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, o requestOptions) (*http.Request, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestBuild, err)
	}
	if len(o.query) > 0 {
		q := target.Query()
		for k, vs := range o.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return nil, fmt.Errorf("%w: encode body: %w", ErrRequestBuild, merr)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestBuild, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range o.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.tokens != nil {
		token, terr := c.tokens.Token(ctx)
		if terr != nil {
			return nil, fmt.Errorf("%w: read auth token: %w", ErrRequestBuild, terr)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) resolve(path string) (*url.URL, error) {
	if path == "" || !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path %q must start with /", path)
	}
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	target := *c.base
	// RawPath keeps escapes such as %2F inside a path segment.
	target.Path = c.base.Path + rel.Path
	target.RawPath = c.base.EscapedPath() + rel.EscapedPath()
	target.RawQuery = rel.RawQuery
	return &target, nil
}

func (c *Client) logStatus(err *StatusError) {
	fields := []zap.Field{
		zap.String("method", err.Method),
		zap.String("path", err.Path),
		zap.Int("status", err.Code),
	}
	switch {
	case err.Code == http.StatusUnauthorized:
		c.logger.Error("unauthorized access", fields...)
	case err.Code == http.StatusForbidden:
		c.logger.Error("forbidden access", fields...)
	case err.Code == http.StatusNotFound:
		c.logger.Error("resource not found", fields...)
	case err.Code >= 500:
		c.logger.Error("internal server error", append(fields, zap.String("message", err.Message))...)
	default:
		c.logger.Warn("request failed", append(fields, zap.String("message", err.Message))...)
	}
}

// errorMessage pulls message/error/detail from a JSON error body, falling
// back to the trimmed text.
func errorMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		case len(body.Detail) > 0:
			var s string
			if json.Unmarshal(body.Detail, &s) == nil {
				return s
			}
			return string(body.Detail)
		}
	}
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	return strings.TrimSpace(string(raw))
}
