// Package github implements the issue search against the GitHub GraphQL API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/runoshun/issue-tally/internal/domain"
	"github.com/runoshun/issue-tally/internal/infra/retry"
	"github.com/runoshun/issue-tally/internal/infra/telemetry"
)

// Ensure Client implements domain.IssueSearcher.
var _ domain.IssueSearcher = (*Client)(nil)

const (
	logCategory    = "github"
	userAgent      = "issue-tally"
	maxErrorDetail = 512
)

// StatusError reports a response with a status other than 200.
type StatusError struct {
	Status string
	Detail string // Start of the response body
	Code   int
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Detail)
}

// BodyError reports a response body that could not be read completely.
type BodyError struct {
	Err error
}

// Error implements error.
func (e *BodyError) Error() string {
	return fmt.Sprintf("read response body: %v", e.Err)
}

// Unwrap returns the read error.
func (e *BodyError) Unwrap() error {
	return e.Err
}

// Options configures a Client.
// Fields are ordered to minimize memory padding.
type Options struct {
	HTTPClient *http.Client  // nil builds one with Timeout
	Logger     domain.Logger // nil discards
	Policy     *retry.Policy // nil uses retry.NewFixed(Retry, Classify)
	Endpoint   string        // GraphQL endpoint URL
	Token      string        // Bearer token
	Retry      retry.Config  // Delays for the default policy
	Timeout    time.Duration // Per-request timeout of the default HTTP client
}

// Client sends search documents to the GraphQL endpoint.
type Client struct {
	httpClient *http.Client
	policy     *retry.Policy
	logger     domain.Logger
	tracer     trace.Tracer
	requests   metric.Int64Counter
	retries    metric.Int64Counter
	endpoint   string
	token      string
}

// NewClient creates a new Client.
func NewClient(opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		endpoint:   opts.Endpoint,
		token:      opts.Token,
		tracer:     telemetry.Tracer(),
	}
	if c.endpoint == "" {
		c.endpoint = domain.DefaultEndpoint
	}
	if c.logger == nil {
		c.logger = domain.NopLogger{}
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(opts.Timeout)
	}
	if opts.Policy != nil {
		// Copy so a shared policy keeps its own Notify.
		policy := *opts.Policy
		c.policy = &policy
	} else {
		c.policy = retry.NewFixed(opts.Retry, Classify)
	}
	if c.policy.Notify == nil {
		c.policy.Notify = c.notify
	}

	meter := telemetry.Meter()
	c.requests, _ = meter.Int64Counter("issue_tally.github.requests",
		metric.WithDescription("GraphQL requests sent, by outcome"))
	c.retries, _ = meter.Int64Counter("issue_tally.github.retries",
		metric.WithDescription("GraphQL requests retried, by failure class"))
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = 10 * time.Second
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Search sends query and returns the first successful response, retrying
// network faults and non-200 responses according to the client's policy.
func (c *Client) Search(ctx context.Context, query string) (*domain.Envelope, error) {
	body, err := json.Marshal(struct {
		Query string `json:"query"`
	}{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "github.Search")
	defer span.End()

	var envelope *domain.Envelope
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		env, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		envelope = env
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("github.search.issues", len(envelope.Page.Issues)),
		attribute.Bool("github.search.has_next_page", envelope.Page.HasNextPage),
	)
	return envelope, nil
}

// post performs one request/response cycle.
func (c *Client) post(ctx context.Context, body []byte) (*domain.Envelope, error) {
	ctx, span := c.tracer.Start(ctx, "github.post")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.count(ctx, "transport_error")
		span.RecordError(err)
		return nil, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		c.count(ctx, "status_error")
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
		return nil, &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Detail: strings.TrimSpace(string(detail)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.count(ctx, "body_error")
		span.RecordError(err)
		return nil, &BodyError{Err: err}
	}

	envelope, err := decodeEnvelope(raw)
	if err != nil {
		c.count(ctx, "malformed")
		return nil, err
	}
	c.count(ctx, "ok")
	return envelope, nil
}

func (c *Client) count(ctx context.Context, outcome string) {
	if c.requests != nil {
		c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// notify logs a retry before the policy sleeps.
func (c *Client) notify(class retry.Class, err error, delay time.Duration) {
	if c.retries != nil {
		c.retries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("class", class.String())))
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		c.logger.Warn(logCategory, fmt.Sprintf("GitHub GraphQL query failed with code %d; sleeping %s", statusErr.Code, delay))
		return
	}
	c.logger.Warn(logCategory, fmt.Sprintf("Failed HTTP call (%v), sleeping for %s and trying again", err, delay))
}

// Classify sorts request errors into retry classes. Non-200 responses are
// ClassStatus. Dropped connections, timeouts and truncated bodies are
// ClassTransient. Everything else is permanent, including DNS failures,
// refused connections and undecodable bodies.
func Classify(err error) retry.Class {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retry.ClassStatus
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return retry.ClassPermanent
	}
	var bodyErr *BodyError
	if errors.As(err, &bodyErr) {
		return retry.ClassTransient
	}
	if isNetworkFault(err) {
		return retry.ClassTransient
	}
	return retry.ClassPermanent
}

// transientMessages are transport failures net/http reports without a typed error.
var transientMessages = []string{
	"malformed chunked encoding",
	"invalid byte in chunk length",
	"server closed idle connection",
	"http2: server sent GOAWAY",
	"stream error",
	"unexpected EOF",
	"connection reset",
}

func isNetworkFault(err error) bool {
	// *url.Error is itself a net.Error, so look at what it wraps.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	// An unresolvable or refusing endpoint is a configuration problem.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
