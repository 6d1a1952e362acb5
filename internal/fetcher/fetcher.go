// Package fetcher performs GET requests against the storefront with browser
// like headers, a per attempt timeout and a bounded retry policy.
package fetcher

import (
	"catalogmatch/internal/components/assert"
	"catalogmatch/internal/components/telemetry"
	"catalogmatch/internal/restyutil"
	"catalogmatch/internal/retry"
	"context"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("catalogmatch.internal.fetcher")

const DefaultTimeout = 10 * time.Second

const (
	report_fetcher_attempt          = "fetcher.attempt"
	report_fetcher_fetch_with_retry = "fetcher.fetch-with-retry"
)

type Response struct {
	Status int
	Body   []byte
}

type Options struct {
	Policy retry.Policy
	// Timeout bounds a single attempt, it defaults to DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests (retries included), zero
	// means unlimited.
	RequestsPerSecond float64
	// CloudflareBypass swaps the transport for one that mimics a browser TLS
	// handshake, it replaces some of the fixed headers with its own.
	CloudflareBypass bool
	// Dump receives every request/response exchange when set.
	Dump restyutil.Output
	// RetryOptions are passed to every retry.Do call.
	RetryOptions []retry.Option
}

type Fetcher struct {
	client    *resty.Client
	policy    retry.Policy
	timeout   time.Duration
	retryOpts []retry.Option
	tel       telemetry.API
}

func New(opts Options, tel telemetry.API) *Fetcher {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("fetcher", tel)

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.DefaultPolicy()
	}

	client := resty.New()
	client.SetHeaders(browserHeaders)
	client.SetCookies(ageGateCookies())
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	if opts.RequestsPerSecond > 0 {
		// a burst of 1 spaces requests evenly, nothing is dropped
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, tel, "catalogmatch.internal.fetcher.http")
	restyutil.DumpExchanges(client, opts.Dump)

	return &Fetcher{
		client:    client,
		policy:    opts.Policy,
		timeout:   opts.Timeout,
		retryOpts: opts.RetryOptions,
		tel:       tel,
	}
}

// Fetch performs a single attempt bounded by the fetcher's timeout. A non 2xx
// response is returned as a *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, target string, query url.Values) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req := f.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	res, err := req.Get(target)
	if err != nil {
		return Response{}, err
	}
	if !res.IsSuccess() {
		return Response{}, &StatusError{URL: target, Status: res.StatusCode()}
	}
	return Response{Status: res.StatusCode(), Body: res.Body()}, nil
}

// FetchWithRetry calls Fetch under the fetcher's retry policy. Once every
// attempt failed, or ctx is done, it returns a *NetworkError wrapping the
// last error. A target that is not an absolute URL fails after one attempt.
func (f *Fetcher) FetchWithRetry(ctx context.Context, target string, query url.Values) (Response, error) {
	ctx, span := tracer.Start(ctx, "FetchWithRetry")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	attempts := 0
	opts := append([]retry.Option{
		retry.WithNotify(func(err error, attempt int, delay time.Duration) {
			f.tel.ReportWarning(report_fetcher_attempt, target, attempt, delay.String(), err)
		}),
	}, f.retryOpts...)

	res, err := retry.Do(ctx, f.policy, func(ctx context.Context, attempt int) (Response, error) {
		attempts = attempt
		// a target that cannot be requested fails the same way on every attempt
		if _, err := url.ParseRequestURI(target); err != nil {
			return Response{}, retry.Permanent(err)
		}
		return f.Fetch(ctx, target, query)
	}, opts...)
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		err = &NetworkError{URL: target, Attempts: attempts, Err: err}
		f.tel.ReportWarning(report_fetcher_fetch_with_retry, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return Response{}, err
	}

	span.SetStatus(codes.Ok, "")
	return res, nil
}
