package breach

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	rangeSource = "pwnedpasswords"
	cacheSource = "cache"

	defaultTimeout    = 5 * time.Second
	defaultMaxRetries = 3
)

// Lookup kinds and outcomes reported to Metrics.
const (
	KindPassword = "password"
	KindEmail    = "email"

	OutcomeExposed = "exposed"
	OutcomeClean   = "clean"
	OutcomeOffline = "offline"
)

// Metrics receives one call per completed lookup.
type Metrics interface {
	BreachLookup(kind, source, outcome string)
}

// Config configures an Oracle.
type Config struct {
	// RangeURL is the k-anonymity endpoint; the prefix is appended as a path
	// segment.
	RangeURL   string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Oracle performs password and account breach lookups. It is safe for
// concurrent use.
type Oracle struct {
	rangeURL   string
	userAgent  string
	timeout    time.Duration
	maxRetries uint
	client     *http.Client

	cache     RangeCache
	providers []EmailProvider
	metrics   Metrics
	logger    logging.Logger
	tracer    trace.Tracer

	newBackOff func() backoff.BackOff
}

type Option func(*Oracle)

// WithRangeCache shares range responses between lookups and instances.
func WithRangeCache(c RangeCache) Option {
	return func(o *Oracle) { o.cache = c }
}

// WithEmailProviders sets the providers consulted in order by CheckEmail.
func WithEmailProviders(p ...EmailProvider) Option {
	return func(o *Oracle) { o.providers = p }
}

func WithMetrics(m Metrics) Option {
	return func(o *Oracle) { o.metrics = m }
}

func WithLogger(l logging.Logger) Option {
	return func(o *Oracle) { o.logger = l.With("module", "breach") }
}

// WithBackOff replaces the exponential retry schedule.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(o *Oracle) { o.newBackOff = f }
}

func New(cfg Config, opts ...Option) *Oracle {
	o := &Oracle{
		rangeURL:   strings.TrimRight(cfg.RangeURL, "/"),
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		maxRetries: defaultMaxRetries,
		client:     cfg.HTTPClient,
		logger:     logging.Nop{},
		tracer:     otel.Tracer("github.com/dmitrijs2005/gophguard/internal/breach"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	if cfg.MaxRetries > 0 {
		o.maxRetries = uint(cfg.MaxRetries)
	}
	if o.timeout <= 0 {
		o.timeout = defaultTimeout
	}
	if o.client == nil {
		o.client = http.DefaultClient
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckPassword reports whether password appears in the range corpus. Only
// the 5-character hash prefix is sent upstream or used as a cache key.
func (o *Oracle) CheckPassword(ctx context.Context, password string) PasswordReport {
	ctx, span := o.tracer.Start(ctx, "breach.CheckPassword")
	defer span.End()

	prefix, suffix := SplitHash(password)

	body, source, err := o.rangeBody(ctx, prefix)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "range lookup failed")
		o.logger.Warn(ctx, "range lookup failed", "error", err)
		o.observe(KindPassword, rangeSource, OutcomeOffline)
		return PasswordReport{Offline: true, Source: rangeSource}
	}

	count := matchSuffix(body, suffix)
	report := PasswordReport{Exposed: count > 0, Count: count, Source: source}
	if report.Exposed {
		o.observe(KindPassword, source, OutcomeExposed)
	} else {
		o.observe(KindPassword, source, OutcomeClean)
	}
	return report
}

func (o *Oracle) rangeBody(ctx context.Context, prefix string) (string, string, error) {
	if o.cache != nil {
		body, ok, err := o.cache.Get(ctx, prefix)
		if err != nil {
			o.logger.Warn(ctx, "range cache unavailable", "error", err)
		} else if ok {
			return body, cacheSource, nil
		}
	}

	body, err := retry(ctx, o.maxRetries, o.timeout, o.newBackOff(), func(ctx context.Context) (string, error) {
		return o.fetchRange(ctx, prefix)
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", common.ErrBreachOracleUnavailable, rangeSource, err)
	}

	if o.cache != nil {
		if err := o.cache.Set(ctx, prefix, body); err != nil {
			o.logger.Warn(ctx, "range cache store failed", "error", err)
		}
	}
	return body, rangeSource, nil
}

func (o *Oracle) fetchRange(ctx context.Context, prefix string) (string, error) {
	h := http.Header{}
	h.Set("Add-Padding", "true")
	h.Set("User-Agent", o.userAgent)

	code, body, err := get(ctx, o.client, o.rangeURL+"/"+prefix, h)
	if err != nil {
		return "", err
	}
	if code < 200 || code > 299 {
		return "", statusErr(rangeSource, code)
	}
	return string(body), nil
}

// CheckEmail asks each provider in turn and returns the first successful
// answer. Providers that fail after their retries are skipped.
func (o *Oracle) CheckEmail(ctx context.Context, email string) EmailReport {
	ctx, span := o.tracer.Start(ctx, "breach.CheckEmail")
	defer span.End()

	email = normalizeEmail(email)

	var last string
	for _, p := range o.providers {
		last = p.Name()

		records, err := o.lookup(ctx, p, email)
		if err != nil {
			o.logger.Warn(ctx, "email provider failed", "provider", p.Name(), "error", err)
			continue
		}

		if len(records) > 0 {
			o.observe(KindEmail, p.Name(), OutcomeExposed)
		} else {
			o.observe(KindEmail, p.Name(), OutcomeClean)
		}
		return EmailReport{Records: records, Source: p.Name()}
	}

	span.SetStatus(codes.Error, "all providers failed")
	o.observe(KindEmail, last, OutcomeOffline)
	return EmailReport{Records: []Record{}, Offline: true, Source: last}
}

func (o *Oracle) lookup(ctx context.Context, p EmailProvider, email string) ([]Record, error) {
	ctx, span := o.tracer.Start(ctx, "breach.provider",
		trace.WithAttributes(attribute.String("breach.provider", p.Name())))
	defer span.End()

	records, err := retry(ctx, o.maxRetries, o.timeout, o.newBackOff(), func(ctx context.Context) ([]Record, error) {
		return p.Lookup(ctx, email)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, fmt.Errorf("%w: %s: %w", common.ErrBreachOracleUnavailable, p.Name(), err)
	}
	span.SetAttributes(attribute.Int("breach.records", len(records)))
	return records, nil
}

func (o *Oracle) observe(kind, source, outcome string) {
	if o.metrics != nil {
		o.metrics.BreachLookup(kind, source, outcome)
	}
}
