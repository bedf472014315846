package breach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v5"
)

// EmailProvider looks an account up in one breach directory. A provider that
// knows the account and finds nothing returns an empty slice and no error.
type EmailProvider interface {
	Name() string
	Lookup(ctx context.Context, email string) ([]Record, error)
}

// HIBPProvider queries the Have I Been Pwned v3 breachedaccount API.
type HIBPProvider struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
}

func NewHIBPProvider(baseURL, apiKey, userAgent string, client *http.Client) *HIBPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HIBPProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: userAgent,
		client:    client,
	}
}

func (p *HIBPProvider) Name() string { return "hibp" }

type hibpBreach struct {
	Name        string   `json:"Name"`
	Title       string   `json:"Title"`
	Domain      string   `json:"Domain"`
	BreachDate  string   `json:"BreachDate"`
	PwnCount    int64    `json:"PwnCount"`
	DataClasses []string `json:"DataClasses"`
}

func (p *HIBPProvider) Lookup(ctx context.Context, email string) ([]Record, error) {
	if p.apiKey == "" {
		return nil, backoff.Permanent(errors.New("hibp: api key not configured"))
	}

	u := p.baseURL + "/" + url.PathEscape(email) + "?truncateResponse=false"
	h := http.Header{}
	h.Set("hibp-api-key", p.apiKey)
	h.Set("User-Agent", p.userAgent)

	code, body, err := get(ctx, p.client, u, h)
	if err != nil {
		return nil, err
	}
	switch {
	case code == http.StatusNotFound:
		return []Record{}, nil
	case code < 200 || code > 299:
		return nil, statusErr(p.Name(), code)
	}

	var raw []hibpBreach
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("hibp: decode: %w", err))
	}

	records := make([]Record, 0, len(raw))
	for _, b := range raw {
		records = append(records, Record{
			Name:        b.Name,
			Title:       b.Title,
			Domain:      b.Domain,
			Date:        b.BreachDate,
			RecordCount: b.PwnCount,
			DataClasses: b.DataClasses,
			Severity:    SeverityFor(b.PwnCount),
		})
	}
	return records, nil
}

// XposedOrNotProvider queries the XposedOrNot breach-analytics API. It needs
// no key and serves as the fallback directory.
type XposedOrNotProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewXposedOrNotProvider(baseURL, userAgent string, client *http.Client) *XposedOrNotProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &XposedOrNotProvider{baseURL: baseURL, userAgent: userAgent, client: client}
}

func (p *XposedOrNotProvider) Name() string { return "xposedornot" }

type xonResponse struct {
	ExposedBreaches *struct {
		BreachesDetails []xonBreach `json:"breaches_details"`
	} `json:"ExposedBreaches"`
}

type xonBreach struct {
	Breach        string `json:"breach"`
	Domain        string `json:"domain"`
	XposedDate    string `json:"xposed_date"`
	XposedRecords int64  `json:"xposed_records"`
	XposedData    string `json:"xposed_data"`
}

func (p *XposedOrNotProvider) Lookup(ctx context.Context, email string) ([]Record, error) {
	u := p.baseURL + "?email=" + url.QueryEscape(email)
	h := http.Header{}
	h.Set("User-Agent", p.userAgent)

	code, body, err := get(ctx, p.client, u, h)
	if err != nil {
		return nil, err
	}
	switch {
	case code == http.StatusNotFound:
		return []Record{}, nil
	case code < 200 || code > 299:
		return nil, statusErr(p.Name(), code)
	}

	var raw xonResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("xposedornot: decode: %w", err))
	}
	if raw.ExposedBreaches == nil {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(raw.ExposedBreaches.BreachesDetails))
	for _, b := range raw.ExposedBreaches.BreachesDetails {
		records = append(records, Record{
			Name:        b.Breach,
			Title:       b.Breach,
			Domain:      b.Domain,
			Date:        b.XposedDate,
			RecordCount: b.XposedRecords,
			DataClasses: splitDataClasses(b.XposedData),
			Severity:    SeverityFor(b.XposedRecords),
		})
	}
	return records, nil
}

func splitDataClasses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
