// internal/adapters/feeds/client.go
package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"carpark_aggregator/internal/adapters/observability"
	"carpark_aggregator/internal/domain"
	"carpark_aggregator/internal/shared"
)

// Feed names used in errors, logs and metric labels.
const (
	FeedVacancyInfo = "vacancy_info"
	FeedVacancy     = "vacancy"
	FeedBasicInfo   = "basic_info"
	FeedInfoVacancy = "info_vacancy"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Client struct {
	feeds shared.Feeds
	hc    *http.Client
	rl    *rate.Limiter
}

func New(feeds shared.Feeds, timeout time.Duration, rps int) (*Client, error) {
	for name, u := range map[string]string{
		FeedVacancyInfo: feeds.VacancyInfo,
		FeedVacancy:     feeds.Vacancy,
		FeedBasicInfo:   feeds.BasicInfo,
		FeedInfoVacancy: feeds.InfoVacancy,
	} {
		if u == "" {
			return nil, fmt.Errorf("feed %s: URL is required", name)
		}
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		feeds: feeds,
		hc: &http.Client{
			Timeout:   timeout, // zero means no timeout
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		rl: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) VacancyInfo(ctx context.Context) (any, error) {
	return c.FetchJSON(ctx, FeedVacancyInfo, c.feeds.VacancyInfo)
}

func (c *Client) Vacancy(ctx context.Context) (any, error) {
	return c.FetchJSON(ctx, FeedVacancy, c.feeds.Vacancy)
}

func (c *Client) BasicInfo(ctx context.Context) (any, error) {
	return c.FetchJSON(ctx, FeedBasicInfo, c.feeds.BasicInfo)
}

// InfoVacancy fetches one language variant by adding lang=<tag> to the feed URL.
func (c *Client) InfoVacancy(ctx context.Context, lang string) (any, error) {
	u, err := url.Parse(c.feeds.InfoVacancy)
	if err != nil {
		return nil, &domain.FetchError{Feed: FeedInfoVacancy, URL: c.feeds.InfoVacancy, Err: err}
	}
	q := u.Query()
	q.Set("lang", lang)
	u.RawQuery = q.Encode()
	return c.FetchJSON(ctx, FeedInfoVacancy+":"+lang, u.String())
}

// ---- Internals ----

// FetchJSON performs a single rate-limited GET and decodes the body as JSON,
// tolerating a UTF-8 byte-order mark. Numbers decode as json.Number.
func (c *Client) FetchJSON(ctx context.Context, feed, u string) (out any, err error) {
	ctx, span := observability.StartSpan(ctx, "feeds.fetch",
		attribute.String("feed", feed),
		attribute.String("http.url", u),
	)
	defer func() { observability.EndSpan(span, err) }()

	body, err := c.get(ctx, feed, u)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("response.size_bytes", len(body)))
	return Decode(feed, body)
}

func (c *Client) get(ctx context.Context, feed, u string) ([]byte, error) {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return nil, &domain.FetchError{Feed: feed, URL: u, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.FetchError{Feed: feed, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "carpark-aggregator/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("feeds", feed, 0, time.Since(start))
		return nil, &domain.FetchError{Feed: feed, URL: u, Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal("feeds", feed, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.FetchError{
			Feed:   feed,
			URL:    u,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Feed: feed, URL: u, Status: resp.StatusCode, Err: err}
	}
	return b, nil
}

// Decode parses one JSON document, stripping a leading UTF-8 BOM first.
func Decode(feed string, body []byte) (any, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &domain.DecodeError{Feed: feed, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &domain.DecodeError{Feed: feed, Err: errors.New("trailing data after JSON document")}
	}
	return out, nil
}
