// Package rates fetches the Central Bank of Russia daily exchange rates.
package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bdobrica/Hisho/common/version"
)

const (
	defaultURL     = "https://www.cbr-xml-daily.ru/daily_json.js"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrUnavailable is returned for any failure to obtain rates.
var ErrUnavailable = errors.New("rates: unavailable")

// Rates are the official rouble prices of one unit of each currency.
type Rates struct {
	USD  float64
	EUR  float64
	CNY  float64
	Date time.Time
}

// Config configures the client.
type Config struct {
	// URL of the daily JSON feed.
	URL     string
	Timeout time.Duration
}

// Client reads the daily feed.
type Client struct {
	url  string
	http *http.Client
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{url: cfg.URL, http: &http.Client{Timeout: cfg.Timeout}}
}

// Latest returns today's rates. Every failure wraps ErrUnavailable.
func (c *Client) Latest(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Rates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return Rates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Rates{}, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Rates{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return parse(body)
}

func parse(body []byte) (Rates, error) {
	if !gjson.ValidBytes(body) {
		return Rates{}, fmt.Errorf("%w: malformed response", ErrUnavailable)
	}

	vals := gjson.GetManyBytes(body, "Valute.USD", "Valute.EUR", "Valute.CNY", "Date")
	var out [3]float64
	for i, v := range vals[:3] {
		value := v.Get("Value")
		if !value.Exists() {
			return Rates{}, fmt.Errorf("%w: missing currency in feed", ErrUnavailable)
		}
		// Value is the price of Nominal units.
		nominal := v.Get("Nominal").Float()
		if nominal <= 0 {
			nominal = 1
		}
		out[i] = value.Float() / nominal
	}

	r := Rates{USD: out[0], EUR: out[1], CNY: out[2]}
	if d := strings.TrimSpace(vals[3].String()); d != "" {
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			r.Date = t
		}
	}
	return r, nil
}
