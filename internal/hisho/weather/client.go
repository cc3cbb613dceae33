// Package weather looks up current conditions for a city on OpenWeatherMap.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bdobrica/Hisho/common/version"
)

const (
	defaultBaseURL = "https://api.openweathermap.org"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	// ErrNotFound is returned when the city is unknown.
	ErrNotFound = errors.New("weather: city not found")
	// ErrUnavailable wraps every other failure.
	ErrUnavailable = errors.New("weather: service unavailable")
)

// Conditions are the current conditions in a city.
type Conditions struct {
	City        string
	Description string
	TempC       float64
	FeelsLikeC  float64
}

// Config configures the client.
type Config struct {
	APIKey string
	// BaseURL defaults to https://api.openweathermap.org.
	BaseURL string
	// Lang is the language of descriptions. Defaults to "ru".
	Lang    string
	Timeout time.Duration
}

// Client queries the current weather endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Lang == "" {
		cfg.Lang = "ru"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Current returns the conditions in city.
func (c *Client) Current(ctx context.Context, city string) (Conditions, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Conditions{}, ErrNotFound
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", "metric")
	q.Set("lang", c.cfg.Lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Conditions{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return Conditions{}, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable,
			resp.StatusCode, gjson.GetBytes(body, "message").String())
	}

	return parse(body)
}

func parse(body []byte) (Conditions, error) {
	if !gjson.ValidBytes(body) {
		return Conditions{}, fmt.Errorf("%w: malformed response", ErrUnavailable)
	}
	res := gjson.ParseBytes(body)

	// The API reports some failures as 200 with a string "cod".
	if cod := res.Get("cod"); cod.Exists() && cod.String() == "404" {
		return Conditions{}, ErrNotFound
	}

	temp := res.Get("main.temp")
	desc := res.Get("weather.0.description")
	if !temp.Exists() || !desc.Exists() {
		return Conditions{}, fmt.Errorf("%w: incomplete response", ErrUnavailable)
	}

	return Conditions{
		City:        res.Get("name").String(),
		Description: desc.String(),
		TempC:       temp.Float(),
		FeelsLikeC:  res.Get("main.feels_like").Float(),
	}, nil
}
