// Package encyclopedia looks up article summaries on Wikipedia.
package encyclopedia

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
	defaultBaseURL    = "https://ru.wikipedia.org"
	defaultTimeout    = 10 * time.Second
	defaultCandidates = 5
	maxBodyBytes      = 2 << 20
)

var (
	// ErrNotFound is returned when nothing matches the term.
	ErrNotFound = errors.New("encyclopedia: not found")
	// ErrUnavailable wraps transport and decoding failures.
	ErrUnavailable = errors.New("encyclopedia: unavailable")
)

// Disambiguation is returned when the term matches several articles.
type Disambiguation struct {
	Term       string
	Candidates []string
}

func (d *Disambiguation) Error() string {
	return fmt.Sprintf("encyclopedia: %q is ambiguous (%d candidates)", d.Term, len(d.Candidates))
}

// Article is the summary of one article.
type Article struct {
	Title   string
	Summary string
	URL     string
}

// Config configures the client.
type Config struct {
	// BaseURL of the wiki, e.g. https://en.wikipedia.org. Defaults to the
	// Russian Wikipedia.
	BaseURL string
	// MaxCandidates caps the disambiguation list. Defaults to 5.
	MaxCandidates int
	Timeout       time.Duration
}

// Client queries the REST summary and opensearch endpoints.
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
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = defaultCandidates
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Search returns the summary of the article best matching term. An ambiguous
// term yields *Disambiguation; a term matching nothing yields ErrNotFound.
func (c *Client) Search(ctx context.Context, term string) (Article, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Article{}, ErrNotFound
	}

	status, body, err := c.get(ctx, "/api/rest_v1/page/summary/"+url.PathEscape(term)+"?redirect=true")
	if err != nil {
		return Article{}, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return Article{}, c.suggest(ctx, term)
	default:
		return Article{}, fmt.Errorf("%w: summary HTTP %d", ErrUnavailable, status)
	}

	if !gjson.ValidBytes(body) {
		return Article{}, fmt.Errorf("%w: malformed summary", ErrUnavailable)
	}
	res := gjson.ParseBytes(body)
	if res.Get("type").String() == "disambiguation" {
		return Article{}, c.suggest(ctx, term)
	}

	a := Article{
		Title:   res.Get("title").String(),
		Summary: strings.TrimSpace(res.Get("extract").String()),
		URL:     res.Get("content_urls.desktop.page").String(),
	}
	if a.Summary == "" {
		return Article{}, ErrNotFound
	}
	return a, nil
}

// suggest runs opensearch for term and reports the candidates as a
// *Disambiguation, or ErrNotFound when there are none.
func (c *Client) suggest(ctx context.Context, term string) error {
	q := url.Values{}
	q.Set("action", "opensearch")
	q.Set("search", term)
	q.Set("limit", fmt.Sprint(c.cfg.MaxCandidates))
	q.Set("namespace", "0")
	q.Set("format", "json")

	status, body, err := c.get(ctx, "/w/api.php?"+q.Encode())
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: opensearch HTTP %d", ErrUnavailable, status)
	}
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%w: malformed opensearch", ErrUnavailable)
	}

	// [term, [titles...], [descriptions...], [urls...]]
	var candidates []string
	for _, t := range gjson.GetBytes(body, "1").Array() {
		if s := t.String(); s != "" && !strings.EqualFold(s, term) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return ErrNotFound
	}
	return &Disambiguation{Term: term, Candidates: candidates}
}

func (c *Client) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return resp.StatusCode, body, nil
}
