package encyclopedia_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/bdobrica/Hisho/internal/hisho/encyclopedia"
)

// fakeWiki serves summaries keyed by title and a fixed opensearch answer.
type fakeWiki struct {
	summaries  map[string]string
	opensearch string
	searches   int
}

func (f *fakeWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/rest_v1/page/summary/"):
		title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
		body, ok := f.summaries[title]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"type": "https://mediawiki.org/wiki/HyperSwitch/errors/not_found"}`))
			return
		}
		w.Write([]byte(body))
	case r.URL.Path == "/w/api.php":
		f.searches++
		if r.URL.Query().Get("action") != "opensearch" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(f.opensearch))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newClient(t *testing.T, f *fakeWiki) *encyclopedia.Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return encyclopedia.New(encyclopedia.Config{BaseURL: srv.URL})
}

func TestSearch_Summary(t *testing.T) {
	f := &fakeWiki{summaries: map[string]string{
		"Гофер": `{
			"type": "standard",
			"title": "Гофер",
			"extract": "Гоферы — семейство грызунов.",
			"content_urls": {"desktop": {"page": "https://ru.wikipedia.org/wiki/Гофер"}}
		}`,
	}}
	c := newClient(t, f)

	got, err := c.Search(context.Background(), "Гофер")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := encyclopedia.Article{
		Title:   "Гофер",
		Summary: "Гоферы — семейство грызунов.",
		URL:     "https://ru.wikipedia.org/wiki/Гофер",
	}
	if got != want {
		t.Errorf("Search:\n got %+v\nwant %+v", got, want)
	}
	if f.searches != 0 {
		t.Errorf("a direct hit must not search, got %d searches", f.searches)
	}
}

func TestSearch_DisambiguationPage(t *testing.T) {
	f := &fakeWiki{
		summaries: map[string]string{
			"Меркурий": `{"type": "disambiguation", "title": "Меркурий", "extract": "Меркурий может означать:"}`,
		},
		opensearch: `["Меркурий", ["Меркурий", "Меркурий (планета)", "Меркурий (мифология)"], ["", "", ""], ["", "", ""]]`,
	}
	c := newClient(t, f)

	_, err := c.Search(context.Background(), "Меркурий")
	var dis *encyclopedia.Disambiguation
	if !errors.As(err, &dis) {
		t.Fatalf("want *Disambiguation, got %v", err)
	}
	if want := []string{"Меркурий (планета)", "Меркурий (мифология)"}; !reflect.DeepEqual(dis.Candidates, want) {
		t.Errorf("candidates: got %q, want %q", dis.Candidates, want)
	}
}

func TestSearch_MissingFallsBackToOpensearch(t *testing.T) {
	f := &fakeWiki{
		opensearch: `["гошник", ["Go (язык программирования)"], [""], [""]]`,
	}
	c := newClient(t, f)

	_, err := c.Search(context.Background(), "гошник")
	var dis *encyclopedia.Disambiguation
	if !errors.As(err, &dis) {
		t.Fatalf("want *Disambiguation, got %v", err)
	}
	if want := []string{"Go (язык программирования)"}; !reflect.DeepEqual(dis.Candidates, want) {
		t.Errorf("candidates: got %q, want %q", dis.Candidates, want)
	}
	if f.searches != 1 {
		t.Errorf("searches: got %d, want 1", f.searches)
	}
}

func TestSearch_NotFound(t *testing.T) {
	c := newClient(t, &fakeWiki{opensearch: `["zzxxq", [], [], []]`})

	for _, term := range []string{"zzxxq", "  "} {
		if _, err := c.Search(context.Background(), term); !errors.Is(err, encyclopedia.ErrNotFound) {
			t.Errorf("Search(%q): got %v, want %v", term, err, encyclopedia.ErrNotFound)
		}
	}
}

func TestSearch_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := encyclopedia.New(encyclopedia.Config{BaseURL: srv.URL}).Search(context.Background(), "Go")
	if !errors.Is(err, encyclopedia.ErrUnavailable) {
		t.Errorf("got %v, want %v", err, encyclopedia.ErrUnavailable)
	}
}
