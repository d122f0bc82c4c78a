package webtext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/log"
	"github.com/sneezeparty/soupy/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractURLs(t *testing.T) {
	t.Run("no urls", func(t *testing.T) {
		assert.Empty(t, ExtractURLs("just a plain message"))
	})
	t.Run("single url", func(t *testing.T) {
		urls := ExtractURLs("check this out https://example.com/page cool right?")
		assert.Equal(t, []string{"https://example.com/page"}, urls)
	})
	t.Run("http and https", func(t *testing.T) {
		urls := ExtractURLs("http://a.com and https://b.org")
		assert.Equal(t, []string{"http://a.com", "https://b.org"}, urls)
	})
	t.Run("caps at 3 urls", func(t *testing.T) {
		urls := ExtractURLs("https://a.com https://b.com https://c.com https://d.com")
		assert.Equal(t, 3, len(urls))
	})
	t.Run("percent encoded", func(t *testing.T) {
		urls := ExtractURLs("https://example.com/a%20b")
		assert.Equal(t, []string{"https://example.com/a%20b"}, urls)
	})
}

func newTestSummarizer(t *testing.T) *Summarizer {
	st, err := store.SetupExternalStore(&config.CacheConfig{UrlTtl: 60}, log.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(st.Shutdown)
	return NewSummarizer(&config.CacheConfig{UrlTtl: 60}, st, nil, log.NewNullLogger())
}

func TestSummarizer_Summarize(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><script>ignored()</script></head>
<body><nav>menu</nav><article><h1>Title</h1><p>Some   article
text.</p></article><footer>foot</footer></body></html>`))
	}))
	defer srv.Close()

	s := newTestSummarizer(t)
	summary, ok := s.Summarize(context.Background(), srv.URL)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(summary, "[URL content: "))
	assert.Contains(t, summary, "Title Some article text.")
	assert.NotContains(t, summary, "menu")
	assert.NotContains(t, summary, "ignored")

	// second call is served from the cache
	_, ok = s.Summarize(context.Background(), srv.URL)
	assert.True(t, ok)
	assert.Equal(t, 1, hits)
}

func TestSummarizer_Summarize_LongContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>" + strings.Repeat("word ", 300) + "</p></body></html>"))
	}))
	defer srv.Close()

	s := newTestSummarizer(t)
	summary, ok := s.Summarize(context.Background(), srv.URL)
	require.True(t, ok)
	content := strings.TrimSuffix(strings.TrimPrefix(summary, "[URL content: "), "]")
	assert.Equal(t, 500, len(content))
	assert.True(t, strings.HasSuffix(content, "..."))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 500))

	// the cut point lands inside a multibyte rune
	long := strings.Repeat("a", 496) + "éxito asegurado"
	got := truncate(long, 500)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 496)+"...", got)
}

func TestSummarizer_Summarize_NonHtml(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not":"html"}`))
	}))
	defer srv.Close()

	s := newTestSummarizer(t)
	_, ok := s.Summarize(context.Background(), srv.URL)
	assert.False(t, ok)

	// negative result is cached too
	_, ok = s.Summarize(context.Background(), srv.URL)
	assert.False(t, ok)
	assert.Equal(t, 1, hits)
}

func TestSummarizer_Summarize_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestSummarizer(t)
	_, ok := s.Summarize(context.Background(), srv.URL)
	assert.False(t, ok)
}

func TestSummarizer_SummarizeAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>page text</p></body></html>"))
	}))
	defer srv.Close()

	s := newTestSummarizer(t)
	summaries := s.SummarizeAll(context.Background(), "see "+srv.URL+" for details")
	require.Equal(t, 1, len(summaries))
	assert.Equal(t, "[URL content: page text]", summaries[0])
}
