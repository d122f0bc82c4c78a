package webtext

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag/metrics"
	"github.com/sneezeparty/soupy/internal/utils"
	"github.com/sneezeparty/soupy/log"
	"github.com/sneezeparty/soupy/store"
)

const (
	maxUrlsPerMessage = 3
	maxSummaryLength  = 500
	fetchTimeout      = 10 * time.Second
)

var urlPattern = regexp.MustCompile(`https?://[-\w.]+(?::\d+)?(?:/[^\s<>"']*)?`)

// boilerplate elements dropped before text extraction
const strippedElements = "script, style, noscript, nav, header, footer, aside, form, iframe"

// ExtractURLs collects at most 3 links from a message.
func ExtractURLs(text string) []string {
	urls := urlPattern.FindAllString(text, -1)
	if len(urls) > maxUrlsPerMessage {
		urls = urls[:maxUrlsPerMessage]
	}
	return urls
}

// Summarizer fetches linked pages and produces short text summaries
// that can be framed into a conversation. Results are cached, failed
// lookups included, so a link repeated in the conversation doesn't
// trigger repeated fetches.
type Summarizer struct {
	httpClient      *http.Client
	cache           store.External
	ttl             time.Duration
	metricsReporter metrics.Reporter
	log             log.Logger
}

func NewSummarizer(conf *config.CacheConfig, cache store.External, metricsReporter metrics.Reporter, log log.Logger) *Summarizer {
	return &Summarizer{
		httpClient:      &http.Client{Timeout: fetchTimeout},
		cache:           cache,
		ttl:             time.Duration(conf.UrlTtl) * time.Second,
		metricsReporter: metricsReporter,
		log:             log.WithPrefix("webtext"),
	}
}

// Summarize returns the framed content summary of a page. The second
// return value reports whether usable content was found.
func (s *Summarizer) Summarize(ctx context.Context, url string) (string, bool) {
	cacheKey := "url:" + utils.FastHashHex([]byte(url))
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		if len(cached) == 0 {
			return "", false
		}
		return string(cached), true
	}
	summary := s.fetchSummary(ctx, url)
	if err := s.cache.Set(ctx, cacheKey, []byte(summary), s.ttl); err != nil {
		s.log.Errorf("failed to cache summary for %s: %s", url, err)
	}
	if summary == "" {
		return "", false
	}
	if s.metricsReporter != nil {
		s.metricsReporter.IncrementUrlSummary()
	}
	return summary, true
}

// SummarizeAll summarizes every link found in the message text.
func (s *Summarizer) SummarizeAll(ctx context.Context, text string) []string {
	var summaries []string
	for _, url := range ExtractURLs(text) {
		if summary, ok := s.Summarize(ctx, url); ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries
}

func (s *Summarizer) fetchSummary(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return ""
	}
	start := time.Now()
	defer func() {
		if s.metricsReporter != nil {
			s.metricsReporter.MeasureUrlFetch(time.Since(start))
		}
	}()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warnf("failed to fetch %s: %s", url, err)
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		s.log.Warnf("failed to fetch %s: HTTP %d", url, resp.StatusCode)
		return ""
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "text/html") {
		s.log.Debugf("skipping non-HTML content type %s for %s", contentType, url)
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		s.log.Warnf("failed to parse %s: %s", url, err)
		return ""
	}
	content := extractMainText(doc)
	if content == "" {
		s.log.Debugf("no content extracted from %s", url)
		return ""
	}
	return "[URL content: " + truncate(content, maxSummaryLength) + "]"
}

func extractMainText(doc *goquery.Document) string {
	doc.Find(strippedElements).Remove()
	sel := doc.Find("article")
	if sel.Length() == 0 {
		sel = doc.Find("main")
	}
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
