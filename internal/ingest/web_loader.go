package ingest

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"

	"github.com/sophia-systems/csbot/internal/model"
)

const webLoaderMaxBytes = 8 * 1000 * 1000

// WebLoader fetches a URL, extracts the main article with go-readability, and
// converts it to Markdown. Every redirect hop is re-validated by ValidateURL
// so a server cannot bounce the fetch toward an internal address (spec
// §4.1's SSRF guard). Grounded in _examples/intelligencedev-manifold's
// internal/tools/web/fetch.go.
type WebLoader struct {
	Client *http.Client
}

// NewWebLoader builds a WebLoader with a hardened default client: redirects
// are followed manually (one hop at a time, via Get) so each hop's target
// can be validated before the request is issued.
func NewWebLoader() *WebLoader {
	return &WebLoader{
		Client: &http.Client{
			Timeout:       20 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

func (l *WebLoader) SupportedSourceType() model.SourceType { return model.SourceWeb }

func (l *WebLoader) Load(sourceURI string) ([]LoadedDocument, error) {
	finalURL, body, err := l.fetch(sourceURI)
	if err != nil {
		return nil, fmt.Errorf("ingest.WebLoader.Load: %w", err)
	}

	html := string(body)
	base, _ := url.Parse(finalURL)

	var articleHTML, title string
	if art, rerr := readability.FromReader(strings.NewReader(html), base); rerr == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
		title = strings.TrimSpace(art.Title)
	} else {
		articleHTML = html
	}

	md, err := htmltomarkdown.ConvertString(articleHTML, converter.WithDomain(baseOrigin(finalURL)))
	if err != nil {
		return nil, fmt.Errorf("ingest.WebLoader.Load: html to markdown: %w", err)
	}
	md = strings.TrimSpace(md)
	if title != "" && !strings.HasPrefix(strings.TrimLeft(md, "\n"), "# ") {
		md = "# " + title + "\n\n" + md
	}

	return []LoadedDocument{{
		Text:      md,
		SourceURI: sourceURI,
		Metadata: map[string]any{
			"title":     title,
			"final_url": finalURL,
		},
	}}, nil
}

// fetch issues the request, following up to MaxRedirects hops and
// re-validating each hop's target URL against the SSRF guard.
func (l *WebLoader) fetch(rawURL string) (finalURL string, body []byte, err error) {
	current := rawURL
	for hop := 0; ; hop++ {
		if hop > MaxRedirects {
			return "", nil, fmt.Errorf("too many redirects fetching %s", rawURL)
		}
		validated, verr := ValidateURL(current)
		if verr != nil {
			return "", nil, verr
		}

		req, rerr := http.NewRequest(http.MethodGet, validated, nil)
		if rerr != nil {
			return "", nil, rerr
		}
		req.Header.Set("User-Agent", "csbot-ingest/1.0")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, derr := l.Client.Do(req)
		if derr != nil {
			return "", nil, derr
		}

		if loc := resp.Header.Get("Location"); isRedirect(resp.StatusCode) && loc != "" {
			next, perr := resp.Request.URL.Parse(loc)
			resp.Body.Close()
			if perr != nil {
				return "", nil, perr
			}
			current = next.String()
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", nil, fmt.Errorf("fetching %s: status %d", validated, resp.StatusCode)
		}

		limited := io.LimitReader(resp.Body, webLoaderMaxBytes+1)
		data, rerr := io.ReadAll(limited)
		if rerr != nil {
			return "", nil, rerr
		}
		if int64(len(data)) > webLoaderMaxBytes {
			return "", nil, fmt.Errorf("response from %s exceeds max size", validated)
		}
		return resp.Request.URL.String(), data, nil
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func baseOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

var _ Loader = (*WebLoader)(nil)
var _ Loader = (*PDFLoader)(nil)
var _ Loader = (*MarkdownLoader)(nil)
