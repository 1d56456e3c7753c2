package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/haugom/procsight/internal/models"
	"golang.org/x/time/rate"
)

type FetcherConfig struct {
	IndexURL     string
	RateLimit    float64 // requests per second
	MaxDocuments int
	Timeout      time.Duration
	OnProgress   func(url string)
}

// Fetcher collects procurement documents linked from a public index page,
// the way bid-opening notices are published as PDF listings.
type Fetcher struct {
	config   FetcherConfig
	client   *http.Client
	limiter  *rate.Limiter
	baseHost string
}

var documentExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".bmp":  true,
}

func NewWithConfig(config FetcherConfig) (*Fetcher, error) {
	if config.IndexURL == "" {
		return nil, fmt.Errorf("index URL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MaxDocuments == 0 {
		config.MaxDocuments = 50
	}

	parsedURL, err := url.Parse(config.IndexURL)
	if err != nil {
		return nil, err
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
	}, nil
}

// Fetch downloads every document linked from the index page, up to the
// configured maximum.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.RawDocument, error) {
	links, err := f.collectLinks(ctx)
	if err != nil {
		return nil, err
	}

	var documents []models.RawDocument
	for _, link := range links {
		if len(documents) >= f.config.MaxDocuments {
			break
		}

		doc, err := f.download(ctx, link)
		if err != nil {
			// A single broken link should not sink the whole batch
			continue
		}
		documents = append(documents, doc)

		if f.config.OnProgress != nil {
			f.config.OnProgress(link)
		}
	}

	return documents, nil
}

func (f *Fetcher) collectLinks(ctx context.Context) ([]string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.IndexURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for index URL: %s", resp.StatusCode, f.config.IndexURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(f.config.IndexURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, exists := selection.Attr("href")
		if !exists {
			return
		}

		absoluteURL, err := url.Parse(href)
		if err != nil {
			return
		}
		if !absoluteURL.IsAbs() {
			absoluteURL = base.ResolveReference(absoluteURL)
		}

		if !f.shouldDownload(absoluteURL) {
			return
		}

		link := absoluteURL.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return links, nil
}

func (f *Fetcher) shouldDownload(u *url.URL) bool {
	if u.Host != f.baseHost {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return documentExtensions[ext]
}

func (f *Fetcher) download(ctx context.Context, link string) (models.RawDocument, error) {
	var empty models.RawDocument

	if err := f.limiter.Wait(ctx); err != nil {
		return empty, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return empty, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return empty, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return empty, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, link)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, err
	}

	parsed, _ := url.Parse(link)
	name := path.Base(parsed.Path)

	return models.RawDocument{
		ID:      uuid.NewString(),
		Name:    name,
		Path:    link,
		Format:  strings.TrimPrefix(strings.ToLower(path.Ext(name)), "."),
		Content: content,
		Loaded:  time.Now(),
	}, nil
}
