// Package importer pulls articles from an RSS or Atom feed into the
// backend.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/debuglog"
	"github.com/pders01/lumina/internal/validation"
)

const maxTitleLength = 500

// Creator stores one article. *api.Client satisfies it.
type Creator interface {
	CreateArticle(ctx context.Context, req api.CreateArticleRequest) (*api.Article, error)
}

// Scraper extracts the readable body of a web page.
type Scraper interface {
	Scrape(url string, timeout time.Duration) (*readability.Article, error)
}

// ReadabilityScraper downloads pages with go-readability.
type ReadabilityScraper struct{}

func (ReadabilityScraper) Scrape(url string, timeout time.Duration) (*readability.Article, error) {
	art, err := readability.FromURL(url, timeout)
	if err != nil {
		return nil, err
	}
	return &art, nil
}

type Options struct {
	Workers    int
	FullText   bool
	Timeout    time.Duration
	UserAgent  string
	CategoryID api.ID
	Policy     validation.URLPolicy
}

// ItemError records an entry that could not be imported.
type ItemError struct {
	URL string
	Err error
}

func (e ItemError) Error() string { return fmt.Sprintf("%s: %v", e.URL, e.Err) }

// Report summarizes one import run. Created keeps feed order.
type Report struct {
	Feed    string
	Created []api.Article
	Skipped int
	Failed  []ItemError
}

type Importer struct {
	creator Creator
	scraper Scraper
	client  *http.Client
	opts    Options
}

func New(creator Creator, opts Options) *Importer {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Policy.MaxLength == 0 {
		opts.Policy = validation.DefaultPolicy()
	}
	return &Importer{
		creator: creator,
		scraper: ReadabilityScraper{},
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
	}
}

// SetScraper replaces the full-text scraper.
func (im *Importer) SetScraper(s Scraper) { im.scraper = s }

// Run fetches feedURL and creates one article per entry. Entries the
// backend already has are counted as skipped. Only feed-level problems are
// returned as errors; per-entry failures land in the report.
func (im *Importer) Run(ctx context.Context, feedURL string) (*Report, error) {
	normalized, err := im.opts.Policy.Normalize(feedURL)
	if err != nil {
		return nil, fmt.Errorf("feed url: %w", err)
	}
	defer im.client.CloseIdleConnections()

	parser := gofeed.NewParser()
	parser.Client = im.client
	if im.opts.UserAgent != "" {
		parser.UserAgent = im.opts.UserAgent
	}
	feed, err := parser.ParseURLWithContext(normalized, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", normalized, err)
	}

	log := debuglog.WithFields(map[string]any{"feed": normalized, "items": len(feed.Items)})
	log.Infof("importing feed %q", feed.Title)

	report := &Report{Feed: feed.Title}
	created := make([]*api.Article, len(feed.Items))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Workers)
	for i, item := range feed.Items {
		req, ok := im.request(item)
		if !ok {
			mu.Lock()
			report.Skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if im.opts.FullText {
				im.enrich(&req)
			}
			a, err := im.creator.CreateArticle(gctx, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, api.ErrConflict):
				report.Skipped++
			case err != nil:
				report.Failed = append(report.Failed, ItemError{URL: req.URL, Err: err})
			default:
				created[i] = a
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, a := range created {
		if a != nil {
			report.Created = append(report.Created, *a)
		}
	}
	log.Infof("import done: %d created, %d skipped, %d failed", len(report.Created), report.Skipped, len(report.Failed))
	return report, nil
}

func (im *Importer) request(item *gofeed.Item) (api.CreateArticleRequest, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" || strings.TrimSpace(item.Title) == "" {
		return api.CreateArticleRequest{}, false
	}
	req := api.CreateArticleRequest{
		Title:      truncate(strings.TrimSpace(item.Title), maxTitleLength),
		URL:        link,
		Summary:    item.Description,
		Content:    item.Content,
		CategoryID: im.opts.CategoryID,
	}
	if domain, err := validation.Domain(link); err == nil {
		req.SourceDomain = domain
	}
	switch {
	case item.Author != nil && item.Author.Name != "":
		req.Author = item.Author.Name
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		req.Author = item.Authors[0].Name
	}
	if item.PublishedParsed != nil {
		req.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		req.PublishedAt = item.UpdatedParsed
	}
	return req, true
}

// enrich replaces the feed body with the readable page content. Failures
// keep the feed body.
func (im *Importer) enrich(req *api.CreateArticleRequest) {
	art, err := im.scraper.Scrape(req.URL, im.opts.Timeout)
	if err != nil || art == nil {
		debuglog.Warnf("full text for %s: %v", req.URL, err)
		return
	}
	if strings.TrimSpace(art.Content) != "" {
		req.Content = art.Content
	}
	if req.Summary == "" {
		req.Summary = art.Excerpt
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
