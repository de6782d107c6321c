package news

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/internal/helpers"
)

var tracer = otel.Tracer("remedy/news")

const (
	headlineCount = 10
	headlineCap   = 12
	digestCount   = 20
	digestCap     = 20
	eventCount    = 25
	eventCap      = 25
	summaryTime   = 20 * time.Second
)

var headlineQueries = []string{
	"latest medical health research breakthroughs",
	"new drug supplement safety findings",
	"health wellness news today",
}

var digestQueries = map[string]string{
	"all":      "latest health medical fitness nutrition wellness news",
	"medical":  "latest medical research treatment breakthroughs news",
	"fitness":  "latest fitness exercise training research news",
	"diet":     "latest nutrition diet supplement research news",
	"wellness": "latest mental health sleep wellness news",
}

var eventQueries = map[string]string{
	"all":      "upcoming health fitness wellness events conferences 2025 2026",
	"health":   "upcoming health events medical conferences webinars 2025 2026",
	"fitness":  "upcoming fitness events runs marathons challenges 2025 2026",
	"wellness": "upcoming wellness events mindfulness workshops retreats 2025 2026",
}

// Article is one health news item.
type Article struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	FaviconURL   string `json:"favicon_url,omitempty"`
	Source       string `json:"source"`
	Age          string `json:"age,omitempty"`
}

// Digest is a category news listing with an optional summary.
type Digest struct {
	Category string    `json:"category"`
	Days     int       `json:"days"`
	Articles []Article `json:"articles"`
	Summary  string    `json:"summary,omitempty"`
}

// Event is an upcoming health, fitness or wellness event.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Category    string `json:"category"`
	FaviconURL  string `json:"favicon_url,omitempty"`
}

// DigestQuery selects a Digest.
type DigestQuery struct {
	Category string
	Days     int
	Summary  bool
}

// Retriever builds news and event listings over a search provider.
type Retriever struct {
	search   core.SearchProvider
	reasoner core.Reasoner
	pick     func(n int) int
	logger   *zap.Logger
}

type Option func(*Retriever)

// WithReasoner enables digest summaries.
func WithReasoner(r core.Reasoner) Option { return func(rt *Retriever) { rt.reasoner = r } }

func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPicker replaces the random headline query choice.
func WithPicker(pick func(n int) int) Option { return func(r *Retriever) { r.pick = pick } }

func NewRetriever(search core.SearchProvider, opts ...Option) *Retriever {
	r := &Retriever{search: search, pick: rand.IntN, logger: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Headlines returns up to twelve recent articles for a rotating health query.
func (r *Retriever) Headlines(ctx context.Context) ([]Article, error) {
	query := headlineQueries[r.pick(len(headlineQueries))]
	ctx, span := tracer.Start(ctx, "Retriever.Headlines")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	resp, err := r.search.Search(ctx, query, core.SearchOptions{Count: headlineCount, Freshness: "week"})
	if err != nil {
		r.logger.Warn("headline search failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("headlines: %w", err)
	}
	return collectArticles(resp, headlineCap), nil
}

// Digest returns category news from the last q.Days days, newest first.
func (r *Retriever) Digest(ctx context.Context, q DigestQuery) (Digest, error) {
	category := normalizeCategory(q.Category, digestQueries)
	days := ClampDays(q.Days)
	ctx, span := tracer.Start(ctx, "Retriever.Digest")
	defer span.End()
	span.SetAttributes(attribute.String("category", category), attribute.Int("days", days))

	resp, err := r.search.Search(ctx, digestQueries[category], core.SearchOptions{Count: digestCount, Freshness: Freshness(days)})
	if err != nil {
		r.logger.Warn("digest search failed", zap.String("category", category), zap.Error(err))
		return Digest{}, fmt.Errorf("news digest: %w", err)
	}
	articles := collectArticles(resp, digestCap)
	SortByAge(articles)

	d := Digest{Category: category, Days: days, Articles: articles}
	if q.Summary && r.reasoner != nil && len(articles) > 0 {
		d.Summary = r.summarize(ctx, category, articles)
	}
	return d, nil
}

// Events returns up to twenty-five upcoming events for category.
func (r *Retriever) Events(ctx context.Context, category string) ([]Event, error) {
	category = normalizeCategory(category, eventQueries)
	ctx, span := tracer.Start(ctx, "Retriever.Events")
	defer span.End()
	span.SetAttributes(attribute.String("category", category))

	resp, err := r.search.Search(ctx, eventQueries[category], core.SearchOptions{Count: eventCount, Freshness: "month", CrawlMode: "web"})
	if err != nil {
		r.logger.Warn("event search failed", zap.String("category", category), zap.Error(err))
		return nil, fmt.Errorf("events: %w", err)
	}

	seen := make(map[string]bool)
	events := make([]Event, 0, eventCap)
	add := func(item core.SearchResult, description string) {
		if len(events) >= eventCap || item.URL == "" || seen[item.URL] {
			return
		}
		u, err := url.Parse(item.URL)
		if err != nil || u.Hostname() == "" {
			return
		}
		seen[item.URL] = true
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Event"
		}
		events = append(events, Event{
			ID:          fmt.Sprintf("evt-%d-%s", len(events), u.Hostname()),
			Title:       title,
			Description: description,
			URL:         item.URL,
			Source:      helpers.Host(item.URL),
			Category:    category,
			FaviconURL:  item.FaviconURL,
		})
	}
	for _, item := range resp.News {
		add(item, firstNonEmpty(item.Description, firstSnippet(item)))
	}
	for _, item := range resp.Web {
		add(item, firstNonEmpty(firstSnippet(item), item.Description))
	}
	return events, nil
}

func (r *Retriever) summarize(ctx context.Context, category string, articles []Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the key %s health news below in 3 to 5 short bullet points for a general audience. Do not give medical advice.\n\n", category)
	for i, a := range articles {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", a.Title, a.Source, a.Description)
	}
	res, err := r.reasoner.Run(ctx, b.String(), core.RunOptions{MaxSteps: 1, Timeout: summaryTime})
	if err != nil {
		r.logger.Warn("digest summary failed", zap.String("category", category), zap.Error(err))
		return ""
	}
	for _, it := range res.Output {
		if it.Type == core.OutputTypeAnswer {
			if text := helpers.UnwrapFencedAnswer(it.Text); text != "" {
				return text
			}
		}
	}
	return ""
}

// collectArticles keeps news items before web items, dropping repeated URLs.
func collectArticles(resp core.SearchResponse, limit int) []Article {
	seen := make(map[string]bool)
	out := make([]Article, 0, limit)
	add := func(item core.SearchResult, description string) {
		if len(out) >= limit || item.URL == "" || seen[item.URL] {
			return
		}
		seen[item.URL] = true
		out = append(out, Article{
			Title:        item.Title,
			URL:          item.URL,
			Description:  description,
			ThumbnailURL: item.ThumbnailURL,
			FaviconURL:   item.FaviconURL,
			Source:       helpers.Host(item.URL),
			Age:          item.PageAge,
		})
	}
	for _, item := range resp.News {
		add(item, firstNonEmpty(item.Description, firstSnippet(item)))
	}
	for _, item := range resp.Web {
		add(item, firstNonEmpty(firstSnippet(item), item.Description))
	}
	return out
}

// ClampDays bounds a lookback window to [1, 365]; zero means a week.
func ClampDays(days int) int {
	switch {
	case days == 0:
		return 7
	case days < 1:
		return 1
	case days > 365:
		return 365
	}
	return days
}

// Freshness maps a lookback window onto the search freshness buckets.
func Freshness(days int) string {
	switch {
	case days <= 1:
		return "day"
	case days <= 7:
		return "week"
	case days <= 31:
		return "month"
	}
	return "year"
}

var ageLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseAge(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range ageLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortByAge orders articles newest first; undated articles go last.
func SortByAge(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		ti, okI := parseAge(articles[i].Age)
		tj, okJ := parseAge(articles[j].Age)
		if okI != okJ {
			return okI
		}
		return okI && ti.After(tj)
	})
}

func normalizeCategory(category string, known map[string]string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if _, ok := known[category]; ok {
		return category
	}
	return "all"
}

func firstSnippet(item core.SearchResult) string {
	if len(item.Snippets) > 0 {
		return item.Snippets[0]
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
