package core

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/remedy/internal/agent/telemetry"
	"github.com/mohammad-safakhou/remedy/internal/helpers"
	"github.com/mohammad-safakhou/remedy/internal/lexicon"
)

// RejectedReason annotates citations that were discovered but not deep-read.
const RejectedReason = "Not selected for deep reading (extraction limited to 3 sources)"

// GathererConfig bounds the evidence gathering stage.
type GathererConfig struct {
	ResultsPerQuery   int
	Freshness         string
	CrawlMode         string
	MaxAuthorityReads int
	MaxOtherReads     int
	MaxDeepReads      int
	MarkdownChars     int
	BlockChars        int
	MaxRejected       int
	Formats           []string
}

// DefaultGathererConfig returns the production limits.
func DefaultGathererConfig() GathererConfig {
	return GathererConfig{
		ResultsPerQuery:   5,
		Freshness:         "year",
		MaxAuthorityReads: 2,
		MaxOtherReads:     1,
		MaxDeepReads:      3,
		MarkdownChars:     3000,
		BlockChars:        2000,
		MaxRejected:       5,
		Formats:           []string{"markdown"},
	}
}

// Gatherer runs searches, builds the evidence pool and reads the deep-read set.
type Gatherer struct {
	search    SearchProvider
	extractor ContentExtractor
	cfg       GathererConfig
	lex       *lexicon.Lexicon
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
}

// GathererOption customizes a Gatherer.
type GathererOption func(*Gatherer)

func WithGathererLogger(l *zap.Logger) GathererOption {
	return func(g *Gatherer) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithGathererTelemetry(t *telemetry.Telemetry) GathererOption {
	return func(g *Gatherer) { g.telemetry = t }
}

func WithLexicon(lex *lexicon.Lexicon) GathererOption {
	return func(g *Gatherer) {
		if lex != nil {
			g.lex = lex
		}
	}
}

// NewGatherer creates a gatherer. A nil extractor makes Read use snippets only.
func NewGatherer(search SearchProvider, extractor ContentExtractor, cfg GathererConfig, opts ...GathererOption) *Gatherer {
	def := DefaultGathererConfig()
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = def.ResultsPerQuery
	}
	if cfg.MaxDeepReads <= 0 {
		cfg.MaxDeepReads = def.MaxDeepReads
	}
	if cfg.MarkdownChars <= 0 {
		cfg.MarkdownChars = def.MarkdownChars
	}
	if cfg.BlockChars <= 0 {
		cfg.BlockChars = def.BlockChars
	}
	if cfg.MaxRejected <= 0 {
		cfg.MaxRejected = def.MaxRejected
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = def.Formats
	}
	g := &Gatherer{
		search:    search,
		extractor: extractor,
		cfg:       cfg,
		lex:       lexicon.Default(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("gatherer")
	return g
}

// EvidencePool is the order-preserving, URL-deduplicated list of citations
// gathered for one run.
type EvidencePool struct {
	citations []Citation
	seen      map[string]struct{}
}

// Add appends the citations whose URL has not been seen and returns them.
func (p *EvidencePool) Add(cs ...Citation) []Citation {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	var added []Citation
	for _, c := range cs {
		if c.URL == "" {
			continue
		}
		if _, dup := p.seen[c.URL]; dup {
			continue
		}
		p.seen[c.URL] = struct{}{}
		p.citations = append(p.citations, c)
		added = append(added, c)
	}
	return added
}

func (p *EvidencePool) Citations() []Citation { return append([]Citation(nil), p.citations...) }
func (p *EvidencePool) Len() int              { return len(p.citations) }

// DedupeCitations keeps the first citation for each URL.
func DedupeCitations(cs []Citation) []Citation {
	var p EvidencePool
	p.Add(cs...)
	return p.Citations()
}

// QueryBatch is the outcome of one search query.
type QueryBatch struct {
	Query string
	// Added holds the citations this query contributed after deduplication.
	Added []Citation
	Err   error
}

// SearchOutcome is the result of the searching stage.
type SearchOutcome struct {
	Citations    []Citation
	Batches      []QueryBatch
	QueryLog     []string
	CreditsError bool
}

// Events returns one search_results event per query that contributed sources.
func (o SearchOutcome) Events() []Event {
	var evs []Event
	for _, b := range o.Batches {
		if len(b.Added) > 0 {
			evs = append(evs, SearchResultsEvent(b.Added))
		}
	}
	return evs
}

// Search issues every plan query concurrently. A failing query contributes no
// results and never fails the others.
func (g *Gatherer) Search(ctx context.Context, plan ResearchPlan) SearchOutcome {
	results := make([][]Citation, len(plan.Queries))
	errs := make([]error, len(plan.Queries))
	opts := SearchOptions{Count: g.cfg.ResultsPerQuery, Freshness: g.cfg.Freshness, CrawlMode: g.cfg.CrawlMode}

	var (
		eg       errgroup.Group
		panicMu  sync.Mutex
		panicked any
	)
	for i, q := range plan.Queries {
		eg.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					panicMu.Lock()
					if panicked == nil {
						panicked = p
					}
					panicMu.Unlock()
				}
			}()
			resp, err := g.search.Search(ctx, q, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = g.toCitations(resp)
			return nil
		})
	}
	_ = eg.Wait()
	// Provider panics resurface on the caller so the run can recover them.
	if panicked != nil {
		panic(panicked)
	}

	out := SearchOutcome{QueryLog: append([]string(nil), plan.Queries...)}
	var pool EvidencePool
	for i, q := range plan.Queries {
		batch := QueryBatch{Query: q, Err: errs[i]}
		if err := errs[i]; err != nil {
			credits := IsCreditsError(err)
			out.CreditsError = out.CreditsError || credits
			if !errors.Is(err, context.Canceled) {
				g.telemetry.RecordSearchFailure(credits)
			}
			g.logger.Warn("search query failed", zap.String("query", q), zap.Bool("credits", credits), zap.Error(err))
		}
		batch.Added = pool.Add(results[i]...)
		out.Batches = append(out.Batches, batch)
	}
	out.Citations = pool.Citations()
	g.telemetry.ObserveSources(len(out.Citations))
	return out
}

func (g *Gatherer) toCitations(resp SearchResponse) []Citation {
	hits := append(append([]SearchResult(nil), resp.Web...), resp.News...)
	out := make([]Citation, 0, len(hits))
	for _, r := range hits {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			continue
		}
		snippet := r.Description
		if len(r.Snippets) > 0 && strings.TrimSpace(r.Snippets[0]) != "" {
			snippet = r.Snippets[0]
		}
		title := helpers.CleanForDisplay(r.Title)
		if title == "" {
			title = helpers.Host(url)
		}
		out = append(out, g.NewCitation(title, url, helpers.CleanForDisplay(snippet), r.FaviconURL))
	}
	return out
}

// NewCitation builds a tiered citation with identifiers taken from its URL.
func (g *Gatherer) NewCitation(title, url, snippet, favicon string) Citation {
	return newCitation(g.lex, title, url, snippet, favicon)
}

func newCitation(lex *lexicon.Lexicon, title, url, snippet, favicon string) Citation {
	c := Citation{Title: title, URL: url, Snippet: snippet, FaviconURL: favicon}
	c.SourceTier = ClassifyTier(c, lex)
	c.DOI = extractDOI(url)
	c.PubMedID = extractPubMedID(url)
	return c
}

var (
	rctTitleRe    = regexp.MustCompile(`(?i)\brandomi[sz]ed\b|\bRCTs?\b|controlled trial|placebo-controlled|clinical trial`)
	metaTitleRe   = regexp.MustCompile(`(?i)meta-analys|meta analys|systematic review|cochrane`)
	observationRe = regexp.MustCompile(`(?i)observational|cohort|case-control|cross-sectional`)
	doiRe         = regexp.MustCompile(`\b(10\.\d{4,9}/[^\s?#&]+)`)
	pubmedPathRe  = regexp.MustCompile(`(?:pubmed\.ncbi\.nlm\.nih\.gov|ncbi\.nlm\.nih\.gov/pubmed)/(\d+)`)
)

var (
	fdaDomains         = []string{"fda.gov", "dailymed.nlm.nih.gov"}
	trialDomains       = []string{"pubmed", "ncbi.nlm.nih.gov"}
	metaDomains        = []string{"cochranelibrary.com"}
	observationDomains = []string{"nih.gov", "mayoclinic.org", "who.int"}
)

// tierRule is one step of the source tier precedence list.
type tierRule struct {
	tier  SourceTier
	match func(c Citation, host string, lex *lexicon.Lexicon) bool
}

var tierRules = []tierRule{
	{TierFDALabel, func(_ Citation, host string, _ *lexicon.Lexicon) bool { return hostMatchesAny(host, fdaDomains) }},
	{TierRCT, func(c Citation, host string, _ *lexicon.Lexicon) bool {
		return hostMatchesAny(host, trialDomains) || rctTitleRe.MatchString(c.Title)
	}},
	{TierMetaAnalysis, func(c Citation, host string, _ *lexicon.Lexicon) bool {
		return metaTitleRe.MatchString(c.Title) || hostMatchesAny(host, metaDomains)
	}},
	{TierObservational, func(c Citation, host string, _ *lexicon.Lexicon) bool {
		return hostMatchesAny(host, observationDomains) || observationRe.MatchString(c.Title+" "+c.Snippet)
	}},
	{TierBlog, func(c Citation, host string, lex *lexicon.Lexicon) bool {
		return hostMatchesAny(host, lex.BlogDomains) || strings.Contains(strings.ToLower(c.URL), "/blog")
	}},
}

// ClassifyTier assigns a credibility tier. The first matching rule wins.
func ClassifyTier(c Citation, lex *lexicon.Lexicon) SourceTier {
	if lex == nil {
		lex = lexicon.Default()
	}
	host := helpers.Host(c.URL)
	for _, r := range tierRules {
		if r.match(c, host, lex) {
			return r.tier
		}
	}
	return TierUnknown
}

func hostMatchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if helpers.HostMatches(host, d) {
			return true
		}
	}
	return false
}

func extractDOI(url string) string {
	if m := doiRe.FindStringSubmatch(url); m != nil {
		return strings.TrimRight(m[1], "/.")
	}
	return ""
}

func extractPubMedID(url string) string {
	if m := pubmedPathRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// IsAuthority reports whether the citation URL is on the authority allow-list.
func (g *Gatherer) IsAuthority(url string) bool {
	return helpers.URLMatchesAny(url, g.lex.AuthorityDomains)
}

// SelectDeepRead picks authority URLs first, then other URLs, within the
// configured bounds. Pool order decides among candidates.
func (g *Gatherer) SelectDeepRead(pool []Citation) []Citation {
	var authority, other []Citation
	for _, c := range pool {
		if g.IsAuthority(c.URL) {
			if len(authority) < g.cfg.MaxAuthorityReads {
				authority = append(authority, c)
			}
			continue
		}
		if len(other) < g.cfg.MaxOtherReads {
			other = append(other, c)
		}
	}
	selected := append(authority, other...)
	if len(selected) > g.cfg.MaxDeepReads {
		selected = selected[:g.cfg.MaxDeepReads]
	}
	return selected
}

// ReadingEvents announces each URL of the deep-read set.
func ReadingEvents(selected []Citation) []Event {
	evs := make([]Event, 0, len(selected))
	for _, c := range selected {
		evs = append(evs, ReadingEvent(c.URL, c.Title))
	}
	return evs
}

// ExtractedBlock is the cleaned text of one deep-read source.
type ExtractedBlock struct {
	Title       string
	URL         string
	Text        string
	FromSnippet bool
}

// ExtractedContent is the ordered set of cleaned blocks for a run.
type ExtractedContent struct {
	Blocks []ExtractedBlock
}

func (e ExtractedContent) Empty() bool { return len(e.Blocks) == 0 }

// String renders every block labeled with its source.
func (e ExtractedContent) String() string {
	parts := make([]string, 0, len(e.Blocks))
	for _, b := range e.Blocks {
		parts = append(parts, helpers.FormatSourceBlock(b.Title, b.URL, b.Text))
	}
	return strings.Join(parts, "\n\n")
}

// Text joins the block bodies without source labels.
func (e ExtractedContent) Text() string {
	parts := make([]string, 0, len(e.Blocks))
	for _, b := range e.Blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}

// ReadOutcome is the result of the reading stage.
type ReadOutcome struct {
	Content      ExtractedContent
	Rejected     []RejectedSource
	CreditsError bool
	FellBack     bool
}

// Read extracts the selected URLs in one batched call. Provider failure falls
// back to the snippets of the selected citations; so does a per-URL miss.
func (g *Gatherer) Read(ctx context.Context, pool, selected []Citation) ReadOutcome {
	out := ReadOutcome{Rejected: g.rejected(pool, selected)}
	if len(selected) == 0 {
		return out
	}

	var pages map[string]ExtractedPage
	if g.extractor != nil {
		urls := make([]string, len(selected))
		for i, c := range selected {
			urls[i] = c.URL
		}
		got, err := g.extractor.Extract(ctx, urls, g.cfg.Formats)
		if err != nil {
			out.CreditsError = IsCreditsError(err)
			out.FellBack = true
			g.telemetry.RecordExtractionFallback()
			g.logger.Warn("content extraction failed, using snippets", zap.Int("urls", len(urls)), zap.Error(err))
		} else {
			pages = make(map[string]ExtractedPage, len(got))
			for _, p := range got {
				pages[p.URL] = p
			}
		}
	}

	for _, c := range selected {
		block := ExtractedBlock{Title: c.Title, URL: c.URL}
		if p, ok := pages[c.URL]; ok && p.Markdown != nil {
			text := helpers.CleanExtractedBlock(truncateRunes(*p.Markdown, g.cfg.MarkdownChars))
			block.Text = strings.TrimSpace(truncateRunes(text, g.cfg.BlockChars))
			if t := strings.TrimSpace(p.Title); t != "" {
				block.Title = t
			}
		}
		if block.Text == "" {
			block.Text = c.Snippet
			block.FromSnippet = true
		}
		if strings.TrimSpace(block.Text) == "" {
			continue
		}
		out.Content.Blocks = append(out.Content.Blocks, block)
	}
	return out
}

func (g *Gatherer) rejected(pool, selected []Citation) []RejectedSource {
	chosen := make(map[string]struct{}, len(selected))
	for _, c := range selected {
		chosen[c.URL] = struct{}{}
	}
	var out []RejectedSource
	for _, c := range pool {
		if _, ok := chosen[c.URL]; ok {
			continue
		}
		out = append(out, RejectedSource{Title: c.Title, URL: c.URL, Reason: RejectedReason})
		if len(out) == g.cfg.MaxRejected {
			break
		}
	}
	return out
}

// GatherResult is the combined output of the searching and reading stages.
type GatherResult struct {
	Citations       []Citation
	Extracted       ExtractedContent
	QueryLog        []string
	CreditsError    bool
	RejectedSources []RejectedSource
}

// Gather runs Search, SelectDeepRead and Read in sequence.
func (g *Gatherer) Gather(ctx context.Context, plan ResearchPlan) GatherResult {
	so := g.Search(ctx, plan)
	selected := g.SelectDeepRead(so.Citations)
	ro := g.Read(ctx, so.Citations, selected)
	return GatherResult{
		Citations:       so.Citations,
		Extracted:       ro.Content,
		QueryLog:        so.QueryLog,
		CreditsError:    so.CreditsError || ro.CreditsError,
		RejectedSources: ro.Rejected,
	}
}

func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
