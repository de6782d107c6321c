package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSearch struct {
	mu        sync.Mutex
	responses map[string]SearchResponse
	errs      map[string]error
	calls     []string
	opts      []SearchOptions
}

func (f *fakeSearch) Search(_ context.Context, query string, opts SearchOptions) (SearchResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if err := f.errs[query]; err != nil {
		return SearchResponse{}, err
	}
	return f.responses[query], nil
}

type fakeExtractor struct {
	pages []ExtractedPage
	err   error
	calls [][]string
}

func (f *fakeExtractor) Extract(_ context.Context, urls []string, _ []string) ([]ExtractedPage, error) {
	f.calls = append(f.calls, append([]string(nil), urls...))
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func result(title, url, snippet string) SearchResult {
	return SearchResult{Title: title, URL: url, Description: snippet, FaviconURL: "https://icons.example/" + title}
}

func strPtr(s string) *string { return &s }

func urlsOf(cs []Citation) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.URL
	}
	return out
}

func TestSearchDeduplicatesInQueryOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	plan := ResearchPlan{Queries: []string{"q1", "q2"}}
	fs := &fakeSearch{responses: map[string]SearchResponse{
		"q1": {Web: []SearchResult{
			result("A", "https://a.example/1", "first a"),
			result("B", "https://b.example/1", "first b"),
		}},
		"q2": {
			Web:  []SearchResult{result("B again", "https://b.example/1", "second b")},
			News: []SearchResult{result("C", "https://c.example/1", "news c")},
		},
	}}
	g := NewGatherer(fs, nil, DefaultGathererConfig())

	out := g.Search(context.Background(), plan)

	assert.Equal(t, []string{"https://a.example/1", "https://b.example/1", "https://c.example/1"}, urlsOf(out.Citations))
	assert.Equal(t, "first b", out.Citations[1].Snippet, "first occurrence wins")
	assert.Equal(t, "https://icons.example/B", out.Citations[1].FaviconURL)
	assert.Equal(t, []string{"q1", "q2"}, out.QueryLog)
	assert.False(t, out.CreditsError)

	require.Len(t, out.Batches, 2)
	assert.Len(t, out.Batches[1].Added, 1, "second batch only reports new sources")

	evs := out.Events()
	require.Len(t, evs, 2)
	for _, ev := range evs {
		assert.Equal(t, EventSearchResults, ev.Type)
	}

	for _, o := range fs.opts {
		assert.Equal(t, 5, o.Count)
		assert.Equal(t, "year", o.Freshness)
	}
}

func TestSearchNeverYieldsDuplicateURLs(t *testing.T) {
	var queries []string
	responses := map[string]SearchResponse{}
	for i := 0; i < 4; i++ {
		q := fmt.Sprintf("q%d", i)
		queries = append(queries, q)
		var hits []SearchResult
		for j := 0; j < 5; j++ {
			u := fmt.Sprintf("https://site%d.example/page", (i+j)%6)
			hits = append(hits, result(u, u, "s"))
		}
		responses[q] = SearchResponse{Web: hits}
	}
	g := NewGatherer(&fakeSearch{responses: responses}, nil, DefaultGathererConfig())

	out := g.Search(context.Background(), ResearchPlan{Queries: queries})

	seen := map[string]bool{}
	for _, c := range out.Citations {
		require.False(t, seen[c.URL], "duplicate %s", c.URL)
		seen[c.URL] = true
	}
	assert.Len(t, out.Citations, 6)
}

func TestSearchFailureIsolatedAndFlagsCredits(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := &fakeSearch{
		responses: map[string]SearchResponse{
			"ok": {Web: []SearchResult{result("A", "https://a.example", "a")}},
		},
		errs: map[string]error{
			"broke": &APIError{Service: "Search", Status: 402, Body: "Your credits have been used up"},
		},
	}
	g := NewGatherer(fs, nil, DefaultGathererConfig())

	out := g.Search(context.Background(), ResearchPlan{Queries: []string{"broke", "ok"}})

	assert.True(t, out.CreditsError)
	assert.Len(t, out.Citations, 1)
	require.Len(t, out.Batches, 2)
	assert.Error(t, out.Batches[0].Err)
	assert.Empty(t, out.Batches[0].Added)
}

func TestSearchOtherFailureDoesNotFlagCredits(t *testing.T) {
	fs := &fakeSearch{errs: map[string]error{"q": errors.New("connection reset")}}
	g := NewGatherer(fs, nil, DefaultGathererConfig())

	out := g.Search(context.Background(), ResearchPlan{Queries: []string{"q"}})

	assert.False(t, out.CreditsError)
	assert.Empty(t, out.Citations)
	assert.Empty(t, out.Events())
}

func TestSearchCleansSnippets(t *testing.T) {
	fs := &fakeSearch{responses: map[string]SearchResponse{
		"q": {Web: []SearchResult{{
			Title:       "<b>Magnesium</b> facts",
			URL:         "https://x.example/m",
			Description: "unused description",
			Snippets:    []string{"**Magnesium** supports [muscle](https://x.example/muscle) function. https://x.example/raw"},
		}}},
	}}
	g := NewGatherer(fs, nil, DefaultGathererConfig())

	out := g.Search(context.Background(), ResearchPlan{Queries: []string{"q"}})

	require.Len(t, out.Citations, 1)
	assert.Equal(t, "Magnesium facts", out.Citations[0].Title)
	assert.Equal(t, "Magnesium supports muscle function.", out.Citations[0].Snippet)
}

func TestClassifyTier(t *testing.T) {
	cases := []struct {
		name string
		c    Citation
		want SourceTier
	}{
		{"fda domain", Citation{URL: "https://www.fda.gov/drugs/label", Title: "Randomized trial"}, TierFDALabel},
		{"dailymed", Citation{URL: "https://dailymed.nlm.nih.gov/dailymed/x"}, TierFDALabel},
		{"pubmed", Citation{URL: "https://pubmed.ncbi.nlm.nih.gov/123456/", Title: "A cohort"}, TierRCT},
		{"rct title", Citation{URL: "https://journal.example/a", Title: "A randomized controlled trial of zinc"}, TierRCT},
		{"meta title", Citation{URL: "https://journal.example/b", Title: "Vitamin D: a systematic review"}, TierMetaAnalysis},
		{"cochrane", Citation{URL: "https://www.cochranelibrary.com/cdsr/x", Title: "Zinc for colds"}, TierMetaAnalysis},
		{"mayo", Citation{URL: "https://www.mayoclinic.org/drugs", Title: "Lisinopril"}, TierObservational},
		{"cohort snippet", Citation{URL: "https://news.example/c", Title: "News", Snippet: "A large cohort found"}, TierObservational},
		{"blog domain", Citation{URL: "https://someone.medium.com/post", Title: "My magnesium story"}, TierBlog},
		{"blog path", Citation{URL: "https://shop.example/blog/zinc", Title: "Zinc"}, TierBlog},
		{"unknown", Citation{URL: "https://shop.example/zinc", Title: "Buy zinc"}, TierUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyTier(tc.c, nil))
		})
	}
}

func TestNewCitationExtractsIdentifiers(t *testing.T) {
	g := NewGatherer(&fakeSearch{}, nil, DefaultGathererConfig())

	pm := g.NewCitation("T", "https://pubmed.ncbi.nlm.nih.gov/31234567/", "", "")
	assert.Equal(t, "31234567", pm.PubMedID)
	assert.Equal(t, TierRCT, pm.SourceTier)

	doi := g.NewCitation("T", "https://doi.org/10.1016/j.nut.2020.110123?via=x", "", "")
	assert.Equal(t, "10.1016/j.nut.2020.110123", doi.DOI)
	assert.Empty(t, doi.PubMedID)
}

func TestSelectDeepReadBounds(t *testing.T) {
	g := NewGatherer(&fakeSearch{}, nil, DefaultGathererConfig())
	pool := []Citation{
		{URL: "https://blog.example/1"},
		{URL: "https://www.nih.gov/a"},
		{URL: "https://other.example/2"},
		{URL: "https://www.mayoclinic.org/b"},
		{URL: "https://www.webmd.com/c"},
	}

	got := g.SelectDeepRead(pool)

	assert.Equal(t, []string{"https://www.nih.gov/a", "https://www.mayoclinic.org/b", "https://blog.example/1"}, urlsOf(got))
}

func TestSelectDeepReadWithoutAuthority(t *testing.T) {
	g := NewGatherer(&fakeSearch{}, nil, DefaultGathererConfig())
	pool := []Citation{{URL: "https://a.example"}, {URL: "https://b.example"}}

	assert.Equal(t, []string{"https://a.example"}, urlsOf(g.SelectDeepRead(pool)))
	assert.Empty(t, g.SelectDeepRead(nil))
}

func TestReadCleansAndFallsBackPerURL(t *testing.T) {
	long := strings.Repeat("Magnesium supports normal muscle and nerve function in adults.\n", 80)
	ex := &fakeExtractor{pages: []ExtractedPage{
		{URL: "https://www.nih.gov/a", Title: "NIH Magnesium", Markdown: strPtr("Skip to main content\n\n" + long)},
		{URL: "https://other.example/b", Markdown: nil},
	}}
	g := NewGatherer(&fakeSearch{}, ex, DefaultGathererConfig())
	selected := []Citation{
		{Title: "NIH", URL: "https://www.nih.gov/a", Snippet: "nih snippet"},
		{Title: "Other", URL: "https://other.example/b", Snippet: "other snippet"},
	}

	out := g.Read(context.Background(), selected, selected)

	require.Len(t, ex.calls, 1, "extraction is one batched call")
	assert.Len(t, ex.calls[0], 2)
	require.Len(t, out.Content.Blocks, 2)

	first := out.Content.Blocks[0]
	assert.Equal(t, "NIH Magnesium", first.Title)
	assert.False(t, first.FromSnippet)
	assert.NotContains(t, first.Text, "Skip to main content")
	assert.LessOrEqual(t, len([]rune(first.Text)), 2000)

	second := out.Content.Blocks[1]
	assert.True(t, second.FromSnippet)
	assert.Equal(t, "other snippet", second.Text)

	assert.False(t, out.FellBack)
	assert.Empty(t, out.Rejected)
	assert.Contains(t, out.Content.String(), "### Source: NIH Magnesium (https://www.nih.gov/a)")
}

func TestReadProviderFailureUsesSnippets(t *testing.T) {
	ex := &fakeExtractor{err: &APIError{Service: "Contents", Status: 402, Body: "credits"}}
	g := NewGatherer(&fakeSearch{}, ex, DefaultGathererConfig())
	selected := []Citation{{Title: "A", URL: "https://a.example", Snippet: "a snippet"}}

	out := g.Read(context.Background(), selected, selected)

	assert.True(t, out.FellBack)
	assert.True(t, out.CreditsError)
	require.Len(t, out.Content.Blocks, 1)
	assert.Equal(t, "a snippet", out.Content.Blocks[0].Text)
}

func TestReadWithoutExtractorUsesSnippets(t *testing.T) {
	g := NewGatherer(&fakeSearch{}, nil, DefaultGathererConfig())
	selected := []Citation{
		{Title: "A", URL: "https://a.example", Snippet: "a snippet"},
		{Title: "B", URL: "https://b.example"},
	}

	out := g.Read(context.Background(), selected, selected)

	require.Len(t, out.Content.Blocks, 1, "blocks without any text are dropped")
	assert.Equal(t, "a snippet", out.Content.Text())
}

func TestRejectedSourcesCapped(t *testing.T) {
	g := NewGatherer(&fakeSearch{}, nil, DefaultGathererConfig())
	var pool []Citation
	for i := 0; i < 10; i++ {
		pool = append(pool, Citation{Title: fmt.Sprint(i), URL: fmt.Sprintf("https://s%d.example", i)})
	}
	selected := g.SelectDeepRead(pool)

	out := g.Read(context.Background(), pool, selected)

	require.Len(t, out.Rejected, 5)
	for _, r := range out.Rejected {
		assert.Equal(t, RejectedReason, r.Reason)
		assert.NotEqual(t, selected[0].URL, r.URL)
	}
}

func TestGatherCombinesStages(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := &fakeSearch{responses: map[string]SearchResponse{
		"q1": {Web: []SearchResult{
			result("NIH", "https://ods.od.nih.gov/factsheets/Magnesium", "Magnesium is a nutrient."),
			result("Shop", "https://shop.example/mg", "Buy now."),
		}},
	}}
	ex := &fakeExtractor{err: errors.New("timeout")}
	g := NewGatherer(fs, ex, DefaultGathererConfig())

	out := g.Gather(context.Background(), ResearchPlan{Queries: []string{"q1"}})

	assert.Len(t, out.Citations, 2)
	assert.Equal(t, []string{"q1"}, out.QueryLog)
	assert.False(t, out.CreditsError)
	assert.Len(t, out.Extracted.Blocks, 2)
	assert.Empty(t, out.RejectedSources)
}

func TestRankCitationsIsStableByTier(t *testing.T) {
	in := []Citation{
		{URL: "blog", SourceTier: TierBlog},
		{URL: "obs1", SourceTier: TierObservational},
		{URL: "none"},
		{URL: "fda", SourceTier: TierFDALabel},
		{URL: "obs2", SourceTier: TierObservational},
	}
	out := RankCitations(in)
	assert.Equal(t, []string{"fda", "obs1", "obs2", "blog", "none"}, urlsOf(out))
	assert.Equal(t, "blog", in[0].URL, "input is not reordered")

	var many []Citation
	for i := 0; i < 12; i++ {
		many = append(many, Citation{URL: fmt.Sprintf("https://blog.example/%d", i), SourceTier: TierBlog})
	}
	many = append(many, Citation{URL: "https://www.fda.gov/label", SourceTier: TierFDALabel})
	report := BuildReport(ReportInput{Question: "q", Citations: many, GeneratedAt: fixedNow})
	require.Len(t, report.Citations, maxReportCitations)
	assert.Equal(t, "https://www.fda.gov/label", report.Citations[0].URL, "ranking happens before the cap")
}

func TestDedupeCitations(t *testing.T) {
	in := []Citation{{URL: "a", Title: "1"}, {URL: "b"}, {URL: "a", Title: "2"}, {URL: ""}}
	out := DedupeCitations(in)
	assert.Equal(t, []string{"a", "b"}, urlsOf(out))
	assert.Equal(t, "1", out[0].Title)
}
