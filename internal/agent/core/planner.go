package core

import (
	"regexp"
	"strings"
)

// intentRule maps a question pattern to a plan template. Rules are evaluated
// in order and the first match wins.
type intentRule struct {
	queryType QueryType
	pattern   *regexp.Regexp
}

type planTemplate struct {
	tasks    []string
	suffixes []string
}

var intentRules = []intentRule{
	{QueryTypeInteraction, regexp.MustCompile(`(?i)interact|combin|together with|mix|safe to take .+ with|take .+ and`)},
	{QueryTypeSupplement, regexp.MustCompile(`(?i)supplement|vitamin|mineral|herb|ashwagandha|turmeric|magnesium|zinc|omega|creatine|melatonin|probiotic|collagen|biotin`)},
	{QueryTypeWellness, regexp.MustCompile(`(?i)intermittent fasting|cold (shower|plunge|exposure)|keto|paleo|detox|cleanse|diet|fasting|sauna|grounding|seed oil`)},
}

var planTemplates = map[QueryType]planTemplate{
	QueryTypeInteraction: {
		tasks:    []string{"Searching for interaction data", "Checking clinical evidence", "Analyzing safety profiles"},
		suffixes: []string{"drug interaction safety", "clinical evidence mechanism"},
	},
	QueryTypeSupplement: {
		tasks:    []string{"Researching clinical evidence", "Checking dosage and safety", "Evaluating efficacy"},
		suffixes: []string{"clinical evidence research", "safety side effects dosage"},
	},
	QueryTypeWellness: {
		tasks:    []string{"Finding scientific studies", "Checking expert consensus", "Evaluating claims"},
		suffixes: []string{"scientific evidence study", "benefits risks research"},
	},
	QueryTypeGeneral: {
		tasks:    []string{"Searching medical literature", "Finding expert guidelines", "Gathering evidence"},
		suffixes: []string{"medical research evidence", "health guidelines"},
	},
}

// DetectQueryType returns the intent of a question. Unmatched input is GENERAL.
func DetectQueryType(question string) QueryType {
	for _, r := range intentRules {
		if r.pattern.MatchString(question) {
			return r.queryType
		}
	}
	return QueryTypeGeneral
}

// Classify builds the research plan for a question. It is pure and never fails.
func Classify(question string) ResearchPlan {
	q := strings.TrimSpace(question)
	qt := DetectQueryType(q)
	tpl := planTemplates[qt]

	queries := make([]string, 0, len(tpl.suffixes))
	for _, s := range tpl.suffixes {
		queries = append(queries, strings.TrimSpace(q+" "+s))
	}
	return ResearchPlan{
		QueryType: qt,
		Tasks:     append([]string(nil), tpl.tasks...),
		Queries:   queries,
	}
}
