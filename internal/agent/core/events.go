package core

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// EventType is the discriminant of a progress event.
type EventType string

const (
	EventPlanning      EventType = "planning"
	EventSearching     EventType = "searching"
	EventSearchResults EventType = "search_results"
	EventReading       EventType = "reading"
	EventReasoning     EventType = "reasoning"
	EventAgentRole     EventType = "agent_role"
	EventSafetyRating  EventType = "safety_rating"
	EventEvidenceLevel EventType = "evidence_level"
	EventReportChunk   EventType = "report_chunk"
	EventCitations     EventType = "citations"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// Event is one typed progress update. Only the fields belonging to Type are
// serialized.
type Event struct {
	Type     EventType       `json:"type"`
	Tasks    []string        `json:"tasks,omitempty"`
	Query    string          `json:"query,omitempty"`
	Sources  []Citation      `json:"sources,omitempty"`
	URL      string          `json:"url,omitempty"`
	Title    string          `json:"title,omitempty"`
	Thought  string          `json:"thought,omitempty"`
	Role     string          `json:"role,omitempty"`
	Rating   SafetyLevel     `json:"rating,omitempty"`
	Level    EvidenceQuality `json:"level,omitempty"`
	Markdown string          `json:"markdown,omitempty"`
	Report   *HealthReport   `json:"report,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// MarshalJSON writes the discriminant and the payload of the event type.
// Slice payloads are always present, even when empty.
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": e.Type}
	switch e.Type {
	case EventPlanning:
		out["tasks"] = nonNil(e.Tasks)
	case EventSearching:
		out["query"] = e.Query
	case EventSearchResults, EventCitations:
		out["sources"] = nonNil(e.Sources)
	case EventReading:
		out["url"] = e.URL
		out["title"] = e.Title
	case EventReasoning:
		out["thought"] = e.Thought
	case EventAgentRole:
		out["role"] = e.Role
	case EventSafetyRating:
		out["rating"] = e.Rating
	case EventEvidenceLevel:
		out["level"] = e.Level
	case EventReportChunk:
		out["markdown"] = e.Markdown
	case EventComplete:
		out["report"] = e.Report
	case EventError:
		out["message"] = e.Message
	}
	return json.Marshal(out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func PlanningEvent(tasks []string) Event { return Event{Type: EventPlanning, Tasks: tasks} }
func SearchingEvent(query string) Event  { return Event{Type: EventSearching, Query: query} }
func SearchResultsEvent(sources []Citation) Event {
	return Event{Type: EventSearchResults, Sources: sources}
}
func ReadingEvent(url, title string) Event   { return Event{Type: EventReading, URL: url, Title: title} }
func ReasoningEvent(thought string) Event    { return Event{Type: EventReasoning, Thought: thought} }
func AgentRoleEvent(role string) Event       { return Event{Type: EventAgentRole, Role: role} }
func SafetyEvent(rating SafetyLevel) Event   { return Event{Type: EventSafetyRating, Rating: rating} }
func EvidenceEvent(l EvidenceQuality) Event  { return Event{Type: EventEvidenceLevel, Level: l} }
func ReportChunkEvent(markdown string) Event { return Event{Type: EventReportChunk, Markdown: markdown} }
func CitationsEvent(sources []Citation) Event {
	return Event{Type: EventCitations, Sources: sources}
}
func CompleteEvent(report HealthReport) Event { return Event{Type: EventComplete, Report: &report} }
func ErrorEvent(message string) Event         { return Event{Type: EventError, Message: message} }

// Sink receives the events of one run. Close is called exactly once by the
// orchestrator when the run ends, whatever the outcome.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
	Close() error
}

// JSONLinesSink writes each event as one JSON document per line.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLinesSink returns a sink writing to w. The writer is not closed.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Emit(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(ev)
}

func (s *JSONLinesSink) Close() error { return nil }

// SinkFunc adapts a function to a Sink with a no-op Close.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }
func (f SinkFunc) Close() error                             { return nil }
