package ports

import "context"

// Child generation bounds
const (
	MinGenerateCount     = 1
	MaxGenerateCount     = 5
	DefaultGenerateCount = 2
)

// SummaryEntry is one node of the subtree sent for summarization.
// Depth is relative to the topic node.
type SummaryEntry struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer,omitempty"`
	Depth    int     `json:"depth"`
}

// SummaryRequest is the payload of a summarize call
type SummaryRequest struct {
	Topic   string         `json:"topic"`
	Entries []SummaryEntry `json:"entries"`
}

// GenerateRequest is the payload of a child generation call
type GenerateRequest struct {
	Topic  string `json:"topic"`
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

// NormalizedCount clamps the requested count into the accepted range.
// Zero means the default.
func (r GenerateRequest) NormalizedCount() int {
	switch {
	case r.Count == 0:
		return DefaultGenerateCount
	case r.Count < MinGenerateCount:
		return MinGenerateCount
	case r.Count > MaxGenerateCount:
		return MaxGenerateCount
	default:
		return r.Count
	}
}

// AIService is the AI collaborator: three independent request/response pairs
type AIService interface {
	Ask(ctx context.Context, question string) (string, error)
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
	GenerateChildren(ctx context.Context, req GenerateRequest) ([]string, error)
}

// Answerer answers a single question. Server-side model providers implement it.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}
