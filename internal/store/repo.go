package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/coursecraft/internal/course"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// LLMRequestEventData captures one upstream model call.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	StopReason   string
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLMRequestEventData.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates calls sharing a purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates calls served by one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// CourseRecord is a validated course handed off for storage.
type CourseRecord struct {
	ID          string
	ClientID    string
	Fingerprint course.Fingerprint
	Content     course.Content
	CreatedAt   time.Time
}

// CourseSummary is a listing row.
type CourseSummary struct {
	ID        string
	Topic     string
	Title     string
	Modules   int
	Lessons   int
	CreatedAt time.Time
}

// CourseRepo persists generated courses.
type CourseRepo interface {
	// Save stores the course verbatim and returns its id.
	Save(ctx context.Context, rec CourseRecord) (string, error)
}
