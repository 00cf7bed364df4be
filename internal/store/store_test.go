package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/coursecraft/internal/course"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrateCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range Tables {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table.Name).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table.Name, err)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first, err := s1.seq.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()
	second, err := s2.seq.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if second != first+1 {
		t.Fatalf("sequence restarted after reopen: %d then %d", first, second)
	}
}

func TestSequenceCounterMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.seq.Next(ctx)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 20 {
		t.Fatalf("expected 20 distinct sequence numbers, got %d", len(seen))
	}
	for i := int64(1); i <= 20; i++ {
		if !seen[i] {
			t.Fatalf("sequence %d missing", i)
		}
	}
}

func TestLLMEventsAppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude-haiku-4-5", Purpose: "outline", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true, RequestBody: "[user]\nhi", ResponseBody: "{}"},
		{Provider: "anthropic", Model: "claude-haiku-4-5", Purpose: "content", InputTokens: 300, OutputTokens: 900, LatencyMs: 800, Success: true},
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Purpose: "content", InputTokens: 10, LatencyMs: 400, Success: false, ErrorMessage: "timeout"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Sequence <= all[1].Sequence {
		t.Fatal("expected newest first")
	}
	if all[0].ErrorMessage != "timeout" || all[0].Success {
		t.Fatalf("unexpected newest event: %+v", all[0])
	}
	if all[2].Timestamp.IsZero() {
		t.Fatal("expected timestamp to round-trip")
	}

	content, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "content", Limit: 1})
	if err != nil {
		t.Fatalf("query by purpose: %v", err)
	}
	if len(content) != 1 || content[0].Model != "claude-sonnet-4-5" {
		t.Fatalf("unexpected filtered events: %+v", content)
	}

	after, err := repo.QueryLLMEvents(ctx, QueryOpts{After: all[1].Sequence})
	if err != nil {
		t.Fatalf("query after: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("expected 1 event after sequence %d, got %d", all[1].Sequence, len(after))
	}

	got, err := repo.GetLLMEvent(ctx, all[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.RequestBody != "[user]\nhi" || got.ResponseBody != "{}" {
		t.Fatalf("unexpected event: %+v", got)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing event, got %v, %v", missing, err)
	}
}

func TestLLMUsageAggregates(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, e := range []LLMRequestEventData{
		{Model: "a", Purpose: "outline", InputTokens: 10, OutputTokens: 5, LatencyMs: 100},
		{Model: "a", Purpose: "outline", InputTokens: 20, OutputTokens: 5, LatencyMs: 300},
		{Model: "b", Purpose: "content", InputTokens: 1, OutputTokens: 2, LatencyMs: 50},
	} {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("expected 2 purposes, got %d", len(byPurpose))
	}
	outline := byPurpose[1]
	if outline.Purpose != "outline" || outline.Calls != 2 || outline.InputTokens != 30 || outline.AvgLatencyMs != 200 {
		t.Fatalf("unexpected outline usage: %+v", outline)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 || byModel[0].Model != "a" || byModel[0].OutputTokens != 10 {
		t.Fatalf("unexpected model usage: %+v", byModel)
	}
}

func testCourse() course.Content {
	return course.Content{
		Title:         "Kubernetes in Practice",
		EstimatedTime: "2 hours",
		Modules: []course.Module{
			{Title: "Workloads", Description: "d", Lessons: []course.Lesson{
				{Title: "Pods", Content: "A pod.", Quiz: &course.Quiz{Question: "q", Answer: "a"}},
				{Title: "Deployments", Content: "A deployment."},
			}},
		},
		NextSteps: []string{"Ship it"},
	}
}

func TestCourseSaveGetList(t *testing.T) {
	s := openTestStore(t)
	repo := s.CourseRepo()
	ctx := context.Background()

	fp := course.Fingerprint{Topic: "Kubernetes", LearningStyle: course.StyleVisual}
	id, err := repo.Save(ctx, CourseRecord{ClientID: "c1", Fingerprint: fp, Content: testCourse()})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content.Modules[0].Lessons[0].Quiz.Answer != "a" {
		t.Fatalf("course did not round-trip: %+v", got.Content)
	}
	if got.Fingerprint.Topic != "Kubernetes" || got.ClientID != "c1" {
		t.Fatalf("unexpected record: %+v", got)
	}

	later := time.Now().Add(time.Minute)
	if _, err := repo.Save(ctx, CourseRecord{ID: "fixed", Fingerprint: fp, Content: testCourse(), CreatedAt: later}); err != nil {
		t.Fatalf("save second: %v", err)
	}

	list, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "fixed" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[1].Lessons != 2 || list[1].Modules != 1 || list[1].Topic != "Kubernetes" {
		t.Fatalf("unexpected summary: %+v", list[1])
	}

	if _, err := repo.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
