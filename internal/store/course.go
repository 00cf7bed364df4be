package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// SQLCourseRepo implements CourseRepo.
type SQLCourseRepo struct {
	drv *entsql.Driver
}

var _ CourseRepo = (*SQLCourseRepo)(nil)

// Save stores rec and returns its id, generating one when rec.ID is empty.
func (r *SQLCourseRepo) Save(ctx context.Context, rec CourseRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	fp, err := json.Marshal(rec.Fingerprint)
	if err != nil {
		return "", fmt.Errorf("marshal fingerprint: %w", err)
	}
	content, err := json.Marshal(rec.Content)
	if err != nil {
		return "", fmt.Errorf("marshal course: %w", err)
	}

	query, args := builder().Insert(coursesTable).
		Columns("id", "client_id", "topic", "title", "module_count", "lesson_count", "fingerprint", "content", "created_at").
		Values(rec.ID, rec.ClientID, rec.Fingerprint.Topic, rec.Content.Title,
			len(rec.Content.Modules), rec.Content.LessonCount(),
			string(fp), string(content), formatTime(rec.CreatedAt)).
		Query()
	if _, err := r.drv.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("save course: %w", err)
	}
	return rec.ID, nil
}

// Get returns the course with id, or ErrNotFound.
func (r *SQLCourseRepo) Get(ctx context.Context, id string) (*CourseRecord, error) {
	query, args := builder().Select("id", "client_id", "fingerprint", "content", "created_at").
		From(builder().Table(coursesTable)).
		Where(entsql.EQ("id", id)).
		Query()
	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get course: %w", err)
		}
		return nil, ErrNotFound
	}
	var (
		rec         CourseRecord
		fp, content string
		created     string
	)
	if err := rows.Scan(&rec.ID, &rec.ClientID, &fp, &content, &created); err != nil {
		return nil, fmt.Errorf("scan course: %w", err)
	}
	if err := json.Unmarshal([]byte(fp), &rec.Fingerprint); err != nil {
		return nil, fmt.Errorf("decode fingerprint: %w", err)
	}
	if err := json.Unmarshal([]byte(content), &rec.Content); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	rec.CreatedAt = parseTime(created)
	return &rec, nil
}

// List returns the most recent courses first.
func (r *SQLCourseRepo) List(ctx context.Context, limit int) ([]CourseSummary, error) {
	sel := builder().Select("id", "topic", "title", "module_count", "lesson_count", "created_at").
		From(builder().Table(coursesTable)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var out []CourseSummary
	for rows.Next() {
		var (
			s       CourseSummary
			created string
		)
		if err := rows.Scan(&s.ID, &s.Topic, &s.Title, &s.Modules, &s.Lessons, &created); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		s.CreatedAt = parseTime(created)
		out = append(out, s)
	}
	return out, rows.Err()
}
