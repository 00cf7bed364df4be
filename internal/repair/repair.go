// Package repair turns loosely structured model output into a validated
// course document or a classified failure.
//
// The pipeline is fixed: trim, strip code fences, slice from the first '{'
// to the last '}', remove trailing commas, parse, then validate against the
// phase's shape. No other rewriting is attempted.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/failure"
)

var errNoObject = errors.New("no JSON object found")

// Result holds exactly one of a validated document or a failure.
type Result struct {
	Outline *course.Outline
	Content *course.Content
	Err     *failure.Failure
}

// OK reports whether a document was produced.
func (r Result) OK() bool { return r.Err == nil }

// Repair extracts and validates a document for phase from raw. It never
// panics: any unexpected fault is reported as a parse failure.
func Repair(phase course.Phase, raw string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Err: failure.ParseFailure(Excerpt(raw), fmt.Errorf("repair panicked: %v", p))}
		}
	}()

	switch phase {
	case course.PhaseOutline:
		o, err := Outline(raw)
		if err != nil {
			return Result{Err: failure.From(err)}
		}
		return Result{Outline: o}
	case course.PhaseContent:
		c, err := Content(raw)
		if err != nil {
			return Result{Err: failure.From(err)}
		}
		return Result{Content: c}
	default:
		return Result{Err: failure.Internal(fmt.Errorf("unknown phase %q", phase))}
	}
}

// Outline repairs raw into a validated outline. Errors are *failure.Failure.
func Outline(raw string) (*course.Outline, error) {
	var o course.Outline
	if err := decode(raw, outlineSchema, &o); err != nil {
		return nil, err
	}
	if reason := outlineViolation(&o); reason != "" {
		return nil, failure.SchemaInvalid(reason)
	}
	return &o, nil
}

// Content repairs raw into a validated course. Errors are *failure.Failure.
func Content(raw string) (*course.Content, error) {
	var c course.Content
	if err := decode(raw, contentSchema, &c); err != nil {
		return nil, err
	}
	if reason := contentViolation(&c); reason != "" {
		return nil, failure.SchemaInvalid(reason)
	}
	return &c, nil
}

// CheckOutline applies the structural outline rules to an already decoded
// outline, such as one a client sends back for approval. It returns the
// first violation, or "" when the outline is usable.
func CheckOutline(o course.Outline) string {
	return outlineViolation(&o)
}

// Extract applies the textual steps of the pipeline and returns the JSON
// candidate that would be parsed.
func Extract(raw string) (string, error) {
	obj, ok := sliceObject(stripFences(raw))
	if !ok {
		return "", errNoObject
	}
	return RemoveTrailingCommas(obj), nil
}

func decode(raw string, schema *documentSchema, dst any) error {
	candidate, err := Extract(raw)
	if err != nil {
		return failure.ParseFailure(Excerpt(raw), err)
	}

	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return failure.ParseFailure(Excerpt(raw), err)
	}

	reason, err := checkTypes(schema, doc)
	if err != nil {
		return failure.Internal(fmt.Errorf("validate %s: %w", schema.Name, err))
	}
	if reason != "" {
		return failure.SchemaInvalid(reason)
	}

	if err := json.Unmarshal([]byte(candidate), dst); err != nil {
		// Types were already checked, so this only trips on shapes the
		// schema does not describe.
		return failure.SchemaInvalid(err.Error())
	}
	return nil
}
