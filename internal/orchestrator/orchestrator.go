// Package orchestrator runs one generation phase end to end: rate limit,
// one model call, repair and validation. It never retries; that decision
// belongs to whoever called it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/failure"
	"github.com/abhisek/coursecraft/internal/generation"
	"github.com/abhisek/coursecraft/internal/llm"
	"github.com/abhisek/coursecraft/internal/prompt"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/repair"
	"github.com/abhisek/coursecraft/internal/telemetry"
)

// State is a step of the per-phase state machine.
type State string

const (
	StateIdle         State = "idle"
	StateRateLimiting State = "rate-limiting"
	StateGenerating   State = "generating"
	StateRepairing    State = "repairing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// PhaseOptions are the model parameters for one phase.
type PhaseOptions struct {
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Options holds per-phase parameters.
type Options struct {
	Outline PhaseOptions `yaml:"outline"`
	Content PhaseOptions `yaml:"content"`
}

// DefaultOptions returns the production phase parameters.
func DefaultOptions() Options {
	return Options{
		Outline: PhaseOptions{MaxTokens: 2048, Temperature: 0.7, Timeout: 60 * time.Second},
		Content: PhaseOptions{MaxTokens: 16000, Temperature: 0.7, Timeout: 180 * time.Second},
	}
}

func (o Options) forPhase(p course.Phase) PhaseOptions {
	if p == course.PhaseContent {
		return o.Content
	}
	return o.Outline
}

// Request is one phase run.
type Request struct {
	ClientID string
	Phase    course.Phase
	Prompt   string

	// Purpose labels the upstream call; defaults to the phase name.
	Purpose string
}

// Attempt records everything that happened during one RunPhase call.
type Attempt struct {
	Phase    course.Phase
	Prompt   string
	Trace    []State
	Decision ratelimit.Decision
	Raw      string
	Outline  *course.Outline
	Content  *course.Content

	// Err is a *failure.Failure, or the caller's context error when the run
	// was abandoned.
	Err      error
	Duration time.Duration
}

// State returns the state the attempt ended in.
func (a *Attempt) State() State {
	return a.Trace[len(a.Trace)-1]
}

// Failure returns the classified failure, or nil when the attempt
// succeeded or was cancelled.
func (a *Attempt) Failure() *failure.Failure {
	f, _ := failure.As(a.Err)
	return f
}

// Cancelled reports whether the caller abandoned the attempt.
func (a *Attempt) Cancelled() bool {
	return errors.Is(a.Err, context.Canceled)
}

func (a *Attempt) to(s State) { a.Trace = append(a.Trace, s) }

func (a *Attempt) fail(err error) *Attempt {
	a.Err = err
	a.to(StateFailed)
	return a
}

// Orchestrator sequences the limiter, the generation client and the
// repairer. Safe for concurrent use across clients.
type Orchestrator struct {
	limiter ratelimit.Limiter
	gen     generation.Generator
	opts    Options
	log     zerolog.Logger
}

// New creates an Orchestrator. All dependencies are injected.
func New(limiter ratelimit.Limiter, gen generation.Generator, opts Options, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{limiter: limiter, gen: gen, opts: opts, log: log}
}

// RunPhase runs one phase. It always returns an attempt ending in
// StateDone or StateFailed.
func (o *Orchestrator) RunPhase(ctx context.Context, req Request) *Attempt {
	start := time.Now()
	a := &Attempt{Phase: req.Phase, Prompt: req.Prompt, Trace: []State{StateIdle}}

	ctx, span := telemetry.StartPhaseSpan(ctx, string(req.Phase), req.ClientID)
	defer func() {
		a.Duration = time.Since(start)
		telemetry.EndSpan(span, a.Err)
		o.logAttempt(req, a)
	}()

	op, err := operation(req.Phase)
	if err != nil {
		return a.fail(failure.Internal(err))
	}

	a.to(StateRateLimiting)
	a.Decision = o.limiter.Check(ctx, req.ClientID, op)
	if !a.Decision.Allowed {
		return a.fail(failure.RateLimited(a.Decision.RetryAfter))
	}

	a.to(StateGenerating)
	po := o.opts.forPhase(req.Phase)
	purpose := req.Purpose
	if purpose == "" {
		purpose = string(req.Phase)
	}
	raw, err := o.gen.Generate(ctx, req.Prompt, generation.Options{
		System:      prompt.SystemPrompt,
		MaxTokens:   po.MaxTokens,
		Temperature: po.Temperature,
		Timeout:     po.Timeout,
		Purpose:     purpose,
	})
	if err != nil {
		if _, ok := failure.As(err); !ok && ctx.Err() == nil {
			err = failure.Internal(err)
		}
		return a.fail(err)
	}
	a.Raw = raw

	a.to(StateRepairing)
	res := repair.Repair(req.Phase, raw)
	if !res.OK() {
		return a.fail(res.Err)
	}
	a.Outline, a.Content = res.Outline, res.Content
	a.to(StateDone)
	return a
}

// GenerateOutline compiles and runs the outline phase. A non-nil rev with
// feedback makes this a revision.
func (o *Orchestrator) GenerateOutline(ctx context.Context, clientID string, fp course.Fingerprint, rev *prompt.Revision) (*course.Outline, ratelimit.Decision, error) {
	purpose := llm.PurposeOutline
	if rev.Active() {
		purpose = llm.PurposeRevise
	}
	a := o.RunPhase(ctx, Request{
		ClientID: clientID,
		Phase:    course.PhaseOutline,
		Prompt:   prompt.CompileOutline(fp, rev),
		Purpose:  purpose,
	})
	if a.Err != nil {
		return nil, a.Decision, a.Err
	}
	return a.Outline, a.Decision, nil
}

// GenerateContent compiles and runs the content phase for an approved
// outline.
func (o *Orchestrator) GenerateContent(ctx context.Context, clientID string, fp course.Fingerprint, approved course.Outline) (*course.Content, ratelimit.Decision, error) {
	a := o.RunPhase(ctx, Request{
		ClientID: clientID,
		Phase:    course.PhaseContent,
		Prompt:   prompt.CompileContent(fp, approved),
		Purpose:  llm.PurposeContent,
	})
	if a.Err != nil {
		return nil, a.Decision, a.Err
	}
	return a.Content, a.Decision, nil
}

func (o *Orchestrator) logAttempt(req Request, a *Attempt) {
	ev := o.log.Info()
	if f := a.Failure(); f != nil {
		ev = o.log.Warn().Str("failure", string(f.Kind)).Str("detail", f.Error())
	} else if a.Err != nil {
		ev = o.log.Info().Str("cancelled", a.Err.Error())
	}
	ev = ev.Str("phase", string(req.Phase)).
		Str("client_id", req.ClientID).
		Str("state", string(a.State())).
		Dur("duration", a.Duration)
	if a.Content != nil {
		ev = ev.Int("modules", len(a.Content.Modules)).Int("diagrams", a.Content.DiagramBlocks())
	} else if a.Outline != nil {
		ev = ev.Int("modules", len(a.Outline.Modules)).Int("lessons", a.Outline.LessonCount())
	}
	ev.Msg("generation phase finished")
}

func operation(p course.Phase) (string, error) {
	switch p {
	case course.PhaseOutline:
		return ratelimit.OpGenerateOutline, nil
	case course.PhaseContent:
		return ratelimit.OpGenerateCourse, nil
	}
	return "", fmt.Errorf("unknown phase %q", p)
}
