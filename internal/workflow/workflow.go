// Package workflow drives one learner session from onboarding to a finished
// course. It owns retry, dismiss and cancel, and guarantees that at most one
// generation phase is in flight at a time.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/failure"
	"github.com/abhisek/coursecraft/internal/prompt"
	"github.com/abhisek/coursecraft/internal/ratelimit"
)

// Step is a user-visible workflow state.
type Step string

const (
	StepOnboarding        Step = "onboarding"
	StepGeneratingOutline Step = "generating-outline"
	StepOutlinePreview    Step = "outline-preview"
	StepGeneratingFull    Step = "generating-full"
	StepCelebration       Step = "celebration"
	StepPreview           Step = "preview"
	StepError             Step = "error"
)

// DefaultCelebrationDelay is how long the celebration step lasts.
const DefaultCelebrationDelay = 2500 * time.Millisecond

var (
	ErrBusy              = errors.New("workflow: a generation is already in flight")
	ErrInvalidTransition = errors.New("workflow: operation not allowed in the current step")
	ErrEmptyFeedback     = errors.New("workflow: feedback is required to request changes")
	ErrClosed            = errors.New("workflow: closed")
)

// Generator runs the two generation phases. *orchestrator.Orchestrator
// satisfies it.
type Generator interface {
	GenerateOutline(ctx context.Context, clientID string, fp course.Fingerprint, rev *prompt.Revision) (*course.Outline, ratelimit.Decision, error)
	GenerateContent(ctx context.Context, clientID string, fp course.Fingerprint, approved course.Outline) (*course.Content, ratelimit.Decision, error)
}

// Snapshot is a read-only view of the workflow.
type Snapshot struct {
	Step        Step
	Fingerprint *course.Fingerprint
	Outline     *course.Outline
	Content     *course.Content

	// IsRegenerating is set while a revision of an existing outline runs.
	IsRegenerating bool
	Feedback       string

	// Failure and ResumeStep are set in StepError.
	Failure    *failure.Failure
	ResumeStep Step

	Pending   bool
	RateLimit ratelimit.Decision
}

// phaseRun is everything needed to launch a phase again.
type phaseRun struct {
	phase    course.Phase
	rev      *prompt.Revision
	approved course.Outline
	resume   Step
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithCelebrationDelay overrides DefaultCelebrationDelay.
func WithCelebrationDelay(d time.Duration) Option {
	return func(w *Workflow) { w.celebrationDelay = d }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Workflow) { w.log = log }
}

// Workflow is one learner session. All methods are safe for concurrent use.
type Workflow struct {
	gen              Generator
	clientID         string
	celebrationDelay time.Duration
	log              zerolog.Logger

	mu       sync.Mutex
	notifyMu sync.Mutex

	step           Step
	fp             *course.Fingerprint
	outline        *course.Outline
	content        *course.Content
	isRegenerating bool
	feedback       string
	failure        *failure.Failure
	resumeStep     Step
	decision       ratelimit.Decision

	flight   uint64
	inFlight bool
	cancel   context.CancelFunc
	last     *phaseRun
	timer    *time.Timer
	closed   bool

	subs    map[int]func(Snapshot)
	nextSub int
	wg      sync.WaitGroup
}

// New creates a workflow in StepOnboarding. clientID is passed to the rate
// limiter.
func New(gen Generator, clientID string, opts ...Option) *Workflow {
	w := &Workflow{
		gen:              gen,
		clientID:         clientID,
		celebrationDelay: DefaultCelebrationDelay,
		log:              zerolog.Nop(),
		step:             StepOnboarding,
		subs:             make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start accepts a completed fingerprint and launches the outline phase.
func (w *Workflow) Start(fp course.Fingerprint) error {
	if err := fp.Validate(); err != nil {
		return err
	}
	fp = fp.Normalize(time.Now())

	w.mu.Lock()
	if err := w.guard(StepOnboarding); err != nil {
		w.mu.Unlock()
		return err
	}
	w.fp = &fp
	w.outline, w.content = nil, nil
	w.launch(&phaseRun{phase: course.PhaseOutline, resume: StepOnboarding})
	return w.commit()
}

// Approve accepts the current outline and launches the content phase.
func (w *Workflow) Approve() error {
	w.mu.Lock()
	if err := w.guard(StepOutlinePreview); err != nil {
		w.mu.Unlock()
		return err
	}
	w.launch(&phaseRun{phase: course.PhaseContent, approved: w.outline.Clone(), resume: StepOutlinePreview})
	return w.commit()
}

// RequestChanges launches a revision of the current outline. The current
// outline stays in place until a revised one arrives.
func (w *Workflow) RequestChanges(feedback string) error {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return ErrEmptyFeedback
	}

	w.mu.Lock()
	if err := w.guard(StepOutlinePreview); err != nil {
		w.mu.Unlock()
		return err
	}
	w.feedback = feedback
	w.isRegenerating = true
	w.launch(&phaseRun{
		phase:  course.PhaseOutline,
		rev:    &prompt.Revision{PreviousOutline: w.outline.Clone(), Feedback: feedback},
		resume: StepOutlinePreview,
	})
	return w.commit()
}

// Retry re-runs the failed phase with exactly the same inputs.
func (w *Workflow) Retry() error {
	w.mu.Lock()
	if err := w.guard(StepError); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.last == nil {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	w.isRegenerating = w.last.rev != nil
	w.launch(w.last)
	return w.commit()
}

// Dismiss leaves the error step and returns to where the failed phase was
// launched from, without generating anything.
func (w *Workflow) Dismiss() error {
	w.mu.Lock()
	if err := w.guard(StepError); err != nil {
		w.mu.Unlock()
		return err
	}
	w.step = w.resumeStep
	w.failure = nil
	w.isRegenerating = false
	return w.commit()
}

// Cancel aborts the in-flight phase and returns to where it was launched
// from. A response that arrives afterwards is discarded.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if !w.inFlight {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	w.abort()
	w.step = w.last.resume
	w.isRegenerating = false
	return w.commit()
}

// Reset discards everything and returns to onboarding. Not allowed while a
// phase is in flight.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.inFlight {
		w.mu.Unlock()
		return ErrBusy
	}
	w.stopTimer()
	w.step = StepOnboarding
	w.fp, w.outline, w.content = nil, nil, nil
	w.failure, w.last = nil, nil
	w.feedback, w.isRegenerating = "", false
	return w.commit()
}

// Snapshot returns the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

// Subscribe registers fn to receive a snapshot after every change.
// Callbacks run on the goroutine that made the change and must not call
// back into the workflow synchronously.
func (w *Workflow) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Close cancels any in-flight phase and waits for it to unwind.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.inFlight {
		w.abort()
	}
	w.stopTimer()
	w.mu.Unlock()
	w.wg.Wait()
}

// guard checks that a phase may be launched from want. Caller holds mu.
func (w *Workflow) guard(want Step) error {
	switch {
	case w.closed:
		return ErrClosed
	case w.inFlight:
		return ErrBusy
	case w.step != want:
		return fmt.Errorf("%w: in %s", ErrInvalidTransition, w.step)
	}
	return nil
}

// launch starts run in the background. Caller holds mu.
func (w *Workflow) launch(run *phaseRun) {
	ctx, cancel := context.WithCancel(context.Background())
	w.flight++
	id := w.flight
	w.inFlight = true
	w.cancel = cancel
	w.last = run
	w.failure = nil
	if run.phase == course.PhaseContent {
		w.step = StepGeneratingFull
	} else {
		w.step = StepGeneratingOutline
	}
	fp := w.fp.Clone()

	w.log.Debug().Uint64("flight", id).Str("phase", string(run.phase)).Bool("revision", run.rev != nil).Msg("phase launched")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		outline, content, decision, err := w.supervise(ctx, fp, run)
		w.complete(id, run, outline, content, decision, err)
	}()
}

// supervise runs one phase and turns panics and unclassified errors into
// internal failures.
func (w *Workflow) supervise(ctx context.Context, fp course.Fingerprint, run *phaseRun) (outline *course.Outline, content *course.Content, decision ratelimit.Decision, err error) {
	defer func() {
		if p := recover(); p != nil {
			w.log.Error().Interface("panic", p).Str("phase", string(run.phase)).Msg("generation phase panicked")
			outline, content = nil, nil
			err = failure.Internal(fmt.Errorf("phase %s panicked: %v", run.phase, p))
		}
	}()

	switch run.phase {
	case course.PhaseOutline:
		outline, decision, err = w.gen.GenerateOutline(ctx, w.clientID, fp, run.rev)
	case course.PhaseContent:
		content, decision, err = w.gen.GenerateContent(ctx, w.clientID, fp, run.approved)
	default:
		err = failure.Internal(fmt.Errorf("unknown phase %q", run.phase))
	}
	if err == nil && outline == nil && content == nil {
		err = failure.Internal(errors.New("phase returned no document"))
	}
	return outline, content, decision, err
}

func (w *Workflow) complete(id uint64, run *phaseRun, outline *course.Outline, content *course.Content, decision ratelimit.Decision, err error) {
	w.mu.Lock()
	if w.closed || id != w.flight {
		w.mu.Unlock()
		w.log.Debug().Uint64("flight", id).Msg("discarding late phase result")
		return
	}
	w.inFlight = false
	w.cancel = nil
	w.decision = decision

	if err != nil {
		w.failure = failure.From(err)
		w.resumeStep = run.resume
		w.step = StepError
		w.isRegenerating = false
		w.commitLocked()
		return
	}

	switch run.phase {
	case course.PhaseOutline:
		w.outline = outline
		w.feedback = ""
		w.isRegenerating = false
		w.step = StepOutlinePreview
	case course.PhaseContent:
		w.content = content
		w.step = StepCelebration
		w.timer = time.AfterFunc(w.celebrationDelay, func() { w.finishCelebration(id) })
	}
	w.commitLocked()
}

func (w *Workflow) finishCelebration(id uint64) {
	w.mu.Lock()
	if w.closed || id != w.flight || w.step != StepCelebration {
		w.mu.Unlock()
		return
	}
	w.step = StepPreview
	w.timer = nil
	w.commitLocked()
}

// abort cancels the in-flight phase and invalidates its result. Caller
// holds mu.
func (w *Workflow) abort() {
	if w.cancel != nil {
		w.cancel()
	}
	w.flight++
	w.inFlight = false
	w.cancel = nil
}

func (w *Workflow) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// commit publishes the new state and releases mu. Always returns nil so
// operations can end with "return w.commit()".
func (w *Workflow) commit() error {
	w.commitLocked()
	return nil
}

// commitLocked takes a snapshot under mu, releases mu and notifies
// subscribers in order.
func (w *Workflow) commitLocked() {
	snap := w.snapshot()
	subs := make([]func(Snapshot), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.notifyMu.Lock()
	w.mu.Unlock()
	defer w.notifyMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (w *Workflow) snapshot() Snapshot {
	s := Snapshot{
		Step:           w.step,
		IsRegenerating: w.isRegenerating,
		Feedback:       w.feedback,
		Failure:        w.failure,
		Pending:        w.inFlight,
		RateLimit:      w.decision,
		Content:        w.content,
	}
	if w.step == StepError {
		s.ResumeStep = w.resumeStep
	}
	if w.fp != nil {
		fp := w.fp.Clone()
		s.Fingerprint = &fp
	}
	if w.outline != nil {
		o := w.outline.Clone()
		s.Outline = &o
	}
	return s
}
