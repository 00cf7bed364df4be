package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/store"
	"github.com/abhisek/coursecraft/internal/workflow"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a course without the interactive UI",
	Long: "Generate drafts an outline for the given answers, applies each --feedback\n" +
		"as a revision round, prints the outline and, unless --outline-only is set,\n" +
		"approves it and writes the full course as markdown.",
	Example: "  coursecraft generate --topic Kubernetes --style visual --knowledge beginner \\\n" +
		"    --goal career --time 1-week --format examples-first --challenge easy-to-hard \\\n" +
		"    --feedback \"more hands-on labs\" --out k8s.md",
	RunE: runGenerate,
}

var fingerprintFlags = []struct {
	flag, field, usage string
}{
	{"topic", "topic", "What to learn"},
	{"style", "learningStyle", "Learning style"},
	{"knowledge", "priorKnowledge", "Prior knowledge"},
	{"goal", "learningGoal", "Learning goal"},
	{"time", "timeCommitment", "Time commitment"},
	{"format", "contentFormat", "Content format"},
	{"challenge", "challengePreference", "Challenge preference"},
	{"context", "context", "Optional free-text context"},
}

func init() {
	for _, f := range fingerprintFlags {
		generateCmd.Flags().String(f.flag, "", f.usage)
	}
	generateCmd.Flags().StringArray("feedback", nil, "Request outline changes (repeatable, applied in order)")
	generateCmd.Flags().Bool("outline-only", false, "Stop after printing the outline")
	generateCmd.Flags().StringP("out", "o", "", "Write the course to this file instead of stdout")
	generateCmd.Flags().Bool("json", false, "Write the course as JSON instead of markdown")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var fp course.Fingerprint
	for _, f := range fingerprintFlags {
		v, _ := cmd.Flags().GetString(f.flag)
		fp.Set(f.field, v)
	}
	if err := fp.Validate(); err != nil {
		var fe *course.FieldError
		if errors.As(err, &fe) {
			for _, f := range fingerprintFlags {
				if f.field == fe.Field {
					return fmt.Errorf("--%s is required", f.flag)
				}
			}
		}
		return err
	}
	feedback, _ := cmd.Flags().GetStringArray("feedback")
	outlineOnly, _ := cmd.Flags().GetBool("outline-only")
	outPath, _ := cmd.Flags().GetString("out")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stderr)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	orch, err := newOrchestrator(ctx, cfg, st, ratelimit.Unlimited{}, log)
	if err != nil {
		return err
	}

	wf := workflow.New(orch, localClientID, workflow.WithCelebrationDelay(0), workflow.WithLogger(log))
	defer wf.Close()
	r := newRunner(wf)
	defer r.stop()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Designing an outline for %q…\n", fp.Topic)
	snap, err := r.do(ctx, func() error { return wf.Start(fp) })
	if err != nil {
		return err
	}
	for _, fb := range feedback {
		fmt.Fprintf(stderr, "Revising: %s\n", fb)
		if snap, err = r.do(ctx, func() error { return wf.RequestChanges(fb) }); err != nil {
			return err
		}
	}

	stdout := cmd.OutOrStdout()
	fmt.Fprintln(stdout, snap.Outline.Markdown())
	if outlineOnly {
		return nil
	}

	fmt.Fprintf(stderr, "Writing %d lessons…\n", snap.Outline.LessonCount())
	if snap, err = r.do(ctx, wf.Approve); err != nil {
		return err
	}

	id, err := st.CourseRepo().Save(context.WithoutCancel(ctx), store.CourseRecord{
		ClientID:    localClientID,
		Fingerprint: *snap.Fingerprint,
		Content:     *snap.Content,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to store generated course")
	} else {
		fmt.Fprintf(stderr, "Saved as %s\n", id)
	}

	var out io.Writer = stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Content)
	}
	_, err = io.WriteString(out, snap.Content.Markdown())
	return err
}

// runner performs one workflow operation at a time and waits for the
// workflow to settle.
type runner struct {
	wf     *workflow.Workflow
	signal chan struct{}
	stop   func()
}

func newRunner(wf *workflow.Workflow) *runner {
	r := &runner{wf: wf, signal: make(chan struct{}, 1)}
	r.stop = wf.Subscribe(func(workflow.Snapshot) {
		select {
		case r.signal <- struct{}{}:
		default:
		}
	})
	return r
}

// do runs op and returns the settled snapshot. A failed phase is returned
// as its failure.
func (r *runner) do(ctx context.Context, op func() error) (workflow.Snapshot, error) {
	if err := op(); err != nil {
		return workflow.Snapshot{}, err
	}
	for {
		snap := r.wf.Snapshot()
		if settled(snap) {
			if snap.Step == workflow.StepError {
				return snap, fmt.Errorf("%s: %w", snap.Failure.UserMessage(), snap.Failure)
			}
			return snap, nil
		}
		select {
		case <-r.signal:
		case <-time.After(time.Second):
		case <-ctx.Done():
			_ = r.wf.Cancel()
			return snap, ctx.Err()
		}
	}
}

func settled(s workflow.Snapshot) bool {
	if s.Pending {
		return false
	}
	switch s.Step {
	case workflow.StepOutlinePreview, workflow.StepPreview, workflow.StepError, workflow.StepOnboarding:
		return true
	}
	return false
}
