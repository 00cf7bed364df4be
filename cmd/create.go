package cmd

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursecraft/internal/app"
	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/screen"
	"github.com/abhisek/coursecraft/internal/screens/onboarding"
	"github.com/abhisek/coursecraft/internal/screens/studio"
	"github.com/abhisek/coursecraft/internal/screens/welcome"
	"github.com/abhisek/coursecraft/internal/store"
	"github.com/abhisek/coursecraft/internal/workflow"
)

// localClientID identifies the terminal user to the store.
const localClientID = "local"

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a course interactively in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(cmd)
	},
}

// runCreate builds the dependencies and launches the terminal UI.
func runCreate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out, err := logFile()
	if err != nil {
		return err
	}
	defer out.Close()
	log := newLogger(cfg, out)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	orch, err := newOrchestrator(ctx, cfg, st, ratelimit.Unlimited{}, log)
	if err != nil {
		return err
	}

	var (
		mu        sync.Mutex
		workflows []*workflow.Workflow
	)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, wf := range workflows {
			wf.Close()
		}
	}()

	opts := studio.Options{
		Save: func(fp course.Fingerprint, c course.Content) (string, error) {
			return st.CourseRepo().Save(context.WithoutCancel(ctx), store.CourseRecord{
				ClientID:    localClientID,
				Fingerprint: fp,
				Content:     c,
			})
		},
	}
	var startStudio func(fp course.Fingerprint) screen.Screen
	startStudio = func(fp course.Fingerprint) screen.Screen {
		wf := workflow.New(orch, localClientID,
			workflow.WithCelebrationDelay(cfg.Workflow.CelebrationDelay),
			workflow.WithLogger(log),
		)
		mu.Lock()
		workflows = append(workflows, wf)
		mu.Unlock()
		return studio.New(wf, fp, opts)
	}
	opts.Restart = func(fp course.Fingerprint) screen.Screen {
		return onboarding.NewWith(fp, startStudio)
	}

	first := welcome.New(func() screen.Screen { return onboarding.New(startStudio) })
	return app.Run(ctx, first)
}
