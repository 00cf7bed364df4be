package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursecraft/internal/store"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Browse generated courses",
}

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved courses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withStore(cmd, func(ctx context.Context, st *store.Store, out io.Writer) error {
			courses, err := st.CourseRepo().List(ctx, limit)
			if err != nil {
				return err
			}
			if len(courses) == 0 {
				fmt.Fprintln(out, "No courses yet. Run `coursecraft create` to make one.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-16s  %-24s  %7s  %7s\n", "ID", "Created", "Topic", "Modules", "Lessons")
			fmt.Fprintln(out, strings.Repeat("─", 98))
			for _, c := range courses {
				fmt.Fprintf(out, "%-36s  %-16s  %-24s  %7d  %7d\n",
					c.ID, c.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(c.Topic, 24), c.Modules, c.Lessons)
			}
			return nil
		})
	},
}

var coursesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved course as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withStore(cmd, func(ctx context.Context, st *store.Store, out io.Writer) error {
			rec, err := st.CourseRepo().Get(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("course %s not found", args[0])
			}
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec.Content)
			}
			_, err = io.WriteString(out, rec.Content.Markdown())
			return err
		})
	},
}

func init() {
	coursesListCmd.Flags().IntP("limit", "n", 20, "Number of courses to show")
	coursesShowCmd.Flags().Bool("json", false, "Print the course JSON instead of markdown")

	coursesCmd.AddCommand(coursesListCmd)
	coursesCmd.AddCommand(coursesShowCmd)
}
