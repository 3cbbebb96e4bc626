package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/lifecycle/internal/cli/ui"
	"github.com/conduit-lang/lifecycle/internal/hooks"
	"github.com/conduit-lang/lifecycle/internal/lifecycle"
)

var noColor bool

func init() {
	hooksCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	checkCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List all registered lifecycle hooks",
	Run: func(cmd *cobra.Command, args []string) {
		types := lifecycle.DefaultRegistry.Types()
		if len(types) == 0 {
			fmt.Println("No types registered.")
			return
		}

		for _, t := range types {
			if t.Table().Len() == 0 {
				continue
			}

			ui.Header(os.Stdout, fmt.Sprintf("Type: %s", t.Name()), noColor)
			table := ui.NewTable(os.Stdout,
				[]string{"Method", "Trigger", "When", "Condition", "Priority", "Async", "On Commit"},
				noColor)

			for _, trigger := range hooks.Triggers {
				for _, d := range t.Table().Hooks(trigger) {
					table.AddRow(
						d.MethodName,
						trigger.String(),
						orDash(d.When),
						orDash(truncate(d.Condition.String(), 32)),
						strconv.Itoa(d.Priority),
						yesNo(d.Async),
						yesNo(d.OnCommit),
					)
				}
			}
			table.Render()
			fmt.Println()
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate hook field paths against type schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		diags := lifecycle.DefaultRegistry.Check()
		if len(diags) == 0 {
			fmt.Println("All hook field paths resolve.")
			return nil
		}

		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d)
		}
		return fmt.Errorf("%d invalid hook field path(s)", len(diags))
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
