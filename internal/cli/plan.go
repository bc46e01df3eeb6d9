package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/maestro/internal/core"
)

var planJSON bool

type planCandidate struct {
	Role    string `json:"role"`
	Score   int    `json:"score"`
	Capable bool   `json:"capable"`
}

type planEntry struct {
	Task       string          `json:"task"`
	Status     string          `json:"status"`
	Handler    string          `json:"handler,omitempty"`
	Score      int             `json:"score"`
	Error      string          `json:"error,omitempty"`
	Candidates []planCandidate `json:"candidates"`
}

var planCmd = &cobra.Command{
	Use:   "plan <manifest>",
	Short: "Show which handler each pending task would be assigned to",
	Long: `Parse a manifest and score every registered handler against each pending
task without executing anything.

Tasks no handler can take are listed as unassigned; they would be recorded as
failed results in a real run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Registry == nil {
			return fmt.Errorf("handler registry not initialized")
		}

		m, err := core.ReadManifest(args[0])
		if err != nil {
			return fmt.Errorf("loading manifest: %w", err)
		}

		plan := buildPlan(Registry, m)
		out := cmd.OutOrStdout()
		if planJSON {
			data, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting plan as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		printPlan(out, m, plan)
		return nil
	},
}

func buildPlan(registry *core.HandlerRegistry, m *core.Manifest) []planEntry {
	plan := []planEntry{}
	for _, t := range core.PendingTasks(m.Tasks) {
		entry := planEntry{Task: t.Title, Status: string(t.Status), Candidates: []planCandidate{}}
		for _, a := range core.RankHandlers(registry, *t) {
			if a.Score == 0 && !a.Capable {
				continue
			}
			entry.Candidates = append(entry.Candidates, planCandidate{
				Role:    a.Handler.Role(),
				Score:   a.Score,
				Capable: a.Capable,
			})
		}
		h, score, err := core.SelectHandler(registry, *t)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Handler = h.Role()
			entry.Score = score
		}
		plan = append(plan, entry)
	}
	return plan
}

func printPlan(out io.Writer, m *core.Manifest, plan []planEntry) {
	fmt.Fprintln(out, titleStyle.Render(" Maestro Plan "))
	fmt.Fprintf(out, "\n  %s: %d task(s), %d pending, %d dropped\n\n",
		m.Path, len(m.Tasks), len(plan), len(m.Dropped))

	unassigned := 0
	for i, e := range plan {
		fmt.Fprintf(out, "  %d. %s\n", i+1, e.Task)
		if e.Error != "" {
			unassigned++
			fmt.Fprintf(out, "     %s\n", statusFailed.Render("no suitable handler"))
			continue
		}
		fmt.Fprintf(out, "     %s %s\n", statusDone.Render("→ "+e.Handler), helpStyle.Render(fmt.Sprintf("(score %d)", e.Score)))
		for _, c := range e.Candidates {
			if c.Role == e.Handler {
				continue
			}
			fmt.Fprintf(out, "       %s\n", helpStyle.Render(fmt.Sprintf("%s: %d", c.Role, c.Score)))
		}
	}

	for _, d := range m.Dropped {
		fmt.Fprintf(out, "\n  %s %s", severityMedium.Render("dropped:"), d)
	}
	if len(m.Dropped) > 0 {
		fmt.Fprintln(out)
	}
	if unassigned > 0 {
		fmt.Fprintf(out, "\n  %d task(s) have no suitable handler.\n", unassigned)
	}
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output the plan as JSON")
	rootCmd.AddCommand(planCmd)
}
