package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lumenlauncher/lumen/internal/errors"
	"github.com/lumenlauncher/lumen/internal/match"
)

var highlightStyle = lipgloss.NewStyle().Bold(true).Underline(true)

// NewQueryCmd creates the one-shot query command.
func NewQueryCmd() *cobra.Command {
	var paths []string
	var showScores bool

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a single query and print the ranked matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, err := buildEngine(ctx, paths)
			if err != nil {
				return err
			}
			defer eng.close()

			const streamID = "cli"
			results := eng.dispatcher.Results(streamID)

			handle, err := eng.dispatcher.Submit(streamID, args[0])
			if err != nil {
				return err
			}

			select {
			case res := <-results:
				printResults(cmd, res.Matches, showScores)
				return nil
			case <-handle.Done():
				if err := handle.Err(); err != nil {
					if errors.IsRetryable(err) {
						return fmt.Errorf("query failed (retryable): %w", err)
					}
					return err
				}
				// Completed: the delivery was buffered before the
				// session finished.
				res := <-results
				printResults(cmd, res.Matches, showScores)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	cmd.Flags().StringSliceVar(&paths, "path", nil, "Additional directories to scan")
	cmd.Flags().BoolVar(&showScores, "scores", false, "Print match scores")

	return cmd
}

func printResults(cmd *cobra.Command, matches []match.Scored, showScores bool) {
	if len(matches) == 0 {
		cmd.Println("no matches")
		return
	}
	for _, m := range matches {
		line := highlighted(m)
		if showScores {
			line = fmt.Sprintf("%4d  %s", m.Score, line)
		}
		cmd.Println(line)
	}
}

// highlighted renders the label with matched spans emphasized. Spans
// are positions in the normalized label; when normalization preserved
// the rune count (the common case for catalog file names) they can be
// applied to the display label directly, otherwise the label is shown
// plain.
func highlighted(m match.Scored) string {
	runes := []rune(m.Label)
	if len(m.Spans) == 0 || len(runes) != m.LabelLen {
		return m.Label
	}

	var b strings.Builder
	next := 0
	for _, sp := range m.Spans {
		if sp.Start < next || sp.Start+sp.Len > len(runes) {
			return m.Label
		}
		b.WriteString(string(runes[next:sp.Start]))
		b.WriteString(highlightStyle.Render(string(runes[sp.Start : sp.Start+sp.Len])))
		next = sp.Start + sp.Len
	}
	b.WriteString(string(runes[next:]))
	return b.String()
}
