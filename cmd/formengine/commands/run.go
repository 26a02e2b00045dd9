package commands

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/renderers/tui"
)

func newRunCommand(g *globals) *cobra.Command {
	var (
		dataPath string
		format   string
		output   string
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "run <form>",
		Short: "Fill in a form interactively in the terminal",
		Long: `Prompt for every visible field of a form, reacting to conditionals and
logic as answers arrive. Wizard documents are walked page by page. The
submitted data is printed when the form validates.`,
		Example: `  formengine run signup.json
  formengine run signup.json --data draft.json --format form -o payload.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _, err := g.openForm(args[0], dataPath)
			if err != nil {
				return err
			}
			renderer := tui.New(
				tui.WithOutput(cmd.ErrOrStderr()),
				tui.WithOutputFormat(tui.OutputFormat(format)),
				tui.WithMaxAttempts(attempts),
				tui.WithLogger(g.logger),
			)
			payload, err := renderer.Render(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, payload)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "prefill record (JSON or YAML)")
	cmd.Flags().StringVarP(&format, "format", "f", string(tui.OutputFormatJSON), "output format (json, form, pretty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().IntVar(&attempts, "attempts", tui.DefaultMaxAttempts, "correction rounds before giving up")

	return cmd
}
