package commands

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/renderers/views"
	"github.com/goliatone/go-formengine/pkg/schema"
)

func newExportCommand(g *globals) *cobra.Command {
	var (
		dataPath  string
		withViews bool
		output    string
	)

	cmd := &cobra.Command{
		Use:   "export <form>",
		Short: "Print the normalised document or its effective views",
		Long: `Export re-encodes a form document as indented JSON. With --views the
form is settled against --data and each node is printed as a renderer
would see it: overrides applied, content sanitized, visibility computed.
Errors and wizard state are included.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, doc, err := g.openForm(args[0], dataPath)
			if err != nil {
				return err
			}
			if withViews {
				raw, err := views.New().Render(cmd.Context(), f)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, raw)
			}
			doc.Components = f.Export()
			raw, err := schema.Marshal(doc)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, raw)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "data record used for --views (JSON or YAML)")
	cmd.Flags().BoolVar(&withViews, "views", false, "print effective views instead of the document")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
