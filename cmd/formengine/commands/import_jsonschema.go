package commands

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/jsonschema"
	"github.com/goliatone/go-formengine/pkg/openapi"
	"github.com/goliatone/go-formengine/pkg/schema"
)

func newImportJSONSchemaCommand(g *globals) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "import-jsonschema <schema>",
		Short: "Build a form from a JSON Schema document",
		Long: `Import converts an object schema into a form document. Local $defs and
definitions references are resolved; keywords map to fields and rules the
same way import-openapi maps request bodies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer := jsonschema.NewImporter(
				jsonschema.WithLogger(g.logger),
				jsonschema.WithImporter(openapi.NewImporter(openapi.WithLogger(g.logger))),
			)
			doc, err := importer.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			raw, err := schema.Marshal(doc)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, raw)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
