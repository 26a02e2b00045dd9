package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/openapi"
	"github.com/goliatone/go-formengine/pkg/orchestrator"
	"github.com/goliatone/go-formengine/pkg/schema"
)

func newImportCommand(g *globals) *cobra.Command {
	var (
		operationID string
		list        bool
		output      string
		validate    bool
		allowHTTP   bool
		presetPath  string
	)

	cmd := &cobra.Command{
		Use:   "import-openapi <document>",
		Short: "Build a form from an OpenAPI request body",
		Long: `Import converts the request body schema of one operation into a form
document. Properties become fields; required, length, range, pattern and
enum keywords become validation rules and options.`,
		Example: `  # List importable operations
  formengine import-openapi api.yaml --list

  # Import one of them
  formengine import-openapi https://example.com/openapi.json --http -O createPet -o pet.json

  # Relabel and tighten the imported fields
  formengine import-openapi api.yaml -O createPet --preset pet.preset.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openapi.DetectSource(args[0])
			if err != nil {
				return err
			}
			var loaderOpts []openapi.LoaderOption
			loaderOpts = append(loaderOpts, openapi.WithLoaderLogger(g.logger))
			if allowHTTP {
				loaderOpts = append(loaderOpts, openapi.WithHTTPFallback(0))
			}
			opts := []orchestrator.Option{
				orchestrator.WithLogger(g.logger),
				orchestrator.WithLoader(openapi.NewLoader(loaderOpts...)),
				orchestrator.WithImporter(openapi.NewImporter(openapi.WithLogger(g.logger), openapi.WithValidation(validate))),
			}
			if presetPath != "" {
				data, err := os.ReadFile(presetPath)
				if err != nil {
					return fmt.Errorf("read preset: %w", err)
				}
				preset, err := orchestrator.NewPresetTransformer(data)
				if err != nil {
					return err
				}
				opts = append(opts, orchestrator.WithTransformers(preset))
			}
			orch := orchestrator.New(opts...)
			req := orchestrator.Request{Source: src, OperationID: operationID}

			if list {
				ops, err := orch.Operations(cmd.Context(), req)
				if err != nil {
					return err
				}
				if g.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), ops)
				}
				for _, op := range ops {
					fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-6s %s\n", op.ID, op.Method, op.Path)
				}
				return nil
			}

			form, err := orch.Document(cmd.Context(), req)
			if err != nil {
				return err
			}
			raw, err := schema.Marshal(form)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, raw)
		},
	}

	cmd.Flags().StringVarP(&operationID, "operation", "O", "", "operation id (optional when only one operation has a body)")
	cmd.Flags().BoolVar(&list, "list", false, "list operations with a request body")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the OpenAPI document before importing")
	cmd.Flags().BoolVar(&allowHTTP, "http", false, "allow fetching the document over HTTP")
	cmd.Flags().StringVar(&presetPath, "preset", "", "preset file patching the imported fields (JSON or YAML)")

	return cmd
}
