package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/schema"
)

func newValidateCommand(g *globals) *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "validate <form>",
		Short: "Validate a form document and, optionally, a data record",
		Long: `Validate a form document.

Without --data the document itself is checked: it must parse and every key
must be unique. With --data the record is loaded into the form (conditionals,
logic and calculated values are settled first) and every visible field is
validated against its effective rules.`,
		Example: `  # Check a document
  formengine validate signup.json

  # Validate a submission record
  formengine validate signup.json --data submission.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			if dups := schema.DuplicateKeys(doc.Components); len(dups) > 0 {
				return fmt.Errorf("duplicate keys: %s", strings.Join(dups, ", "))
			}
			g.logger.Info().Str("path", args[0]).Int("nodes", schema.Count(doc.Components)).Msg("document parsed")
			if dataPath == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
				return nil
			}

			f, _, err := g.openForm(args[0], dataPath)
			if err != nil {
				return err
			}
			errs := f.Validate()
			if g.jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), errs); err != nil {
					return err
				}
			} else {
				for _, e := range errs.All() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", e.Key, e.Message, e.Type)
				}
			}
			if !errs.Empty() {
				return errors.New("data is invalid")
			}
			if !g.jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", dataPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "data record to validate (JSON or YAML)")

	return cmd
}
