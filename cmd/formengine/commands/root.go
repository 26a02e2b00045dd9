package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/form"
	"github.com/goliatone/go-formengine/pkg/schema"
)

// globals holds the persistent flags and the state derived from them.
type globals struct {
	configPath string
	logLevel   string
	jsonOutput bool

	logger zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	root := newRootCommand(version, commit, buildDate, os.Stdout, os.Stderr)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func newRootCommand(version, commit, buildDate string, stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr, logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "formengine",
		Short: "Validate, run and import schema-driven forms",
		Long: `formengine works with form documents: trees of components carrying
validation rules, conditionals, logic and calculated values.

Commands:
  - validate a document (and optionally a data record) against its rules
  - run a form interactively in the terminal
  - export the normalised document or its effective views
  - import a form from an OpenAPI request body`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := zerolog.ParseLevel(strings.ToLower(g.logLevel))
			if err != nil {
				return fmt.Errorf("invalid --log-level %q", g.logLevel)
			}
			g.logger = zerolog.New(zerolog.ConsoleWriter{Out: g.stderr}).
				Level(level).
				With().Timestamp().Logger()
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "form config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newValidateCommand(g))
	rootCmd.AddCommand(newRunCommand(g))
	rootCmd.AddCommand(newExportCommand(g))
	rootCmd.AddCommand(newImportCommand(g))
	rootCmd.AddCommand(newImportJSONSchemaCommand(g))

	return rootCmd
}

// config loads --config, or the defaults when unset. Wizard documents turn
// the wizard on.
func (g *globals) config(doc schema.Document) (form.Config, error) {
	cfg := form.DefaultConfig()
	if g.configPath != "" {
		loaded, err := form.LoadConfig(g.configPath)
		if err != nil {
			return form.Config{}, err
		}
		cfg = loaded
	}
	if doc.Display == schema.DisplayWizard {
		cfg.Wizard.Enabled = true
	}
	return cfg, nil
}

// openForm loads the document at path, overlays the optional data file and
// builds a live form.
func (g *globals) openForm(path, dataPath string) (*form.Form, schema.Document, error) {
	doc, err := schema.LoadFile(path)
	if err != nil {
		return nil, schema.Document{}, err
	}
	cfg, err := g.config(doc)
	if err != nil {
		return nil, schema.Document{}, err
	}
	f := form.New(doc.Components, form.WithConfig(cfg), form.WithLogger(g.logger))
	if dataPath != "" {
		data, err := readData(dataPath)
		if err != nil {
			return nil, schema.Document{}, err
		}
		f.Load(data)
	}
	g.logger.Debug().Str("form", f.ID()).Str("path", path).Int("nodes", schema.Count(doc.Components)).Msg("form opened")
	return f, doc, nil
}
