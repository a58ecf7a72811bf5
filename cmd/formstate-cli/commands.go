package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	formstate "github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/formspec"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/renderers/tui"
)

// errInvalidValues is returned by check when the values do not validate.
var errInvalidValues = errors.New("values are invalid")

type globalOptions struct {
	logLevel string
	format   string
	output   string
	logger   *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "formstate-cli",
		Short:         "Fill and validate form definitions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)
	flags.StringVarP(&opts.format, "format", "f", "json", "output format (json, form, pretty)")
	flags.StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")

	root.AddCommand(newRunCommand(opts), newCheckCommand(opts), newVersionCommand())
	return root
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <form.yaml>",
		Short: "Prompt for every field and print the submitted values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := formspec.LoadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			session, err := tui.New(def,
				tui.WithPromptDriver(tui.NewSurveyDriver(cmd.ErrOrStderr())),
				tui.WithOutputFormat(opts.format),
				tui.WithLogger(opts.logger),
				tui.WithTheme(tui.Theme{InfoPrefix: "i ", ErrorPrefix: "x "}),
			)
			if err != nil {
				return err
			}
			out, err := session.Run(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd, opts.output, out)
		},
	}
}

func newCheckCommand(opts *globalOptions) *cobra.Command {
	var valuesPath string
	cmd := &cobra.Command{
		Use:   "check <form.yaml>",
		Short: "Validate a values file against a form and print the submitted values",
		Long: `Check fills the form with the values file in field order, submits it and
prints the submitted values. Invalid fields are listed on stderr and the
command fails.`,
		Example: `  formstate-cli check signup.yaml --values ada.yaml
  cat ada.json | formstate-cli check signup.yaml --values - --format pretty`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := formspec.LoadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			values, err := readValues(cmd, valuesPath)
			if err != nil {
				return err
			}
			out, err := check(cmd.Context(), def, values, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return writeOutput(cmd, opts.output, out)
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "YAML or JSON values file, - for stdin")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func check(ctx context.Context, def *formspec.Definition, values map[string]any, opts *globalOptions, stderr io.Writer) ([]byte, error) {
	enc, err := render.DefaultRegistry().Get(opts.format)
	if err != nil {
		return nil, err
	}

	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	form, err := formstate.New(def, controller.WithLogger(logger), controller.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer form.Close()

	submitted, issues, err := form.Submit(ctx, values)
	if err != nil {
		return nil, err
	}
	if submitted == nil {
		for _, issue := range issues {
			fmt.Fprintf(stderr, "%s: %s\n", issue.Key, issue.Message)
		}
		return nil, fmt.Errorf("%w: %d field(s)", errInvalidValues, len(issues))
	}

	nested, err := render.Nest(submitted)
	if err != nil {
		return nil, err
	}
	return enc.Encode(nested)
}

func readValues(cmd *cobra.Command, path string) (map[string]any, error) {
	if path == "-" {
		return formspec.LoadValues(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open values: %w", err)
	}
	defer f.Close()
	return formspec.LoadValues(f)
}

func writeOutput(cmd *cobra.Command, path string, out []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Values written to %s\n", path)
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "formstate-cli %s (commit: %s)\n", version, commit)
		},
	}
}
