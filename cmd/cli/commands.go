package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/budget-report/internal/app"
	"github.com/dvloznov/budget-report/internal/config"
	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	timeout    time.Duration
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}

	cmd := &cobra.Command{
		Use:           "budget-report",
		Short:         "Generate and deliver monthly budget reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides log.level)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: console or json (overrides log.format)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall timeout for the run")

	cmd.AddCommand(newSendCmd(opts))
	cmd.AddCommand(newRenderCmd(opts))
	cmd.AddCommand(newVersionCmd(opts))

	return cmd
}

// setup loads configuration and returns a context carrying the logger.
func (o *rootOptions) setup() (context.Context, context.CancelFunc, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, nil, zerolog.Nop(), err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	ctx = logger.WithContext(ctx, log)
	return ctx, cancel, cfg, log, nil
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	var recipient string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Generate the report for a recipient and e-mail it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer cancel()

			a, err := app.New(ctx, cfg, app.Options{Delivery: true})
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close clients")
				}
			}()

			gen, err := a.Generator()
			if err != nil {
				return err
			}

			receipt, err := gen.Generate(ctx, report.Recipient(recipient))
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}

			fmt.Fprintf(opts.out, "Report %s sent to %s (message %s, run %s)\n",
				receipt.Document, receipt.Recipient, receipt.MessageID, receipt.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&recipient, "recipient", "", "Recipient e-mail address")
	_ = cmd.MarkFlagRequired("recipient")

	return cmd
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		recipient string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Generate the report for a recipient and write the PDF locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer cancel()

			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close clients")
				}
			}()

			doc, err := a.Render(ctx, report.Recipient(recipient))
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}

			path, err := writeDocument(doc, outPath)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}

			fmt.Fprintf(opts.out, "Report written to %s (%d bytes)\n", path, len(doc.Data))
			if doc.Location != "" {
				fmt.Fprintf(opts.out, "Archived at %s\n", doc.Location)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recipient, "recipient", "", "Recipient e-mail address")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file or directory (default: current directory)")
	_ = cmd.MarkFlagRequired("recipient")

	return cmd
}

// writeDocument writes doc to outPath. An empty outPath or a directory
// keeps the document's own filename.
func writeDocument(doc *report.Document, outPath string) (string, error) {
	path := outPath
	if path == "" {
		path = doc.Filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, doc.Filename)
	}

	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.out, "budget-report %s\n", version)
		},
	}
}
