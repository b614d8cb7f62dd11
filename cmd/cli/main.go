package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"scifig/adapters/excel"
	"scifig/domain/analysis"
	"scifig/internal/config"
	"scifig/internal/container"
	"scifig/internal/engine"
	"scifig/internal/logging"
	"scifig/internal/report"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// columnFlags name the variables of a request
type columnFlags struct {
	file    string
	sheet   string
	outcome string
	group   string
	time    string
	event   string
	test    string
}

func (f *columnFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "CSV or XLSX file holding one row per observation")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Workbook sheet to read (default: first sheet)")
	cmd.Flags().StringVarP(&f.outcome, "outcome", "o", "", "Outcome variable")
	cmd.Flags().StringVarP(&f.group, "group", "g", "", "Grouping variable")
	cmd.Flags().StringVar(&f.time, "time", "", "Time-to-event variable")
	cmd.Flags().StringVar(&f.event, "event", "", "Event indicator variable")
	_ = cmd.MarkFlagRequired("file")
}

func (f *columnFlags) request(logger zerolog.Logger) (engine.Request, error) {
	reader := excel.NewDataReader(logger)
	reader.Sheet = f.sheet
	table, err := reader.ReadFile(f.file)
	if err != nil {
		return engine.Request{}, err
	}
	return engine.Request{
		Rows:    table.Rows,
		Outcome: f.outcome,
		Group:   f.group,
		Time:    f.time,
		Event:   f.event,
		Test:    f.test,
	}, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "scifig",
		Short:         "Adaptive statistical test selection and execution",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			_ = godotenv.Load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	loadConfig := func() (*config.Config, zerolog.Logger, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, zerolog.Nop(), err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return cfg, logging.New(cfg.Log), nil
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(out, loadConfig),
		newRecommendCmd(out, loadConfig),
		newAssumptionsCmd(out, loadConfig),
		newServeCmd(loadConfig),
	)
	return rootCmd
}

type configLoader func() (*config.Config, zerolog.Logger, error)

func newAnalyzeCmd(out io.Writer, load configLoader) *cobra.Command {
	var flags columnFlags
	var format string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Profile a dataset, select a test and run it",
		Long: `Profile a dataset, select the appropriate test, verify its assumptions
and execute it.

Example: scifig analyze --file trial.csv --outcome score --group arm --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg.Engine, logger)
			if err != nil {
				return err
			}
			req, err := flags.request(logger)
			if err != nil {
				return err
			}

			outcome := eng.Run(req)
			if err := writeOutcome(out, outcome, format); err != nil {
				return err
			}
			if !outcome.Completed() {
				return fmt.Errorf("analysis failed: %s", outcome.Error)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.test, "test", "", "Run this test instead of the recommended one: "+testKindList())
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json|markdown|html")
	return cmd
}

func newRecommendCmd(out io.Writer, load configLoader) *cobra.Command {
	var flags columnFlags

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Profile a dataset and print the recommended test without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg.Engine, logger)
			if err != nil {
				return err
			}
			req, err := flags.request(logger)
			if err != nil {
				return err
			}

			profile, rec, err := eng.Recommend(req)
			if err != nil {
				return err
			}
			return writeJSON(out, struct {
				DataProfile    analysis.DataProfile    `json:"data_profile"`
				Recommendation analysis.Recommendation `json:"recommendation"`
			}{profile, rec})
		},
	}

	flags.register(cmd)
	return cmd
}

func newAssumptionsCmd(out io.Writer, load configLoader) *cobra.Command {
	var flags columnFlags

	cmd := &cobra.Command{
		Use:   "assumptions",
		Short: "Run normality and equal-variance checks per group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg.Engine, logger)
			if err != nil {
				return err
			}
			req, err := flags.request(logger)
			if err != nil {
				return err
			}

			checks, err := eng.CheckAssumptions(req)
			if err != nil {
				return err
			}
			return writeJSON(out, checks)
		},
	}

	flags.register(cmd)
	return cmd
}

func newServeCmd(load configLoader) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Outcomes are stored in Postgres when DATABASE_URL is
set (pending migrations are applied on startup) and in memory otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			c, err := container.New(cfg, logger)
			if err != nil {
				return err
			}
			if err := c.Connect(cmd.Context()); err != nil {
				return err
			}
			defer func() {
				if err := c.Shutdown(); err != nil {
					logger.Error().Err(err).Msg("failed to close database")
				}
			}()

			return c.WebAPI().Start()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides PORT)")
	return cmd
}

func writeOutcome(out io.Writer, outcome analysis.AnalysisOutcome, format string) error {
	switch format {
	case "json":
		return writeJSON(out, outcome)
	case "markdown", "md":
		_, err := io.WriteString(out, report.Markdown(outcome))
		return err
	case "html":
		_, err := out.Write(report.HTML(outcome))
		return err
	default:
		return fmt.Errorf("unknown format %q (use json, markdown or html)", format)
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func testKindList() string {
	kinds := analysis.AllTestKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}
