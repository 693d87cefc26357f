// Package main provides the launchmesh binary entry point.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/launchmesh"
	"github.com/hupe1980/launchmesh/config"
	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/logging"
	"github.com/hupe1980/launchmesh/render"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "launchmesh",
		Short: "Generate quality-gated product launch plans",
		Long: `launchmesh drafts a product launch plan as a graph of dependent stages:
market research, product description, pricing strategy, launch plan and
marketing content. Every draft is scored and retried until it meets the
stage's quality bar or runs out of attempts.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(flags), planCmd(flags), evaluateCmd(flags), versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "launchmesh version %s\n", launchmesh.Version)
		},
	}
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the launch plan HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, cfg, err := setup(flags, os.Stderr, true)
			if err != nil {
				return err
			}
			defer m.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}

			return m.Server().ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	return cmd
}

func planCmd(flags *globalFlags) *cobra.Command {
	var (
		req    core.LaunchRequest
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a launch plan",
		Example: `  launchmesh plan --product EcoBottle --details "Insulated steel bottle" --market "urban professionals"
  launchmesh plan --product EcoBottle --details "..." --market hikers --format markdown --out ./plan`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, _, err := setup(flags, os.Stderr, false)
			if err != nil {
				return err
			}
			defer m.Close()

			plan, err := m.Run(ctx, req)
			if err != nil {
				return err
			}

			if outDir != "" {
				if err := writeFiles(outDir, plan); err != nil {
					return err
				}
			}

			return writePlan(cmd.OutOrStdout(), plan, format)
		},
	}

	cmd.Flags().StringVar(&req.ProductName, "product", "", "Product name")
	cmd.Flags().StringVar(&req.ProductDetails, "details", "", "Product details")
	cmd.Flags().StringVar(&req.TargetMarket, "market", "", "Target market")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, markdown, summary)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the downloadable markdown files")

	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("details")
	_ = cmd.MarkFlagRequired("market")

	return cmd
}

func evaluateCmd(flags *globalFlags) *cobra.Command {
	var (
		criteria core.Criteria
		stage    string
	)

	cmd := &cobra.Command{
		Use:   "evaluate <file>",
		Short: "Score a draft section with the quality evaluator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			m, _, err := setup(flags, io.Discard, false)
			if err != nil {
				return err
			}
			defer m.Close()

			score, passed := m.Evaluate(text, criteria, core.StageID(stage))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, score.String())
			fmt.Fprintf(out, "passed: %t\n", passed)

			return nil
		},
	}

	cmd.Flags().StringVar(&criteria.ProductName, "product", "", "Product name the text should mention")
	cmd.Flags().StringVar(&criteria.TargetMarket, "market", "", "Target market the text should address")
	cmd.Flags().StringVar(&stage, "stage", "", "Stage whose weights and threshold apply")

	return cmd
}

func setup(flags *globalFlags, logOut io.Writer, metrics bool) (*launchmesh.LaunchMesh, *config.Config, error) {
	cfg, err := config.NewLoader(nil).Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}

	logCfg := logging.DefaultLoggerConfig()
	logCfg.Level = logging.ParseLevel(level)
	logCfg.Format = cfg.Log.Format
	logCfg.Output = logOut
	logCfg.Component = "launchmesh"
	logCfg.Secrets = cfg.Secrets()

	logger := logging.NewLogger(logCfg)

	m, err := launchmesh.New(cfg, func(o *launchmesh.Options) {
		o.Logger = logger
		o.DisableMetrics = !metrics
	})
	if err != nil {
		return nil, nil, err
	}

	return m, cfg, nil
}

func writePlan(w io.Writer, plan *core.LaunchPlan, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "markdown", "md":
		_, err := io.WriteString(w, render.Markdown(plan))
		return err
	case "summary":
		_, err := io.WriteString(w, render.Summary(plan))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeFiles(dir string, plan *core.LaunchPlan) error {
	files, err := render.Files(plan)
	if err != nil {
		return err
	}

	return render.WriteFiles(dir, files)
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return string(data), nil
}
