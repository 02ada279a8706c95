package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/epidatalab/covid-eda/pkg/analysis"
	"github.com/epidatalab/covid-eda/pkg/config"
	"github.com/epidatalab/covid-eda/pkg/pipeline"
	"github.com/epidatalab/covid-eda/pkg/report"
	"github.com/epidatalab/covid-eda/pkg/source"
)

func main() {
	// .env is optional, real environment variables win either way
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	color.Cyan("\n=== COVID-19 Exploratory Data Analysis ===")

	ctx := context.Background()

	factory := source.NewFactory(cfg, logger)
	src, err := factory.Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("Failed to close source", zap.Error(err))
		}
	}()

	if err := src.Validate(ctx); err != nil {
		return fmt.Errorf("source validation failed: %w", err)
	}

	reporter, err := report.NewReporter(cfg.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("failed to create reporter: %w", err)
	}

	runner, err := pipeline.NewRunner(src, reporter, cfg.GranularityLevel, logger)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	printFitSummary(result.Fit)
	printArtifacts(result.Artifacts)

	runReportPath := filepath.Join(cfg.OutputDir, "run_report.txt")
	if err := os.WriteFile(runReportPath, []byte(runner.Metrics().GenerateRunReport(result)), 0o644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}

	color.Green("\nAnalysis complete, artifacts written to %s", cfg.OutputDir)
	return nil
}

// buildLogger assembles the zap logger from the configured level and format.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.LogFormat == config.LogFormatConsole {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

func printFitSummary(fit *analysis.FitSummary) {
	color.Yellow("\nRegression Coefficients")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Term", "Estimate", "Std Error", "t value", "p value"})
	for _, c := range fit.Coefficients {
		table.Append([]string{
			c.Name,
			fmt.Sprintf("%.6g", c.Estimate),
			fmt.Sprintf("%.6g", c.StdErr),
			fmt.Sprintf("%.4g", c.TValue),
			fmt.Sprintf("%.4g", c.PValue),
		})
	}
	table.Render()

	color.Yellow("\nModel Fit")
	fmt.Printf("Observations:       %d\n", fit.N)
	fmt.Printf("R-squared:          %.6g\n", fit.RSquared)
	fmt.Printf("Adjusted R-squared: %.6g\n", fit.AdjRSquared)
	fmt.Printf("Residual Std Error: %.6g on %d DF\n", fit.ResidualStdErr, fit.DF)
	fmt.Printf("F-statistic:        %.6g (p = %.4g)\n", fit.FStatistic, fit.FPValue)
}

func printArtifacts(artifacts []report.Artifact) {
	color.Yellow("\nArtifacts")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Artifact", "Path"})
	for _, a := range artifacts {
		table.Append([]string{a.Name, a.Path})
	}
	table.Render()
}
