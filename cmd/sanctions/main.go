package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"sanctions-risk-engine/internal/compliance"
	"sanctions-risk-engine/internal/compliance/complianceobs"
	"sanctions-risk-engine/internal/ledger"
	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/metrics"
	"sanctions-risk-engine/internal/store"
	"sanctions-risk-engine/internal/synth"
	"sanctions-risk-engine/internal/types"
)

func main() {
	// .env is optional; LOG_* variables may come from it
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	input := flag.String("input", "", "ledger file (.csv, .jsonl, optionally .gz)")
	synthetic := flag.Int("synthetic", -1, "generate N synthetic transactions instead of reading -input")
	format := flag.String("format", "", "output format: text, json, or csv (default from config)")
	outputFile := flag.String("output", "", "save report to file (optional)")
	confidence := flag.Float64("confidence", 0, "override confidence level")
	mode := flag.String("mode", "", "override report mode: strict or lenient")
	metricsOut := flag.String("metrics-out", "", "write Prometheus textfile metrics to this path")
	flag.Parse()

	cfg := store.Default()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, err := store.LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	} else if *configPath != "config.yaml" {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *confidence != 0 {
		cfg.ConfidenceLevel = *confidence
	}
	if *mode != "" {
		cfg.Mode = strings.ToLower(*mode)
	}
	if *format != "" {
		cfg.Report.Format = *format
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	code := run(cfg, *input, *synthetic, *outputFile, *metricsOut)
	if err := logger.Shutdown(context.Background()); err != nil {
		fmt.Printf("Warning: logger shutdown: %v\n", err)
	}
	os.Exit(code)
}

func run(cfg store.Config, input string, synthetic int, outputFile, metricsOut string) int {
	ctx := context.Background()
	analysis := cfg.ToAnalysisConfig()

	reportFormat, err := compliance.ParseFormat(cfg.Report.Format)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	txns, err := loadLedger(cfg, analysis.HighRiskSet(), input, synthetic)
	if err != nil {
		fmt.Printf("Error loading transactions: %v\n", err)
		return 1
	}

	floor, _ := cfg.MinAmount()
	txns = ledger.Filter(txns, ledger.FilterOptions{Countries: cfg.Filter.Countries, MinAmount: floor})

	fmt.Printf("🔍 Screening %d transactions (mode: %s, confidence: %.2f)\n", len(txns), analysis.Mode, analysis.ConfidenceLevel)
	fmt.Println(strings.Repeat("─", 77))

	recorder := metrics.New()
	aggregator, err := compliance.NewAggregator(analysis, compliance.WithMetrics(recorder))
	if err != nil {
		fmt.Printf("Error creating aggregator: %v\n", err)
		return 1
	}
	generator := complianceobs.Wrap(aggregator, recorder, analysis.Mode)

	report, err := generator.Generate(ctx, txns)
	writeMetrics(ctx, recorder, metricsOut)
	if err != nil {
		fmt.Printf("Error generating report [%s]: %v\n", types.ErrorKind(err), err)
		return 1
	}

	reporter := compliance.NewReporter(cfg.Report.OutputDir)
	content, err := reporter.GenerateReport(report, reportFormat)
	if err != nil {
		fmt.Printf("Error rendering report: %v\n", err)
		return 1
	}
	fmt.Println(content)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(content), 0644); err != nil {
			fmt.Printf("Error saving report to file: %v\n", err)
			return 1
		}
		fmt.Printf("\n✅ Report saved to: %s\n", outputFile)
	} else {
		savedPath, err := reporter.SaveReport(report, reportFormat)
		if err != nil {
			fmt.Printf("Warning: Could not auto-save report: %v\n", err)
		} else {
			fmt.Printf("\n✅ Report auto-saved to: %s\n", savedPath)
		}
	}

	s := report.Summary
	fmt.Println("\n" + strings.Repeat("─", 77))
	fmt.Printf("Report %s\n", report.ReportID)
	fmt.Printf("Sanctioned volume: %.2f%%   High risk: %.2f%%\n", s.PercentSanctioned, s.PercentHighRisk)
	fmt.Printf("Potential penalty: $%s   Penalty at risk (%.0f%%): $%s\n",
		s.PotentialPenaltyExposure.StringFixed(2), s.ConfidenceLevel*100, s.PenaltyAtRisk.StringFixed(2))
	if report.HasErrors() {
		fmt.Printf("Degraded sections: %d\n", len(report.SectionErrors))
	}

	// Exit code 2 flags a portfolio above the alert threshold
	if s.PercentHighRisk >= analysis.HighRiskAlertPct {
		fmt.Printf("\n⚠️  High-risk share exceeds threshold (%.2f%%). Review the flagged transactions.\n", analysis.HighRiskAlertPct)
		return 2
	}
	return 0
}

func loadLedger(cfg store.Config, highRisk types.CountrySet, input string, synthetic int) ([]types.Transaction, error) {
	switch {
	case input != "":
		return ledger.Load(input, highRisk)
	case synthetic >= 0:
		return synth.Generate(synth.Options{Count: synthetic, Seed: cfg.Synthetic.Seed, HighRisk: highRisk})
	default:
		return synth.Generate(synth.Options{Count: cfg.Synthetic.Count, Seed: cfg.Synthetic.Seed, HighRisk: highRisk})
	}
}

func writeMetrics(ctx context.Context, recorder *metrics.Recorder, path string) {
	if path == "" {
		return
	}
	if err := recorder.WriteTextfile(path); err != nil {
		logger.ErrorWithErr(ctx, "Failed to write metrics textfile", err, "path", path)
	}
}
