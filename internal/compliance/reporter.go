package compliance

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sanctions-risk-engine/internal/types"
)

// ReportFormat specifies the output format for compliance reports
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatText ReportFormat = "text"
	FormatCSV  ReportFormat = "csv"
)

// ParseFormat maps a flag value to a ReportFormat
func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Extension is the file extension used when saving a report
func (f ReportFormat) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Reporter handles rendering and storage of compliance reports
type Reporter struct {
	outputDir string
}

// NewReporter creates a new reporter
func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
	}
}

// GenerateReport renders a compliance report in the specified format
func (r *Reporter) GenerateReport(report *types.ComplianceReport, format ReportFormat) (string, error) {
	switch format {
	case FormatJSON:
		return r.generateJSONReport(report)
	case FormatText:
		return r.generateTextReport(report)
	case FormatCSV:
		return r.generateCSVReport(report)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// SaveReport renders the report and writes it to the output directory as
// sanctions_report_<timestamp>.<ext>
func (r *Reporter) SaveReport(report *types.ComplianceReport, format ReportFormat) (string, error) {
	content, err := r.GenerateReport(report, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("sanctions_report_%s.%s", report.GeneratedAt.Format(types.GeneratedAtFormat), format.Extension())
	path := filepath.Join(r.outputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Reporter) generateJSONReport(report *types.ComplianceReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func rule(ch string) string {
	return strings.Repeat(ch, 80) + "\n"
}

func heading(sb *strings.Builder, title string) {
	sb.WriteString("\n\n" + rule("="))
	sb.WriteString(title + "\n")
	sb.WriteString(rule("="))
}

func (r *Reporter) generateTextReport(report *types.ComplianceReport) (string, error) {
	var sb strings.Builder
	s := report.Summary

	sb.WriteString(rule("="))
	sb.WriteString("SANCTIONS COMPLIANCE RISK REPORT\n")
	sb.WriteString(rule("="))
	sb.WriteString(fmt.Sprintf("Report ID: %s\n", report.ReportID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Mode: %s   Confidence: %.1f%%\n", report.Mode, report.ConfidenceLevel*100))
	sb.WriteString("\n")

	sb.WriteString("SUMMARY\n")
	sb.WriteString(rule("-"))
	sb.WriteString(fmt.Sprintf("Transactions:               %d (%d flagged)\n", s.TransactionCount, s.SanctionedCount))
	sb.WriteString(fmt.Sprintf("Total volume:               $%s\n", s.TotalVolume.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Sanctioned volume:          $%s (%.2f%%)\n", s.SanctionedVolume.StringFixed(2), s.PercentSanctioned))
	sb.WriteString(fmt.Sprintf("High-risk transactions:     %.2f%%\n", s.PercentHighRisk))
	sb.WriteString(fmt.Sprintf("Potential penalty exposure: $%s\n", s.PotentialPenaltyExposure.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Penalty at risk (%.0f%%):     $%s\n", s.ConfidenceLevel*100, s.PenaltyAtRisk.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Worst-case exposure:        $%s\n", s.WorstCaseExposure.StringFixed(2)))

	if len(report.SectionErrors) > 0 {
		sb.WriteString(fmt.Sprintf("\nSECTION ERRORS: %d\n", len(report.SectionErrors)))
		for _, e := range report.SectionErrors {
			sb.WriteString(fmt.Sprintf("  ⚠ %s [%s]: %s\n", e.Section, e.Kind, e.Message))
		}
	}

	heading(&sb, "RISK BY CATEGORY")
	for _, c := range report.RiskByCategory {
		sb.WriteString(fmt.Sprintf("• %-6s  count %6d  volume $%s  sanctioned $%s  penalty $%s\n",
			strings.ToUpper(string(c.Category)), c.Count, c.Volume.StringFixed(2), c.SanctionedVolume.StringFixed(2), c.Penalty.StringFixed(2)))
	}

	r.addCountrySection(&sb, report)
	r.addTopTransactionsSection(&sb, report)
	r.addPortfolioSection(&sb, report)
	r.addAnomalySection(&sb, report)
	r.addNetworkSection(&sb, report)
	r.addScenarioSection(&sb, report)

	sb.WriteString("\n" + rule("="))
	sb.WriteString("END OF REPORT\n")
	sb.WriteString(rule("="))

	return sb.String(), nil
}

func (r *Reporter) addCountrySection(sb *strings.Builder, report *types.ComplianceReport) {
	if len(report.CountryRisk) == 0 {
		return
	}
	heading(sb, "COUNTRY RISK")
	for _, c := range report.CountryRisk {
		sb.WriteString(fmt.Sprintf("\n• %s: flag rate %.2f%% (%d/%d)\n", c.Country, c.FlagRate*100, c.FlaggedCount, c.TransactionCount))
		sb.WriteString(fmt.Sprintf("  As sender: %.2f%%  As receiver: %.2f%%\n", c.SenderFlagRate*100, c.ReceiverFlagRate*100))
		sb.WriteString(fmt.Sprintf("  Total exposure: $%s\n", c.TotalExposure.StringFixed(2)))
	}
}

func (r *Reporter) addTopTransactionsSection(sb *strings.Builder, report *types.ComplianceReport) {
	if len(report.TopTransactions) == 0 {
		return
	}
	heading(sb, "TOP RISK TRANSACTIONS")
	for i, t := range report.TopTransactions {
		sb.WriteString(fmt.Sprintf("\n%d. [%s] %s  %s → %s  $%s\n", i+1, strings.ToUpper(string(t.RiskCategory)), t.ID,
			t.SenderCountry, t.ReceiverCountry, t.Amount.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("   Risk score: %.4f  Potential penalty: $%s\n", t.RiskScore, t.PotentialPenalty.StringFixed(2)))
		if t.SanctionsFlag {
			sb.WriteString("   ⚠ SANCTIONS FLAG\n")
		}
	}
}

func (r *Reporter) addPortfolioSection(sb *strings.Builder, report *types.ComplianceReport) {
	p := report.Portfolio
	if p == nil {
		return
	}
	heading(sb, "PORTFOLIO VALUE AT RISK")
	sb.WriteString(fmt.Sprintf("\nObservations: %d days  Latest value: $%.2f\n", p.Observations, p.LatestValue))
	sb.WriteString(fmt.Sprintf("Historical VaR:     $%.2f\n", p.HistoricalVaR))
	sb.WriteString(fmt.Sprintf("Parametric VaR:     $%.2f\n", p.ParametricVaR))
	sb.WriteString(fmt.Sprintf("Monte Carlo VaR:    $%.2f (%d samples, seed %d)\n", p.MonteCarloVaR, p.MonteCarloSamples, p.Seed))
	sb.WriteString(fmt.Sprintf("Expected Shortfall: $%.2f\n", p.ExpectedShortfall))
	if p.Degenerate {
		sb.WriteString("⚠ ZERO-VARIANCE RETURNS: parametric and Monte Carlo VaR reported as 0\n")
	}
}

func (r *Reporter) addAnomalySection(sb *strings.Builder, report *types.ComplianceReport) {
	a := report.Anomalies
	if a == nil {
		return
	}
	heading(sb, "ANOMALIES")
	sb.WriteString(fmt.Sprintf("\nAmount anomalies: %d  High-risk cluster: %d  Dropped rows: %d\n",
		a.AmountAnomalies, a.HighRiskCluster, a.Dropped))
	for _, p := range a.Profiles {
		marker := ""
		if p.HighRisk {
			marker = "  ⚠ HIGH RISK"
		}
		sb.WriteString(fmt.Sprintf("• Cluster %d: %d transactions, flag rate %.2f%%%s\n", p.ClusterID, p.Size, p.FlagRate*100, marker))
	}
	for i, rec := range a.TopAnomalies {
		if i == 10 {
			break
		}
		sb.WriteString(fmt.Sprintf("\n%d. %s  %s → %s  $%s\n", i+1, rec.ID, rec.SenderCountry, rec.ReceiverCountry, rec.Amount.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("   Score: %.4f  z: %.2f  pct: %.1f\n", rec.AnomalyScore, rec.AmountZScore, rec.FreqPercentile))
	}
}

func (r *Reporter) addNetworkSection(sb *strings.Builder, report *types.ComplianceReport) {
	n := report.Network
	if n == nil {
		return
	}
	heading(sb, "TRANSACTION NETWORK")
	sb.WriteString(fmt.Sprintf("\nCountries: %d  Routes: %d  High-risk paths: %d\n", n.NodeCount, n.EdgeCount, len(n.Paths)))
	if n.Truncated {
		sb.WriteString(fmt.Sprintf("⚠ PATH SEARCH TRUNCATED at %d paths (max %d hops)\n", n.MaxPaths, n.MaxHops))
	}
	for _, c := range n.HighRiskCountries {
		sb.WriteString(fmt.Sprintf("• High-risk source %s: outbound flag rate %.2f%%\n", c.Country, c.FlagRate*100))
	}
	for i, c := range n.Centrality {
		if i == 5 || c.Betweenness == 0 {
			break
		}
		sb.WriteString(fmt.Sprintf("• Broker %s: betweenness %.4f\n", c.Country, c.Betweenness))
	}
}

func (r *Reporter) addScenarioSection(sb *strings.Builder, report *types.ComplianceReport) {
	if len(report.Scenarios) == 0 {
		return
	}
	heading(sb, "SCENARIOS")
	for _, s := range report.Scenarios {
		sb.WriteString(fmt.Sprintf("\n• %s (%s): %s\n", s.Name, s.Kind, strings.Join(s.AffectedCountries, ", ")))
		sb.WriteString(fmt.Sprintf("  Flagged: %d ($%s, %.2f%%)\n", s.FlaggedCount, s.FlaggedAmount.StringFixed(2), s.PercentSanctioned))
		sb.WriteString(fmt.Sprintf("  Potential penalty: $%s (%s vs baseline)\n", s.PotentialPenalty.StringFixed(2), signed(s.PenaltyDelta.StringFixed(2))))
	}
}

func signed(v string) string {
	if strings.HasPrefix(v, "-") {
		return v
	}
	return "+" + v
}

// generateCSVReport writes the top transactions, one row each
func (r *Reporter) generateCSVReport(report *types.ComplianceReport) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"id", "timestamp", "sender_country", "receiver_country", "amount", "sanctions_flag",
		"amount_risk", "country_risk", "frequency_anomaly", "risk_score", "risk_category", "potential_penalty"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, t := range report.TopTransactions {
		rec := []string{
			t.ID,
			t.Timestamp.Format("2006-01-02 15:04:05"),
			t.SenderCountry,
			t.ReceiverCountry,
			t.Amount.StringFixed(2),
			strconv.FormatBool(t.SanctionsFlag),
			strconv.FormatFloat(t.AmountRisk, 'f', 4, 64),
			strconv.FormatFloat(t.CountryRisk, 'f', 4, 64),
			strconv.FormatFloat(t.FrequencyAnomaly, 'f', 4, 64),
			strconv.FormatFloat(t.RiskScore, 'f', 4, 64),
			string(t.RiskCategory),
			t.PotentialPenalty.StringFixed(2),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
