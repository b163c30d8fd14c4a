package compliance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sanctions-risk-engine/internal/anomaly"
	"sanctions-risk-engine/internal/exposure"
	"sanctions-risk-engine/internal/interfaces"
	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/metrics"
	"sanctions-risk-engine/internal/network"
	"sanctions-risk-engine/internal/portfolio"
	"sanctions-risk-engine/internal/scenario"
	"sanctions-risk-engine/internal/scoring"
	"sanctions-risk-engine/internal/types"
)

// errNoResult marks a core section that returned neither a result nor an error
var errNoResult = errors.New("section returned no result")

// Aggregator implements the ReportGenerator interface
type Aggregator struct {
	cfg types.AnalysisConfig

	exposure  interfaces.ExposureCalculator
	scorer    interfaces.TransactionScorer
	portfolio interfaces.PortfolioEstimator
	anomaly   interfaces.AnomalyDetector
	network   interfaces.NetworkAnalyser
	scenarios interfaces.ScenarioRunner

	metrics *metrics.Recorder
	now     func() time.Time
}

// Option customizes an Aggregator
type Option func(*Aggregator)

// WithMetrics records section durations and failures on r
func WithMetrics(r *metrics.Recorder) Option {
	return func(a *Aggregator) {
		a.metrics = r
	}
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithExposureCalculator replaces the exposure section
func WithExposureCalculator(c interfaces.ExposureCalculator) Option {
	return func(a *Aggregator) {
		a.exposure = c
	}
}

// WithScorer replaces the scoring section
func WithScorer(s interfaces.TransactionScorer) Option {
	return func(a *Aggregator) {
		a.scorer = s
	}
}

// WithPortfolioEstimator replaces the portfolio section
func WithPortfolioEstimator(p interfaces.PortfolioEstimator) Option {
	return func(a *Aggregator) {
		a.portfolio = p
	}
}

// WithAnomalyDetector replaces the anomaly section
func WithAnomalyDetector(d interfaces.AnomalyDetector) Option {
	return func(a *Aggregator) {
		a.anomaly = d
	}
}

// WithNetworkAnalyser replaces the network section
func WithNetworkAnalyser(n interfaces.NetworkAnalyser) Option {
	return func(a *Aggregator) {
		a.network = n
	}
}

// WithScenarioRunner replaces the scenario section
func WithScenarioRunner(s interfaces.ScenarioRunner) Option {
	return func(a *Aggregator) {
		a.scenarios = s
	}
}

// NewAggregator validates the configuration and builds every analysis from it.
// Options may swap individual analyses.
func NewAggregator(cfg types.AnalysisConfig, opts ...Option) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scorer, err := scoring.NewScorer(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	estimator, err := portfolio.NewEstimator(cfg.PortfolioSettings())
	if err != nil {
		return nil, err
	}
	detector, err := anomaly.NewDetector(cfg.AnomalySettings())
	if err != nil {
		return nil, err
	}
	analyser, err := network.NewAnalyser(cfg.Network)
	if err != nil {
		return nil, err
	}
	runner, err := scenario.NewAnalyser(cfg.Scoring)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		cfg:       cfg,
		exposure:  exposure.NewCalculator(),
		scorer:    scorer,
		portfolio: estimator,
		anomaly:   detector,
		network:   analyser,
		scenarios: runner,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the configuration the aggregator was built with
func (a *Aggregator) Config() types.AnalysisConfig {
	return a.cfg
}

// sectionResults collects the outputs of the parallel analyses
type sectionResults struct {
	mu sync.Mutex

	exposure  *types.ExposureMetrics
	scored    []types.ScoredTransaction
	portfolio *types.PortfolioRisk
	anomalies *types.AnomalyResult
	network   *types.NetworkAnalysis
	scenarios []types.ScenarioResult
	errors    []types.SectionError
}

func (r *sectionResults) fail(section string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, types.SectionError{
		Section: section,
		Kind:    types.ErrorKind(err),
		Message: err.Error(),
	})
}

// Generate runs every analysis over the snapshot concurrently and joins the
// results. Exposure and scoring failures always fail the report. Portfolio,
// anomaly, network and scenario failures fail it in strict mode; in lenient
// mode they become section errors and the section is left empty, except for a
// truncated network analysis which is kept.
func (a *Aggregator) Generate(ctx context.Context, txns []types.Transaction) (*types.ComplianceReport, error) {
	if len(txns) == 0 {
		return nil, &types.InsufficientDataError{Operation: "compliance report", Required: 1, Got: 0}
	}

	logger.Info(ctx, "Starting compliance report",
		"transactions", len(txns),
		"mode", a.cfg.Mode)

	res := &sectionResults{}
	g, gctx := errgroup.WithContext(ctx)

	run := func(section string, optional bool, fn func(context.Context) error) {
		g.Go(func() error {
			op := logger.StartOperation(gctx, "compliance."+section, "transactions", len(txns))
			err := fn(op.GetContext())
			elapsed := op.Finish(err)
			if a.metrics != nil {
				a.metrics.ObserveSection(section, elapsed, err)
			}
			if err == nil {
				return nil
			}
			if optional && a.cfg.Mode == types.ModeLenient {
				logger.Warn(ctx, "Report section failed, continuing",
					"section", section,
					"kind", types.ErrorKind(err),
					"error", err)
				res.fail(section, err)
				return nil
			}
			return fmt.Errorf("%s section: %w", section, err)
		})
	}

	run(types.SectionExposure, false, func(ctx context.Context) error {
		m, err := a.exposure.Calculate(ctx, txns)
		res.exposure = m
		return err
	})
	run(types.SectionScoring, false, func(ctx context.Context) error {
		scored, err := a.scorer.Score(ctx, txns)
		res.scored = scored
		return err
	})
	if a.cfg.IncludePortfolio {
		run(types.SectionPortfolio, true, func(ctx context.Context) error {
			p, err := a.portfolio.Estimate(ctx, txns)
			if err == nil {
				res.portfolio = p
			}
			return err
		})
	}
	run(types.SectionAnomaly, true, func(ctx context.Context) error {
		r, err := a.anomaly.Detect(ctx, txns)
		if err == nil {
			res.anomalies = r
		}
		return err
	})
	run(types.SectionNetwork, true, func(ctx context.Context) error {
		n, err := a.network.Analyse(ctx, txns)
		if err == nil || (n != nil && n.Truncated) {
			res.network = n
		}
		return err
	})
	if len(a.cfg.Scenarios) > 0 {
		run(types.SectionScenarios, true, func(ctx context.Context) error {
			s, err := a.scenarios.Run(ctx, txns, a.cfg.Scenarios)
			if err == nil {
				res.scenarios = s
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if res.exposure == nil {
		return nil, fmt.Errorf("%s section: %w", types.SectionExposure, errNoResult)
	}
	if len(res.scored) != len(txns) {
		return nil, fmt.Errorf("%s section: %w: scored %d of %d transactions", types.SectionScoring, errNoResult, len(res.scored), len(txns))
	}

	penalty, err := a.scorer.PenaltyExposure(res.scored, a.cfg.ConfidenceLevel)
	if err != nil {
		return nil, fmt.Errorf("%s section: %w", types.SectionScoring, err)
	}
	if penalty == nil {
		return nil, fmt.Errorf("%s section: %w: no penalty summary", types.SectionScoring, errNoResult)
	}

	report := &types.ComplianceReport{
		ReportID:        uuid.New(),
		GeneratedAt:     a.now().UTC(),
		ConfidenceLevel: a.cfg.ConfidenceLevel,
		Mode:            a.cfg.Mode,
		Exposure:        res.exposure,
		Penalty:         penalty,
		Portfolio:       res.portfolio,
		Anomalies:       res.anomalies,
		Network:         res.network,
		Scenarios:       res.scenarios,
		SectionErrors:   res.errors,
	}
	sort.Slice(report.SectionErrors, func(i, j int) bool {
		return report.SectionErrors[i].Section < report.SectionErrors[j].Section
	})

	report.RiskByCategory = CategoryBreakdown(res.scored)
	if err := reconcile(report.RiskByCategory, res.exposure); err != nil {
		return nil, err
	}
	report.Summary = summarize(res.exposure, penalty, report.RiskByCategory, a.cfg.ConfidenceLevel)
	report.CountryRisk = CountryRiskTable(txns, res.exposure, a.cfg.TopCountries)
	report.TimeTrend = TimeTrend(txns)
	report.TopTransactions = TopTransactions(res.scored, a.cfg.TopTransactions)

	logger.Screening(ctx, report.ReportID.String(), report.Summary.TransactionCount, report.Summary.PercentHighRisk,
		"percent_sanctioned", report.Summary.PercentSanctioned,
		"potential_penalty", report.Summary.PotentialPenaltyExposure.StringFixed(2),
		"section_errors", len(report.SectionErrors))

	if report.Summary.PercentHighRisk >= a.cfg.HighRiskAlertPct {
		logger.Alert(ctx, "high_risk_share",
			"report_id", report.ReportID.String(),
			"percent_high_risk", report.Summary.PercentHighRisk,
			"threshold", a.cfg.HighRiskAlertPct)
	}

	return report, nil
}

// CategoryBreakdown partitions the scored set by risk category, always
// returning one row per category in high, medium, low order.
func CategoryBreakdown(scored []types.ScoredTransaction) []types.CategoryBreakdown {
	rows := make(map[types.RiskCategory]*types.CategoryBreakdown, len(types.RiskCategories))
	for _, c := range types.RiskCategories {
		rows[c] = &types.CategoryBreakdown{
			Category:         c,
			Volume:           decimal.Zero,
			SanctionedVolume: decimal.Zero,
			Penalty:          decimal.Zero,
		}
	}
	for _, st := range scored {
		row := rows[st.RiskCategory]
		row.Count++
		row.Volume = row.Volume.Add(st.Amount)
		row.Penalty = row.Penalty.Add(st.PotentialPenalty)
		if st.SanctionsFlag {
			row.SanctionedVolume = row.SanctionedVolume.Add(st.Amount)
		}
	}

	out := make([]types.CategoryBreakdown, 0, len(types.RiskCategories))
	for _, c := range types.RiskCategories {
		out = append(out, *rows[c])
	}
	return out
}

func reconcile(rows []types.CategoryBreakdown, m *types.ExposureMetrics) error {
	count := 0
	volume, sanctioned := decimal.Zero, decimal.Zero
	for _, r := range rows {
		count += r.Count
		volume = volume.Add(r.Volume)
		sanctioned = sanctioned.Add(r.SanctionedVolume)
	}
	if count != m.TransactionCount || !volume.Equal(m.TotalVolume) || !sanctioned.Equal(m.SanctionedVolume) {
		return fmt.Errorf("risk categories do not reconcile with exposure: count %d/%d, volume %s/%s, sanctioned %s/%s",
			count, m.TransactionCount, volume, m.TotalVolume, sanctioned, m.SanctionedVolume)
	}
	return nil
}

func summarize(m *types.ExposureMetrics, p *types.PenaltySummary, rows []types.CategoryBreakdown, confidence float64) types.SummaryMetrics {
	s := types.SummaryMetrics{
		TransactionCount:         m.TransactionCount,
		SanctionedCount:          m.SanctionedCount,
		TotalVolume:              m.TotalVolume,
		SanctionedVolume:         m.SanctionedVolume,
		PercentSanctioned:        m.PercentSanctioned,
		PotentialPenaltyExposure: p.TotalPotentialPenalty,
		PenaltyAtRisk:            p.PenaltyAtRisk,
		WorstCaseExposure:        p.WorstCaseExposure,
		ConfidenceLevel:          confidence,
	}
	for _, r := range rows {
		if r.Category == types.RiskHigh && m.TransactionCount > 0 {
			s.PercentHighRisk = float64(r.Count) / float64(m.TransactionCount) * 100
		}
	}
	return s
}

// CountryRiskTable ranks countries by combined flag rate, breaking ties by total
// exposure then name, and keeps the first limit rows.
func CountryRiskTable(txns []types.Transaction, m *types.ExposureMetrics, limit int) []types.CountryRisk {
	combined := exposure.FlagRates(txns, types.RoleAny)
	senders := exposure.FlagRates(txns, types.RoleSender)
	receivers := exposure.FlagRates(txns, types.RoleReceiver)

	totals := make(map[string]decimal.Decimal, len(m.CountryExposure))
	for _, e := range m.CountryExposure {
		totals[e.Country] = e.Total
	}

	rows := make([]types.CountryRisk, 0, len(combined))
	for country, r := range combined {
		total, ok := totals[country]
		if !ok {
			total = decimal.Zero
		}
		rows = append(rows, types.CountryRisk{
			Country:          country,
			TransactionCount: r.TransactionCount,
			FlaggedCount:     r.FlaggedCount,
			FlagRate:         r.FlagRate,
			SenderFlagRate:   senders[country].FlagRate,
			ReceiverFlagRate: receivers[country].FlagRate,
			TotalExposure:    total,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FlagRate != rows[j].FlagRate {
			return rows[i].FlagRate > rows[j].FlagRate
		}
		if c := rows[i].TotalExposure.Cmp(rows[j].TotalExposure); c != 0 {
			return c > 0
		}
		return rows[i].Country < rows[j].Country
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// TimeTrend aggregates volume and flags per UTC date in ascending date order
func TimeTrend(txns []types.Transaction) []types.TrendPoint {
	byDate := make(map[string]*types.TrendPoint)
	for _, t := range txns {
		d := t.Date()
		p, ok := byDate[d]
		if !ok {
			p = &types.TrendPoint{Date: d, Volume: decimal.Zero, SanctionedVolume: decimal.Zero}
			byDate[d] = p
		}
		p.TransactionCount++
		p.Volume = p.Volume.Add(t.Amount)
		if t.SanctionsFlag {
			p.FlagCount++
			p.SanctionedVolume = p.SanctionedVolume.Add(t.Amount)
		}
	}

	out := make([]types.TrendPoint, 0, len(byDate))
	for _, p := range byDate {
		p.FlagRatio = float64(p.FlagCount) / float64(p.TransactionCount)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TopTransactions returns the limit highest risk scores, ties broken by ID.
// The input is not reordered.
func TopTransactions(scored []types.ScoredTransaction, limit int) []types.ScoredTransaction {
	top := append([]types.ScoredTransaction(nil), scored...)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].RiskScore != top[j].RiskScore {
			return top[i].RiskScore > top[j].RiskScore
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}
