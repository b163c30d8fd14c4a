package complianceobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"sanctions-risk-engine/internal/interfaces"
	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/metrics"
	"sanctions-risk-engine/internal/trace"
	"sanctions-risk-engine/internal/types"
)

type observableReportGenerator struct {
	generator interfaces.ReportGenerator
	recorder  *metrics.Recorder
	mode      types.ReportMode
}

var _ interfaces.ReportGenerator = (*observableReportGenerator)(nil)

// Wrap adds a span, structured logs and report metrics around a generator.
// recorder may be nil.
func Wrap(generator interfaces.ReportGenerator, recorder *metrics.Recorder, mode types.ReportMode) interfaces.ReportGenerator {
	return &observableReportGenerator{
		generator: generator,
		recorder:  recorder,
		mode:      mode,
	}
}

func (o *observableReportGenerator) Generate(ctx context.Context, txns []types.Transaction) (*types.ComplianceReport, error) {
	ctx, span := trace.StartSpan(ctx, "compliance.Generate")
	span.SetAttributes(
		attribute.Int("transactions", len(txns)),
		attribute.String("mode", string(o.mode)),
	)

	logger.InfoSkip(ctx, 1, "Generating compliance report",
		"transactions", len(txns),
		"mode", o.mode,
	)

	report, err := o.generator.Generate(ctx, txns)
	if o.recorder != nil {
		o.recorder.ObserveReport(o.mode, report)
	}
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Compliance report generation failed", err,
			"transactions", len(txns),
			"kind", types.ErrorKind(err),
		)
		trace.Finish(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("report_id", report.ReportID.String()),
		attribute.Int("section_errors", len(report.SectionErrors)),
	)

	if report.HasErrors() {
		for _, se := range report.SectionErrors {
			logger.WarnSkip(ctx, 1, "Report section degraded",
				"report_id", report.ReportID.String(),
				"section", se.Section,
				"kind", se.Kind,
				"message", se.Message,
			)
		}
	}

	logger.InfoSkip(ctx, 1, "Compliance report generated",
		"report_id", report.ReportID.String(),
		"percent_sanctioned", report.Summary.PercentSanctioned,
		"percent_high_risk", report.Summary.PercentHighRisk,
	)

	trace.Finish(span, nil)
	return report, nil
}
