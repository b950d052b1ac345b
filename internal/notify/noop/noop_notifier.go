package noop

import (
	"context"
	"log"

	"schedex/internal/domain"
	"schedex/internal/port"
)

type noopNotifier struct{}

// NewNoopNotifier creates a RunNotifier that only logs.
func NewNoopNotifier() port.RunNotifier {
	return &noopNotifier{}
}

func (n *noopNotifier) NotifyReviewRequired(_ context.Context, report *domain.ProcessingReport, reportURL string) error {
	log.Printf("[NOOP NOTIFY] run %s (%s) requires review, confidence %.2f: %s",
		report.RunID, report.SourceName, report.OverallConfidence, reportURL)
	return nil
}
