package ses

import (
	"context"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"schedex/internal/domain"
	"schedex/internal/port"
)

type sesNotifier struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	toAddress   string
}

// NewSESNotifier creates a new SES-backed RunNotifier that mails toAddress.
func NewSESNotifier(region, fromAddress, fromName, toAddress string) (port.RunNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	client := sesv2.NewFromConfig(cfg)
	return &sesNotifier{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		toAddress:   toAddress,
	}, nil
}

func (s *sesNotifier) NotifyReviewRequired(ctx context.Context, report *domain.ProcessingReport, reportURL string) error {
	subject := fmt.Sprintf("Schedule run %s needs review", report.RunID)
	textBody := BuildReviewText(report, reportURL)
	htmlBody := buildReviewHTML(report, reportURL)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{s.toAddress},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

// BuildReviewText renders the plain-text body of a review notification.
func BuildReviewText(report *domain.ProcessingReport, reportURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s for %q finished with status %s.\n\n", report.RunID, report.SourceName, report.Status)
	fmt.Fprintf(&b, "Overall confidence: %.2f\n", report.OverallConfidence)
	fmt.Fprintf(&b, "Components: %d\n", report.TotalComponents)
	if report.Validation != nil {
		fmt.Fprintf(&b, "Validation: %d errors, %d warnings\n", report.Validation.Errors, report.Validation.Warnings)
	}
	if report.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", report.Error)
	}
	if reportURL != "" {
		fmt.Fprintf(&b, "\nFull report: %s\n", reportURL)
	}
	return b.String()
}

func buildReviewHTML(report *domain.ProcessingReport, reportURL string) string {
	link := ""
	if reportURL != "" {
		link = fmt.Sprintf(`<p><a href="%s">Open the full report</a></p>`, html.EscapeString(reportURL))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Schedule run needs review</h2>
  <pre style="background: #f6f6f6; padding: 12px;">%s</pre>
  %s
</body>
</html>`, html.EscapeString(BuildReviewText(report, "")), link)
}
