package cloud

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/pkg/metrics"
	"github.com/microcosm-cc/bluemonday"
)

type sesAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Email is one outgoing message. Template only labels the metric.
type Email struct {
	To       string
	Subject  string
	Body     string
	HTML     bool
	Template string
}

// Mailer sends transactional e-mail through SES. With LogOnly set (dev and
// CI) messages are written to the log instead.
type Mailer struct {
	client  sesAPI
	from    string
	LogOnly bool
}

func NewMailer(awsCfg aws.Config, from string, logOnly bool) *Mailer {
	return &Mailer{client: ses.NewFromConfig(awsCfg), from: from, LogOnly: logOnly}
}

func newMailerWithClient(client sesAPI, from string, logOnly bool) *Mailer {
	return &Mailer{client: client, from: from, LogOnly: logOnly}
}

// Send reports whether the message was handed off. Failures are logged, not
// returned; callers decide how a lost e-mail surfaces to the user.
func (m *Mailer) Send(ctx context.Context, e Email) bool {
	label := e.Template
	if label == "" {
		label = "generic"
	}
	if m.LogOnly {
		logger.Info("📧 Email sent (log only)",
			"source", m.from, "destination", e.To, "subject", e.Subject, "content", plainText(e.Body))
		metrics.EmailsSent.WithLabelValues(label, "logged").Inc()
		return true
	}

	content := &types.Content{Data: aws.String(e.Body)}
	body := &types.Body{Text: content}
	if e.HTML {
		body = &types.Body{Html: content}
	}
	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &types.Destination{ToAddresses: []string{e.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(e.Subject)},
			Body:    body,
		},
	})
	if err != nil {
		logger.LogError(ctx, err, "Error sending email", "destination", e.To, "template", label)
		metrics.EmailsSent.WithLabelValues(label, "error").Inc()
		return false
	}
	logger.Info("Email sent", "message_id", aws.ToString(out.MessageId), "template", label)
	metrics.EmailsSent.WithLabelValues(label, "ok").Inc()
	return true
}

var (
	stripTags    = bluemonday.StrictPolicy()
	blockPattern = regexp.MustCompile(`(?i)</?(p|br|div|tr|h[1-6])[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// plainText flattens an HTML body for log output.
func plainText(body string) string {
	text := stripTags.Sanitize(blockPattern.ReplaceAllString(body, " "))
	return strings.TrimSpace(spacePattern.ReplaceAllString(html.UnescapeString(text), " "))
}
