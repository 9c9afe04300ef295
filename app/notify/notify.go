// Package notify delivers caseworker notifications about questions the assistant could not answer.
// Emails and webhooks are sent via go-pkgz/notify.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
)

//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports github.com/go-pkgz/notify Notifier

const defaultSubject = "Unanswered question from jobbridge"

// Params defines message options
type Params struct {
	Subject  string // email subject, defaults to defaultSubject
	Template string // optional html template file, default used if missing or broken
	Host     string // reported host name
}

// SendersParams defines delivery channels. Email requires ToEmails, webhooks require WebhookURLs.
type SendersParams struct {
	SMTPHost     string
	SMTPPort     int
	SMTPTLS      bool
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration
	FromEmail    string
	ToEmails     []string

	WebhookURLs    []string
	WebhookHeaders []string // "Key:Value" pairs
	WebhookTimeout time.Duration
}

// Question is an event about question answered with the generic reply
type Question struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Reply    string    `json:"reply"`
	TS       time.Time `json:"ts"`
}

// Service sends question notifications
type Service struct {
	Params
	destinations []notify.Notifier
	fromEmail    string
	toEmail      []string
	webhooks     []string
	tmpl         *template.Template
}

// NewService makes notification service. Returns nil if no destinations configured.
func NewService(p Params, sp SendersParams) *Service {
	if len(sp.ToEmails) == 0 && len(sp.WebhookURLs) == 0 {
		return nil
	}
	res := &Service{Params: p, fromEmail: sp.FromEmail, toEmail: sp.ToEmails, webhooks: sp.WebhookURLs}
	if res.Subject == "" {
		res.Subject = defaultSubject
	}
	if len(sp.ToEmails) > 0 {
		res.destinations = append(res.destinations, notify.NewEmail(notify.SMTPParams{
			Host:        sp.SMTPHost,
			Port:        sp.SMTPPort,
			TLS:         sp.SMTPTLS,
			ContentType: "text/html",
			Username:    sp.SMTPUsername,
			Password:    sp.SMTPPassword,
			TimeOut:     sp.SMTPTimeout,
		}))
	}
	if len(sp.WebhookURLs) > 0 {
		res.destinations = append(res.destinations, notify.NewWebhook(notify.WebhookParams{
			Timeout: sp.WebhookTimeout,
			Headers: sp.WebhookHeaders,
		}))
	}
	res.tmpl = res.loadTemplate()
	log.Printf("[INFO] notifications enabled, emails: %v, webhooks: %d", sp.ToEmails, len(sp.WebhookURLs))
	return res
}

// NotifyQuestion sends html email to caseworkers and json payload to webhooks
func (s *Service) NotifyQuestion(ctx context.Context, q Question) error {
	var errs []error
	if len(s.toEmail) > 0 {
		msg, err := s.MakeQuestionHTML(q)
		if err != nil {
			return fmt.Errorf("can't make question message: %w", err)
		}
		if err = s.Send(ctx, s.Subject, msg); err != nil {
			errs = append(errs, err)
		}
	}

	if len(s.webhooks) > 0 {
		payload, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("can't marshal question: %w", err)
		}
		for _, wh := range s.webhooks {
			if err := notify.Send(ctx, s.destinations, wh, string(payload)); err != nil {
				errs = append(errs, fmt.Errorf("webhook %s: %w", wh, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Send email with given subject and text to all recipients
func (s *Service) Send(ctx context.Context, subj, text string) error {
	dest := fmt.Sprintf("mailto:%s?from=%s&subject=%s", strings.Join(s.toEmail, ","), s.fromEmail, url.QueryEscape(subj))
	return notify.Send(ctx, s.destinations, dest, text)
}

// MakeQuestionHTML renders question message
func (s *Service) MakeQuestionHTML(q Question) (string, error) {
	data := struct {
		Question
		Host string
	}{Question: q, Host: s.Host}
	if data.Host == "" {
		data.Host, _ = os.Hostname()
	}

	buf := bytes.Buffer{}
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to apply template: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) loadTemplate() *template.Template {
	def := template.Must(template.New("question").Parse(defaultQuestionTemplate))
	if s.Template == "" {
		return def
	}
	data, err := os.ReadFile(s.Template)
	if err != nil {
		log.Printf("[WARN] can't read template %s, using default: %v", s.Template, err)
		return def
	}
	t, err := template.New("question").Parse(string(data))
	if err != nil {
		log.Printf("[WARN] can't parse template %s, using default: %v", s.Template, err)
		return def
	}
	return t
}

const defaultQuestionTemplate = `<!DOCTYPE html>
<html>
	<head>
		<meta name="viewport" content="width=device-width" />
		<meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
		<style type="text/css">
			body {
				font-family: "Arial";
				font-size: 1.0em;
			}
			blockquote {
				padding: 0.6em;
				background-color: #E8E2A0;
				white-space: pre-wrap;
				word-wrap: break-word;
			}
			.bold {
				color: #882828;
				font-weight: 900;
			}
		</style>
	</head>

	<body>
		<p>Question without a scripted answer on <span class="bold">{{.Host}}</span> at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}</p>
		<blockquote>{{.Question.Question}}</blockquote>
		<p>The applicant got the generic reply:</p>
		<blockquote>{{.Reply}}</blockquote>
		<p>Reference: <span class="bold">{{.ID}}</span></p>
	</body>
</html>
`
