package portfolio_contact

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"text/template"

	"github.com/jordan-wright/email"
)

// Mailer delivers a composed message.
type Mailer interface {
	Send(ctx context.Context, e *email.Email) error
}

// SMTPMailer sends through a single SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, e *email.Email) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	// The email package has no context support; the send goroutine is left
	// to finish on its own if the deadline passes first.
	done := make(chan error, 1)
	go func() {
		if m.cfg.SSL {
			done <- e.SendWithTLS(addr, auth, &tls.Config{ServerName: m.cfg.Host})
		} else {
			done <- e.Send(addr, auth)
		}
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %v: %w", e.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %v: %w", e.To, ctx.Err())
	}
}

// LogMailer stands in for SMTP when sending is disabled; it only logs.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, e *email.Email) error {
	LoggerFromContext(ctx).Info("email not sent (SMTP disabled)",
		"to", e.To,
		"subject", e.Subject,
		"bytes", len(e.Text),
	)
	return nil
}

const defaultAdminTemplate = `
New contact form submission received from the {{.Site}} website.

CONTACT DETAILS:
Name: {{.S.FirstName}} {{.S.LastName}}
Email: {{.S.Email}}
Phone: {{or .S.Phone "Not provided"}}
Company: {{or .S.Company "Not provided"}}

INQUIRY DETAILS:
Type: {{.Label}}
Subject: {{.S.Subject}}

MESSAGE:
{{.S.Message}}

ADDITIONAL INFO:
Newsletter Subscription: {{if .S.Newsletter}}Yes{{else}}No{{end}}
Submitted: {{.Submitted}}
IP Address: {{.S.IP}}
User Agent: {{or .S.UserAgent "Unknown"}}
Reference: {{.S.ID}}
`

const defaultAutoReplyTemplate = `
Dear {{.S.FirstName}},

Thank you for reaching out through the {{.Site}} website. We have received your message regarding '{{.S.Subject}}' and appreciate your interest.

Your inquiry details:
- Type: {{.Label}}
- Subject: {{.S.Subject}}
- Submitted: {{.SubmittedLong}}

We aim to respond to all professional inquiries within 5-7 business days. Please note that due to high volume, not all requests can be accommodated.

If your inquiry is urgent, please ensure you have provided all relevant details in your original message.

Thank you for your patience and interest.

Best regards,
{{.Site}} Team

---
This is an automated response. Please do not reply to this email.
`

// templateData is what the subject and body templates see.
type templateData struct {
	Site          string
	Label         string
	Submitted     string
	SubmittedLong string
	S             *Submission
}

type templates struct {
	adminSubject, adminBody, replySubject, replyBody *template.Template
}

func parseTemplates(c *Config) (*templates, error) {
	var t templates
	for _, p := range []struct {
		dst  **template.Template
		name string
		src  string
	}{
		{&t.adminSubject, "admin-subject", c.AdminSubject},
		{&t.adminBody, "admin-body", c.AdminTemplate},
		{&t.replySubject, "reply-subject", c.AutoReplySubject},
		{&t.replyBody, "reply-body", c.AutoReplyTemplate},
	} {
		tpl, err := template.New(p.name).Option("missingkey=error").Parse(p.src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", p.name, err)
		}
		*p.dst = tpl
	}
	return &t, nil
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (h *Handler) templateData(s *Submission) templateData {
	label, _ := h.cfg.InquiryLabel(s.InquiryType)
	at := s.ReceivedAt.In(h.cfg.Location)
	return templateData{
		Site:          h.cfg.SiteName,
		Label:         label,
		Submitted:     at.Format(timestampLayout),
		SubmittedLong: at.Format("January 2, 2006 at 3:04 PM"),
		S:             s,
	}
}

// adminEmail builds the notification for the site owner; replies go to the
// submitter.
func (h *Handler) adminEmail(s *Submission) (*email.Email, error) {
	data := h.templateData(s)
	subject, err := render(h.tpl.adminSubject, data)
	if err != nil {
		return nil, err
	}
	body, err := render(h.tpl.adminBody, data)
	if err != nil {
		return nil, err
	}

	e := email.NewEmail()
	e.From = h.cfg.FromAddr
	e.To = []string{h.cfg.AdminEmail}
	if h.cfg.BackupAdminEmail != "" {
		e.Cc = []string{h.cfg.BackupAdminEmail}
	}
	e.ReplyTo = []string{s.Email}
	e.Subject = subject
	e.Text = []byte(body)
	e.Headers.Set("X-Submission-ID", s.ID)
	return e, nil
}

func (h *Handler) autoReply(s *Submission) (*email.Email, error) {
	data := h.templateData(s)
	subject, err := render(h.tpl.replySubject, data)
	if err != nil {
		return nil, err
	}
	body, err := render(h.tpl.replyBody, data)
	if err != nil {
		return nil, err
	}

	e := email.NewEmail()
	e.From = h.cfg.FromAddr
	e.To = []string{s.Email}
	e.Subject = subject
	e.Text = []byte(body)
	e.Headers.Set("Auto-Submitted", "auto-replied")
	return e, nil
}
