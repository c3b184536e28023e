// Package mail sends invitation email over SMTP and records every send in
// the email log.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/meetballs/backend/config"
)

var invitationTmpl = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>You're invited to {{.MeetingName}}</h2>
  <p>Hi {{.Name}},</p>
  <p>You've been invited to join <strong>{{.MeetingName}}</strong> on MeetBalls.</p>
  <p><a href="{{.Link}}" style="display:inline-block;padding:10px 18px;background:#4f46e5;color:#fff;border-radius:6px;text-decoration:none;">Join meeting</a></p>
  <p>Or open this link: {{.Link}}</p>
  <p style="color:#888;font-size:12px;">This link is personal to you. If a new invitation is sent, this one stops working.</p>
</body>
</html>`))

// Mailer delivers invitation email over SMTP.
type Mailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewMailer creates a mailer from SMTP settings.
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

type invitationData struct {
	Name        string
	MeetingName string
	Link        string
}

// SendInvitation sends the magic-link invitation to one recipient.
func (m *Mailer) SendInvitation(ctx context.Context, toEmail, toName, meetingName, link string) error {
	if m.cfg.SMTPHost == "" {
		return fmt.Errorf("smtp not configured")
	}
	name := toName
	if name == "" {
		name = "there"
	}

	var body bytes.Buffer
	if err := invitationTmpl.Execute(&body, invitationData{Name: name, MeetingName: meetingName, Link: link}); err != nil {
		return fmt.Errorf("render invitation: %w", err)
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", toEmail)
	fmt.Fprintf(&msg, "Subject: Invitation: %s\r\n", meetingName)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{toEmail}, msg.Bytes())
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		m.logger.Info("invitation email sent", zap.String("to", toEmail))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
