// Package mail sends transactional email over SMTP.
//
// The only message this application sends is the password-reset code. The
// Mailer interface exists so the service layer can be tested with a fake;
// SMTPMailer is the production implementation.
package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Mailer delivers a password-reset code to an address.
type Mailer interface {
	SendResetCode(to, code string) error
}

// resetTemplate is the HTML body of the reset-code email. Inlined rather
// than loaded from disk so the binary is self-contained.
var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #222;">
    <h2>Password reset</h2>
    <p>Use this code to reset your password:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>The code expires in 10 minutes. If you did not request a reset,
       you can ignore this email.</p>
  </body>
</html>`))

// SMTPMailer sends mail through an SMTP relay with STARTTLS.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates an SMTPMailer. Credential validation happens in
// config; by the time this runs all fields are non-empty.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendResetCode renders and delivers the reset-code email.
func (m *SMTPMailer) SendResetCode(to, code string) error {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, map[string]string{"Code": code}); err != nil {
		return fmt.Errorf("mail: rendering reset template: %w", err)
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.from),
		fmt.Sprintf("To: %s", to),
		"Subject: Your password reset code",
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body.String(),
	}, "\r\n")

	return m.send(to, []byte(msg))
}

// send speaks SMTP by hand instead of using smtp.SendMail so the TCP
// connection carries a deadline. Without one, an unresponsive relay would
// hang the request that triggered the mail.
func (m *SMTPMailer) send(to string, msg []byte) error {
	addr := net.JoinHostPort(m.host, fmt.Sprintf("%d", m.port))

	conn, err := net.DialTimeout("tcp", addr, 8*time.Second)
	if err != nil {
		return fmt.Errorf("mail: dialing %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: smtp handshake: %w", err)
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}

	if err := c.Mail(m.from); err != nil {
		return fmt.Errorf("mail: MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("mail: RCPT TO: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("mail: writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: closing message: %w", err)
	}
	return nil
}
