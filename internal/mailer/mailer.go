package mailer

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"janata/internal/config"
)

// Mailer delivers notification emails over plain SMTP. When no host is
// configured, Send logs nothing and drops the message so the worker can run
// without a mail relay in development.
type Mailer struct {
	Config config.SMTPConfig
}

func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{Config: cfg}
}

func (m *Mailer) Configured() bool {
	return m.Config.Host != ""
}

func (m *Mailer) Send(to, subject, body string) error {
	if !m.Configured() {
		return nil
	}
	from := m.Config.From
	if from == "" {
		from = "noreply@janata.gov.in"
	}
	host := m.Config.Host
	addr := fmt.Sprintf("%s:%d", host, m.Config.Port)
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	helo := heloDomain(from)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Quit()
	if err := client.Hello(helo); err != nil {
		return err
	}
	if (m.Config.Username != "" || m.Config.Password != "") && supportsAuth(client) {
		auth := smtp.PlainAuth("", m.Config.Username, m.Config.Password, host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func heloDomain(addr string) string {
	parts := strings.Split(addr, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "janata.gov.in"
}

func supportsAuth(client *smtp.Client) bool {
	ok, _ := client.Extension("AUTH")
	return ok
}
