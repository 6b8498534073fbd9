package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds configuration for the SMTP gateway
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

// SMTPGateway sends email through an authenticated SMTP relay
type SMTPGateway struct {
	config SMTPConfig
	auth   smtp.Auth
}

// NewSMTPGateway creates a new SMTP gateway client
func NewSMTPGateway(config SMTPConfig) *SMTPGateway {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &SMTPGateway{config: config, auth: auth}
}

// Send delivers a message through the relay
func (g *SMTPGateway) Send(msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", g.config.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	addr := g.config.Host + ":" + g.config.Port
	if err := smtp.SendMail(addr, g.auth, g.config.Sender, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	return nil
}
