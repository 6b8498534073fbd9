// Package mailer provides outbound transactional email with a pluggable
// gateway, so services can send confirmations without caring about transport.
package mailer

// Message is a single outbound email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Gateway sends transactional email. Implementations: SMTPGateway for real
// delivery, DevGateway for local development and tests.
type Gateway interface {
	Send(msg Message) error
}
