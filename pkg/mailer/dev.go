package mailer

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DevGateway logs messages instead of sending them and keeps them in memory
// so tests can assert on what would have been delivered
type DevGateway struct {
	logger *logrus.Logger

	mu   sync.Mutex
	sent []Message
}

// NewDevGateway creates a logging-only gateway
func NewDevGateway(logger *logrus.Logger) *DevGateway {
	return &DevGateway{logger: logger}
}

// Send records the message and logs it
func (g *DevGateway) Send(msg Message) error {
	g.mu.Lock()
	g.sent = append(g.sent, msg)
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email (dev mode, not sent)")

	return nil
}

// Sent returns a copy of everything sent so far
func (g *DevGateway) Sent() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Message, len(g.sent))
	copy(out, g.sent)
	return out
}
