// Package mail delivers the HTML digest over SMTP.
package mail

import (
	"fmt"
	"os"

	gomail "gopkg.in/gomail.v2"

	"github.com/spiffcs/pulse/internal/log"
)

// Settings holds the SMTP delivery configuration. The password is only
// ever read from the environment, never from config files.
type Settings struct {
	Host string
	Port int
	User string
	From string
	To   []string
}

// Sender delivers digest emails.
type Sender struct {
	settings Settings
	dial     func(m *gomail.Message) error
}

// NewSender creates a sender from delivery settings.
func NewSender(settings Settings) *Sender {
	s := &Sender{settings: settings}
	s.dial = func(m *gomail.Message) error {
		d := gomail.NewDialer(settings.Host, settings.Port, settings.User, os.Getenv("PULSE_SMTP_PASSWORD"))
		return d.DialAndSend(m)
	}
	return s
}

// Send delivers the rendered HTML digest with the given subject.
func (s *Sender) Send(subject, htmlBody string) error {
	if s.settings.Host == "" || len(s.settings.To) == 0 {
		return fmt.Errorf("smtp host and recipients must be configured to send email")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.settings.From)
	m.SetHeader("To", s.settings.To...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dial(m); err != nil {
		return fmt.Errorf("sending digest email: %w", err)
	}
	log.Info("sent digest email", "to", s.settings.To, "subject", subject)
	return nil
}
