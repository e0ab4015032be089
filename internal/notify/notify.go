// Package notify delivers transactional email outside the request path.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sirupsen/logrus"
)

// Message is a single outbound email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeMessage builds the email sent after a successful signup.
func WelcomeMessage(username, email string) Message {
	return Message{
		ToEmail: email,
		ToName:  username,
		Subject: "Welcome to Votronix!",
		HTML: fmt.Sprintf("<h1>Hello %s,</h1><p>Welcome to Votronix! Your account has been created successfully.</p>",
			html.EscapeString(username)),
	}
}

// LogSender only logs; used when no email provider is configured.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	}).Info("email provider not configured, skipping send")
	return nil
}
