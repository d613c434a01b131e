// Package sms defines the contract with the external SMS transport provider.
// The provider itself is an external collaborator; this package only carries
// the interface and a logging implementation for environments without one.
package sms

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Sender delivers a consent link to a patient phone
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

type logSender struct {
	logger *logrus.Logger
}

// NewLogSender returns a Sender that logs instead of dispatching. Used in
// development and tests; production wires a real provider adapter.
func NewLogSender(logger *logrus.Logger) Sender {
	return &logSender{logger: logger}
}

func (s *logSender) Send(ctx context.Context, phone, message string) error {
	s.logger.WithFields(logrus.Fields{
		"phone_suffix": suffix(phone),
		"length":       len(message),
	}).Info("SMS dispatch (log sender)")
	return nil
}

// suffix keeps only the last 3 digits so full numbers never reach the logs
func suffix(phone string) string {
	if len(phone) <= 3 {
		return phone
	}
	return "***" + phone[len(phone)-3:]
}
