package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envio de invitaciones de acompanamiento.
type Sender interface {
	SendSupporterInvitation(ctx context.Context, toEmail string, ownerName string, invitationID string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendSupporterInvitation(_ context.Context, _ string, _ string, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
