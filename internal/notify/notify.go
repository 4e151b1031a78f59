// Package notify delivers claim-link messages to transfer recipients.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrNoContact = errors.New("recipient has no deliverable contact")

// EmailSender sends a plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender sends a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ClaimMessage is what a claim-link recipient needs to redeem funds.
type ClaimMessage struct {
	TransferID     string
	SenderName     string
	Amount         string
	Currency       string
	ClaimURL       string
	RecipientEmail string
	RecipientPhone string
	UnlockCode     string
	ExpiresAt      time.Time
}

// ClaimNotifier sends the claim link by email and the unlock code by SMS.
// The code is never part of the email.
type ClaimNotifier struct {
	email EmailSender
	sms   SMSSender
}

func NewClaimNotifier(email EmailSender, sms SMSSender) *ClaimNotifier {
	return &ClaimNotifier{email: email, sms: sms}
}

// NotifyClaim delivers msg. Any delivery failure is returned to the caller.
func (n *ClaimNotifier) NotifyClaim(ctx context.Context, msg ClaimMessage) error {
	if msg.RecipientEmail == "" && msg.RecipientPhone == "" {
		return ErrNoContact
	}

	if msg.RecipientEmail != "" {
		subject := fmt.Sprintf("%s sent you %s %s", msg.SenderName, msg.Amount, msg.Currency)
		if err := n.email.SendEmail(ctx, msg.RecipientEmail, subject, claimEmailBody(msg)); err != nil {
			return fmt.Errorf("send claim email: %w", err)
		}
	}

	if msg.RecipientPhone != "" && n.sms != nil {
		body := fmt.Sprintf("Your unlock code for the %s %s transfer from %s is %s", msg.Amount, msg.Currency, msg.SenderName, msg.UnlockCode)
		if err := n.sms.SendSMS(ctx, msg.RecipientPhone, body); err != nil {
			return fmt.Errorf("send claim sms: %w", err)
		}
	}
	return nil
}

func claimEmailBody(msg ClaimMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s sent you %s %s.\n\n", msg.SenderName, msg.Amount, msg.Currency)
	fmt.Fprintf(&b, "Claim it here: %s\n\n", msg.ClaimURL)
	b.WriteString("You will need the unlock code the sender shared with you.")
	if !msg.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, " The link expires at %s.", msg.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n")
	return b.String()
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func (LogSender) SendEmail(ctx context.Context, to, subject, body string) error {
	zap.L().Info("email notification", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (LogSender) SendSMS(ctx context.Context, to, body string) error {
	zap.L().Info("sms notification", zap.String("to", to))
	return nil
}
