package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSMSSender delivers SMS through the Twilio messages API.
type TwilioSMSSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSMSSender authenticates with an API key pair scoped to accountSID.
func NewTwilioSMSSender(accountSID, keySID, keySecret, from string) (*TwilioSMSSender, error) {
	if accountSID == "" || keySID == "" || keySecret == "" {
		return nil, errors.New("twilio credentials are not configured")
	}
	if from == "" {
		return nil, errors.New("twilio sender number is not configured")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   keySID,
		Password:   keySecret,
		AccountSid: accountSID,
	})
	return &TwilioSMSSender{client: client, from: from}, nil
}

func (s *TwilioSMSSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}
