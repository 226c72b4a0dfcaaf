package client

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"ticketing-service/internal/config"
	"ticketing-service/internal/util"
)

// TwilioClient delivers one-time codes over SMS.
type TwilioClient struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioClient(cfg *config.Config, logger *zap.Logger) (*TwilioClient, error) {
	twilioConfig := cfg.Twilio

	if twilioConfig.AccountSID == "" || twilioConfig.AuthToken == "" || twilioConfig.FromNumber == "" {
		return nil, fmt.Errorf("missing Twilio credentials in configuration")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: twilioConfig.AccountSID,
		Password: twilioConfig.AuthToken,
	})

	util.Info("Twilio client initialized", zap.String("from", twilioConfig.FromNumber))

	return &TwilioClient{
		client: client,
		from:   twilioConfig.FromNumber,
	}, nil
}

// SendSMS sends a plain text message to an E.164 number.
func (t *TwilioClient) SendSMS(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	util.Debug("SMS dispatched", zap.String("to", to), zap.String("sid", sid))
	return nil
}
