package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridSender(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "clinic@example.com"}, nil))

	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "clinic@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, defaultFromName, sender.fromName)

	sender = NewSendGridSender(SendGridConfig{APIKey: "key", FromName: "Front Desk"}, nil)
	assert.Equal(t, "Front Desk", sender.fromName)
}

func TestSendGridSender_BuildsTaggedMessage(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "key",
		FromEmail: "clinic@example.com",
		ReplyTo:   "desk@example.com",
		Sandbox:   true,
	}, nil)
	require.NotNil(t, sender)

	m := sender.build(EmailMessage{
		To:        "pat@example.com",
		ToName:    "Pat",
		Subject:   "Appointment confirmed",
		Body:      "See you soon.",
		Category:  CategoryBookingConfirmation,
		Reference: "a1",
	})
	assert.Equal(t, "clinic@example.com", m.From.Address)
	assert.Equal(t, []string{CategoryBookingConfirmation}, m.Categories)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "pat@example.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "a1", m.Personalizations[0].CustomArgs["reference"])
	require.NotNil(t, m.ReplyTo)
	assert.Equal(t, "desk@example.com", m.ReplyTo.Address)
	require.NotNil(t, m.MailSettings)
	require.NotNil(t, m.MailSettings.SandboxMode)
	assert.True(t, *m.MailSettings.SandboxMode.Enable)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "See you soon.", m.Content[1].Value, "html falls back to the text body")

	plain := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "clinic@example.com"}, nil).
		build(EmailMessage{To: "pat@example.com", Body: "x"})
	assert.Empty(t, plain.Categories)
	assert.Nil(t, plain.ReplyTo)
	assert.Nil(t, plain.MailSettings)
	assert.Empty(t, plain.Personalizations[0].CustomArgs)
}

func TestSendGridSender_NotConfigured(t *testing.T) {
	var nilSender *SendGridSender
	assert.Error(t, nilSender.Send(context.Background(), EmailMessage{To: "a@example.com"}))
	assert.Error(t, (&SendGridSender{}).Send(context.Background(), EmailMessage{To: "a@example.com"}))
}

type stubSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (s *stubSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.input = params
	if s.err != nil {
		return nil, s.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))

	api := &stubSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "clinic@example.com"}, nil)
	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "pat@example.com", Subject: "Hi", Body: "text"}))

	require.NotNil(t, api.input)
	assert.Equal(t, "MedCare Assistant <clinic@example.com>", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"pat@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Hi", aws.ToString(api.input.Content.Simple.Subject.Data))
	assert.Equal(t, "text", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	assert.Nil(t, api.input.Content.Simple.Body.Html)
	assert.Empty(t, api.input.EmailTags)
	assert.Empty(t, api.input.ReplyToAddresses)

	sender = NewSESSender(api, SESConfig{FromEmail: "clinic@example.com", ReplyTo: "desk@example.com"}, nil)
	require.NoError(t, sender.Send(context.Background(), EmailMessage{
		To: "pat@example.com", Subject: "Hi", Body: "text", Category: CategoryBookingConfirmation, Reference: "a1",
	}))
	assert.Equal(t, []string{"desk@example.com"}, api.input.ReplyToAddresses)
	require.Len(t, api.input.EmailTags, 2)
	assert.Equal(t, "category", aws.ToString(api.input.EmailTags[0].Name))
	assert.Equal(t, CategoryBookingConfirmation, aws.ToString(api.input.EmailTags[0].Value))
	assert.Equal(t, "a1", aws.ToString(api.input.EmailTags[1].Value))

	api.err = errors.New("throttled")
	assert.ErrorContains(t, sender.Send(context.Background(), EmailMessage{To: "pat@example.com"}), "throttled")
}

func TestStubEmailSender(t *testing.T) {
	assert.NoError(t, NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "x@example.com"}))
}
