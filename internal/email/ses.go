package email

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/go-faster/errors"
)

var _ Sender = (*SESSender)(nil)

// SESSender delivers mail through AWS SES. Credentials and region come from
// the standard AWS environment/config chain.
type SESSender struct {
	client *sesv2.Client
	from   string
}

// NewSESSender loads the default AWS configuration and returns a Sender that
// sends from the given verified address.
func NewSESSender(ctx context.Context, from string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return &SESSender{
		client: sesv2.NewFromConfig(cfg),
		from:   from,
	}, nil
}

// Send delivers a single HTML+text email.
func (s *SESSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
					Text: &types.Content{Data: aws.String(textBody)},
				},
			},
		},
	})
	return errors.Wrap(err, "send email")
}
