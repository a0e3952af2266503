package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/wolfman30/westek-leads/internal/archive"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

// SESAPI is the part of the SES v2 client lead notifications use.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures SESSender. ConfigurationSet is optional and routes
// delivery events to the set's destinations.
type SESConfig struct {
	FromEmail        string
	FromName         string
	ConfigurationSet string
}

// SESSender delivers lead notifications through SES v2.
type SESSender struct {
	client SESAPI
	from   string
	cfgSet string
	logger *logging.Logger
}

// NewSESSender returns nil without a client.
func NewSESSender(client SESAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	name := cfg.FromName
	if name == "" {
		name = DefaultFromName
	}
	return &SESSender{
		client: client,
		from:   fmt.Sprintf("%s <%s>", name, cfg.FromEmail),
		cfgSet: strings.TrimSpace(cfg.ConfigurationSet),
		logger: logger,
	}
}

// Send implements EmailSender.
func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{Simple: &types.Message{
			Subject: utf8(msg.Subject),
			Body:    &types.Body{Text: optionalUTF8(msg.Body), Html: optionalUTF8(msg.HTML)},
		}},
		EmailTags: sesTags(msg.Tags),
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	if s.cfgSet != "" {
		input.ConfigurationSetName = aws.String(s.cfgSet)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("notify: ses send failed", "error", err, "to", archive.RedactEmail(msg.To))
		return fmt.Errorf("notify: ses send: %w", err)
	}
	s.logger.Info("notify: lead email sent via ses",
		"to", archive.RedactEmail(msg.To),
		"message_id", aws.ToString(out.MessageId),
	)
	return nil
}

func utf8(v string) *types.Content {
	return &types.Content{Data: aws.String(v), Charset: aws.String("UTF-8")}
}

func optionalUTF8(v string) *types.Content {
	if v == "" {
		return nil
	}
	return utf8(v)
}

// sesTags converts tags to SES message tags. SES accepts only ASCII letters,
// digits, '_' and '-', so other characters become '_'. Keys are sorted.
func sesTags(tags map[string]string) []types.MessageTag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.MessageTag, 0, len(keys))
	for _, k := range keys {
		name, value := sesTagValue(k), sesTagValue(tags[k])
		if name == "" || value == "" {
			continue
		}
		out = append(out, types.MessageTag{Name: aws.String(name), Value: aws.String(value)})
	}
	return out
}

func sesTagValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 256 {
		s = s[:256]
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

var _ EmailSender = (*SESSender)(nil)
