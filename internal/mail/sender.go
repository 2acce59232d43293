package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
)

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewProviderSender returns the sender that talks to cfg.Provider.
func NewProviderSender(cfg config.MailConfig, log zerolog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "resend":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("mail.apikey is required for the resend provider")
		}
		return NewResendSender(cfg.APIKey, cfg.From), nil
	case "log", "":
		return NewLogSender(log), nil
	}
	return nil, fmt.Errorf("unsupported mail provider %q", cfg.Provider)
}

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	rendered, err := Render(msg)
	if err != nil {
		return err
	}
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: rendered.Subject,
		Html:    rendered.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("resend_id", sent.Id).Str("kind", string(msg.Kind)).Msg("email sent")
	return nil
}

// LogSender writes messages to the log instead of sending them. It is the
// development default, so codes are logged in clear.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	rendered, err := Render(msg)
	if err != nil {
		return err
	}
	s.log.Info().
		Str("to", msg.To).
		Str("kind", string(msg.Kind)).
		Str("subject", rendered.Subject).
		Str("code", msg.Code).
		Msg("email (log provider)")
	return nil
}
