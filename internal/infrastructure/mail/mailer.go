// Package mail delivers credential emails over SMTP. Delivery is one-shot
// and best-effort: the orchestration layer absorbs any error returned here.
package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// Config captures the SMTP transport settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends plaintext mail through a single SMTP account.
type Mailer struct {
	client *gomail.Client
	from   string
	log    zerolog.Logger
}

// NewMailer builds an SMTP client. Auth is only configured when a username
// is set, so a local relay without credentials keeps working.
func NewMailer(cfg Config, log zerolog.Logger) (*Mailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Mailer{client: client, from: cfg.From, log: log}, nil
}

// SendWelcome mails the generated temporary password to a freshly created
// account. No retry, no queueing, no delivery confirmation.
func (m *Mailer) SendWelcome(ctx context.Context, to, username, tempPassword string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("welcome mail: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("welcome mail: %w", err)
	}
	msg.Subject("Welcome to ClubHub: your login credentials")
	msg.SetBodyString(gomail.TypeTextPlain, welcomeBody(username, to, tempPassword))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("welcome mail: %w", err)
	}

	m.log.Info().Str("to", to).Msg("welcome email sent")
	return nil
}

func welcomeBody(username, email, password string) string {
	return fmt.Sprintf(`Welcome to ClubHub!

Your account has been created. Here are your login credentials:

  Username : %s
  Email    : %s
  Password : %s

This is a temporary password. You will be required to change it on your
first login.

Best regards,
The ClubHub Team
`, username, email, password)
}
