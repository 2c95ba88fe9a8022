package testemail

import (
	"fmt"

	"github.com/spf13/cobra"

	"formlens/internal/infrastructure/config"
	"formlens/internal/infrastructure/email"
)

var (
	env string
	to  string
)

// NewCommand builds the test-email command, which sends a canned message
// through the configured SMTP server to verify delivery end to end.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a test email to verify SMTP configuration",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Email.SMTPHost == "" {
		return email.ErrEmailServiceNotConfigured
	}

	svc := email.NewSMTPEmailService(cfg.Email)
	if err := svc.SendTestEmail(to); err != nil {
		return err
	}

	fmt.Printf("Test email sent to %s\n", to)
	return nil
}
