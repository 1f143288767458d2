// Package sender формирует письма из очереди уведомлений и отправляет их по SMTP.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/cortex/internal/lib/metrics"
	"github.com/magabrotheeeer/cortex/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/lib/smtp"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// Service отправляет письма через SMTP транспорт.
type Service struct {
	transport   smtp.TransportInterface
	frontendURL string
	log         *slog.Logger
}

// New создает новый экземпляр Service. frontendURL используется в ссылке сброса пароля.
func New(transport smtp.TransportInterface, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		transport:   transport,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// Handle обрабатывает одно сообщение очереди notifications.email.
func (s *Service) Handle(_ context.Context, body []byte) error {
	const op = "sender.Handle"

	var msg models.EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrDiscard, err)
	}
	if msg.To == "" {
		return fmt.Errorf("%s: %w: empty recipient", op, rabbitmq.ErrDiscard)
	}

	subject, text, err := s.render(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sendEmail([]string{msg.To}, subject, text); err != nil {
		metrics.NotificationsFailed.WithLabelValues(msg.Kind).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) render(msg models.EmailMessage) (subject, body string, err error) {
	switch msg.Kind {
	case models.EmailVerification:
		subject = "Verify your Cortex AI account"
		body = fmt.Sprintf("Welcome to Cortex AI!\n\n"+
			"Your verification code is: %s\n\n"+
			"This code will expire in 24 hours.\n\n"+
			"If you didn't create an account, please ignore this email.", msg.Code)
	case models.EmailPasswordReset:
		link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(msg.Token)
		subject = "Reset your Cortex AI password"
		body = fmt.Sprintf("You requested to reset your password.\n\n"+
			"Click the link below to reset your password:\n%s\n\n"+
			"This link will expire in 1 hour.\n\n"+
			"If you didn't request this, please ignore this email.", link)
	case models.EmailSubscriptionActivated:
		subject = fmt.Sprintf("Welcome to %s!", msg.PlanName)
		body = fmt.Sprintf("Hello, %s!\n\nYour subscription to %s has been activated!\n\n", msg.Username, msg.PlanName)
		if msg.Balance > 0 {
			body += fmt.Sprintf("Your balance: %d tokens.\n", msg.Balance)
		}
		if msg.EndDate != nil {
			body += fmt.Sprintf("Active until %s.\n", msg.EndDate.Format("2006-01-02"))
		}
		body += "\nThank you for choosing Cortex AI!"
	case models.EmailSubscriptionFailed:
		subject = "Payment Failed"
		body = fmt.Sprintf("We couldn't process your payment for %s.\n\n"+
			"Please check your payment method and try again.\n\n"+
			"If you need help, contact our support team.", msg.PlanName)
	case models.EmailSubscriptionExpiring:
		subject = "Your Cortex AI subscription ends soon"
		endDate := "soon"
		if msg.EndDate != nil {
			endDate = "on " + msg.EndDate.Format("2006-01-02")
		}
		body = fmt.Sprintf("Hello, %s!\n\nYour %s subscription ends %s and will not renew automatically.\n\n"+
			"Visit your dashboard to choose a plan.", msg.Username, msg.PlanName, endDate)
	case models.EmailLowBalance:
		subject = "Low Token Balance"
		body = fmt.Sprintf("Your token balance is running low: %d tokens remaining.\n\n"+
			"Consider upgrading your subscription to continue generating images.\n\n"+
			"Visit your dashboard to manage your subscription.", msg.Balance)
	default:
		return "", "", fmt.Errorf("%w: unknown email kind %q", rabbitmq.ErrDiscard, msg.Kind)
	}
	return subject, body, nil
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
