package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"

	"github.com/rs/zerolog"
)

var receiptTemplate = template.Must(template.New("payment-confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Payment Confirmation</h1>
  <p>Dear {{if .CustomerName}}{{.CustomerName}}{{else}}Customer{{end}},</p>
  <p>Thank you for your payment! Your transaction has been processed successfully.</p>
  <p>
    {{if .Item}}<strong>{{.ItemLabel}}:</strong> {{.Item}}<br>{{end}}
    <strong>Amount:</strong> {{.Amount}}<br>
    {{if .Card}}<strong>Card:</strong> {{.Card}}<br>{{end}}
    <strong>Transaction ID:</strong> {{.PaymentID}}
  </p>
  {{if .ReceiptURL}}<p><a href="{{.ReceiptURL}}">View your receipt</a></p>{{end}}
  <p>We'll be in touch soon with more details.</p>
  <p style="font-size: 12px; color: #888;">GDS Puppies Deluxe</p>
</body>
</html>`))

type receiptView struct {
	CustomerName string
	ItemLabel    string
	Item         string
	Amount       string
	Card         string
	PaymentID    string
	ReceiptURL   string
}

// NotificationServiceImpl renders customer receipts and hands them to a mailer.
type NotificationServiceImpl struct {
	mailer ports.Mailer
	log    zerolog.Logger
}

// NewNotificationService creates a notification service. A nil mailer disables delivery.
func NewNotificationService(mailer ports.Mailer, log zerolog.Logger) *NotificationServiceImpl {
	return &NotificationServiceImpl{mailer: mailer, log: log}
}

// SendReceipt emails the payment confirmation for a captured payment.
func (s *NotificationServiceImpl) SendReceipt(ctx context.Context, receipt domain.Receipt) error {
	if strings.TrimSpace(receipt.Email) == "" {
		return errors.New("receipt has no recipient")
	}
	if s.mailer == nil {
		s.log.Debug().Str("payment_id", receipt.PaymentID).Msg("mail disabled, receipt not sent")
		return ports.ErrMailDisabled
	}

	msg, err := renderReceipt(receipt)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending receipt for %s: %w", receipt.PaymentID, err)
	}

	s.log.Info().
		Str("payment_id", receipt.PaymentID).
		Str("checkout_type", string(receipt.CheckoutType)).
		Msg("receipt sent")
	return nil
}

func renderReceipt(r domain.Receipt) (ports.MailMessage, error) {
	view := receiptView{
		CustomerName: r.CustomerName,
		Item:         r.ItemID,
		ItemLabel:    itemLabel(r.CheckoutType),
		Amount:       domain.FormatMinorUnits(r.Amount, r.Currency),
		PaymentID:    r.PaymentID,
		ReceiptURL:   r.ReceiptURL,
	}
	if r.CardLast4 != "" {
		view.Card = strings.TrimSpace(r.CardBrand + " ending in " + r.CardLast4)
	}

	var html bytes.Buffer
	if err := receiptTemplate.Execute(&html, view); err != nil {
		return ports.MailMessage{}, fmt.Errorf("rendering receipt: %w", err)
	}

	subject := "Payment Confirmation"
	if view.Item != "" {
		subject += " - " + view.Item
	}

	text := fmt.Sprintf("Thank you for your payment of %s.\nTransaction ID: %s\n", view.Amount, view.PaymentID)
	if view.ReceiptURL != "" {
		text += "Receipt: " + view.ReceiptURL + "\n"
	}

	return ports.MailMessage{
		To:      r.Email,
		ToName:  r.CustomerName,
		Subject: subject,
		HTML:    html.String(),
		Text:    text,
	}, nil
}

func itemLabel(t domain.CheckoutType) string {
	switch t {
	case domain.CheckoutTypeAdoption:
		return "Puppy"
	case domain.CheckoutTypeService:
		return "Service"
	default:
		return "Item"
	}
}
