package domain

import "fmt"

// Receipt is the payload of the post-commit confirmation email.
type Receipt struct {
	PaymentID    string       `json:"paymentId"`
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	Email        string       `json:"email"`
	CustomerName string       `json:"customerName,omitempty"`
	CheckoutType CheckoutType `json:"checkoutType,omitempty"`
	ItemID       string       `json:"itemId,omitempty"`
	ReceiptURL   string       `json:"receiptUrl,omitempty"`
	CardBrand    string       `json:"cardBrand,omitempty"`
	CardLast4    string       `json:"cardLast4,omitempty"`
}

// FormatMinorUnits renders an amount for two-decimal currencies, e.g. 5000 USD -> "50.00 USD".
func FormatMinorUnits(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
