package square

import "gds-payments/internal/core/domain"

// declineMessages maps Square error codes to text that is safe to show a buyer.
var declineMessages = map[string]string{
	"GENERIC_DECLINE":              "Your card was declined.",
	"CARD_DECLINED":                "Your card was declined.",
	"INSUFFICIENT_FUNDS":           "Your card has insufficient funds.",
	"CVV_FAILURE":                  "The card security code was rejected.",
	"VERIFY_CVV_FAILURE":           "The card security code was rejected.",
	"ADDRESS_VERIFICATION_FAILURE": "The billing postal code was rejected.",
	"VERIFY_AVS_FAILURE":           "The billing postal code was rejected.",
	"INVALID_EXPIRATION":           "The card expiration date is invalid.",
	"CARD_EXPIRED":                 "The card has expired.",
	"INVALID_CARD":                 "The card details are invalid.",
	"INVALID_CARD_DATA":            "The card details are invalid.",
	"CARD_NOT_SUPPORTED":           "This card type is not supported.",
	"TRANSACTION_LIMIT":            "The amount exceeds the limit for this card.",
	"AMOUNT_TOO_HIGH":              "The amount is too high for this payment method.",
	"CARD_TOKEN_EXPIRED":           "The card session expired. Please re-enter your card.",
	"CARD_TOKEN_USED":              "The card session was already used. Please re-enter your card.",
	"IDEMPOTENCY_KEY_REUSED":       "This payment was already submitted.",
}

var defaultMessages = map[domain.DeclineKind]string{
	domain.DeclineCard:     "Your payment was declined. Please try a different payment method.",
	domain.DeclineInput:    "The payment request was rejected. Please check your payment details.",
	domain.DeclineConflict: "This payment conflicts with an earlier attempt.",
}

func safeMessage(kind domain.DeclineKind, code string) string {
	if msg, ok := declineMessages[code]; ok {
		return msg
	}
	return defaultMessages[kind]
}
