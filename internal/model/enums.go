package model

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// SellMode selects which price tier an order uses.
type SellMode string

const (
	SellRetail    SellMode = "retail"
	SellWholesale SellMode = "wholesale"
)

func ParseSellMode(s string) (SellMode, error) {
	switch m := SellMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SellRetail, SellWholesale:
		return m, nil
	}
	return "", fmt.Errorf("unknown sell mode %q", s)
}

type DiscountMode string

const (
	DiscountNone       DiscountMode = "none"
	DiscountPercentage DiscountMode = "percentage"
	DiscountAmount     DiscountMode = "amount"
)

// ParseDiscountMode treats an empty string as DiscountNone.
func ParseDiscountMode(s string) (DiscountMode, error) {
	switch m := DiscountMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DiscountNone, nil
	case DiscountNone, DiscountPercentage, DiscountAmount:
		return m, nil
	}
	return "", fmt.Errorf("unknown discount mode %q", s)
}

type PaymentMethod string

const (
	PayCash    PaymentMethod = "cash"
	PayKPay    PaymentMethod = "kpay"
	PayWavePay PaymentMethod = "wavepay"
	PayBanking PaymentMethod = "banking"
	PayCard    PaymentMethod = "card"
)

var paymentLabels = map[PaymentMethod]string{
	PayCash:    "Cash",
	PayKPay:    "Kpay",
	PayWavePay: "WavePay",
	PayBanking: "Banking",
	PayCard:    "Card",
}

var paymentAliases = map[string]PaymentMethod{
	"bank_transfer": PayBanking,
	"bank":          PayBanking,
}

// ParsePaymentMethod matches case-insensitively and accepts a few aliases
// for bank payments.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if alias, ok := paymentAliases[string(m)]; ok {
		return alias, nil
	}
	if _, ok := paymentLabels[m]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// Label is the printable name of the payment method.
func (m PaymentMethod) Label() string {
	if l, ok := paymentLabels[m]; ok {
		return l
	}
	return string(m)
}

// Period is a reporting bucket granularity.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod defaults an empty period to monthly.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodMonthly, nil
	case PeriodMonthly, PeriodYearly:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}
