package credit

import "strings"

// SettlementStatus is the derived open/paid state of a credit sale
type SettlementStatus string

const (
	StatusOpen SettlementStatus = "em_aberto" // remaining amount > 0
	StatusPaid SettlementStatus = "paga"      // remaining amount == 0
)

// IsValid checks if the status is a known SettlementStatus
func (s SettlementStatus) IsValid() bool {
	return s == StatusOpen || s == StatusPaid
}

// String returns the string representation of SettlementStatus
func (s SettlementStatus) String() string {
	return string(s)
}

// CanApplyPayment returns true if payments can still be registered
func (s SettlementStatus) CanApplyPayment() bool {
	return s == StatusOpen
}

// ParseSettlementStatus accepts the stored values plus the english aliases open/paid
func ParseSettlementStatus(raw string) (SettlementStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(StatusOpen), "open":
		return StatusOpen, true
	case string(StatusPaid), "paid":
		return StatusPaid, true
	}
	return "", false
}

// PaymentMethod is the fixed enumeration of ways a customer can pay an installment
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "dinheiro"
	MethodPix        PaymentMethod = "pix"
	MethodDebitCard  PaymentMethod = "cartao_debito"
	MethodCreditCard PaymentMethod = "cartao_credito"
	MethodTransfer   PaymentMethod = "transferencia"
	MethodOther      PaymentMethod = "outro"
)

// AllPaymentMethods returns every accepted payment method
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{MethodCash, MethodPix, MethodDebitCard, MethodCreditCard, MethodTransfer, MethodOther}
}

// IsValid checks if the method is part of the enumeration
func (m PaymentMethod) IsValid() bool {
	for _, known := range AllPaymentMethods() {
		if m == known {
			return true
		}
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}
