package enums

// PaymentMethodCode references a row in the payment_methods lookup table.
// Dealers configure their own methods, so codes are validated against the
// table rather than a closed set.
type PaymentMethodCode string

const (
	PaymentMethodEfectivo      PaymentMethodCode = "efectivo"
	PaymentMethodTransferencia PaymentMethodCode = "transferencia"
	PaymentMethodTarjeta       PaymentMethodCode = "tarjeta"
	PaymentMethodCheque        PaymentMethodCode = "cheque"
	PaymentMethodFinanciacion  PaymentMethodCode = "financiacion"
)

// String implements fmt.Stringer.
func (p PaymentMethodCode) String() string {
	return string(p)
}
