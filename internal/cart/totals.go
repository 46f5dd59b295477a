package cart

import (
	"fmt"
	"math"
)

const (
	// TaxRate is the flat sales-tax rate applied to the cart subtotal.
	TaxRate = 0.05
	// DeliveryFee is the flat delivery charge added to every order.
	DeliveryFee = 5.0
)

// Totals is the advisory price breakdown shown before submission. The server
// recomputes the authoritative total when the order is created; these values
// accumulate un-rounded and are rounded only for display.
type Totals struct {
	Subtotal    float64
	Tax         float64
	DeliveryFee float64
	Total       float64
}

// Compute builds the breakdown for a set of cart items. Each line contributes
// effective price times quantity; rounding happens at display time only, so
// intermediate sums keep full float precision.
func Compute(items []Item) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Medication.EffectivePrice() * float64(item.Quantity)
	}
	tax := subtotal * TaxRate
	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: DeliveryFee,
		Total:       subtotal + tax + DeliveryFee,
	}
}

// Cents rounds a dollar amount to whole cents.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// DisplayString formats a dollar amount for presentation.
func DisplayString(amount float64) string {
	return fmt.Sprintf("$%.2f", float64(Cents(amount))/100)
}
