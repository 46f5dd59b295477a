package enums

import "testing"

func TestOrderStatusStep(t *testing.T) {
	t.Parallel()

	cases := map[OrderStatus]int{
		OrderStatusPending:        0,
		OrderStatusConfirmed:      1,
		OrderStatusPreparing:      2,
		OrderStatusOutForDelivery: 3,
		OrderStatusDelivered:      4,
		OrderStatusCancelled:      0,
		OrderStatus("bogus"):      0,
	}
	for status, want := range cases {
		if got := status.Step(); got != want {
			t.Fatalf("%s: expected step %d, got %d", status, want, got)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	t.Parallel()

	if _, err := ParseOrderStatus("out_for_delivery"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if OrderStatusCancelled.IsTerminal() != true || OrderStatusPreparing.IsTerminal() {
		t.Fatal("terminal classification wrong")
	}
}
