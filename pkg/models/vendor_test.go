package models

import (
	"encoding/json"
	"testing"
)

func TestVendorRefDecodesBothVariants(t *testing.T) {
	t.Parallel()

	var ref VendorRef
	if err := json.Unmarshal([]byte(`"662f1c9a"`), &ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Expanded() || ref.VendorID() != "662f1c9a" {
		t.Fatalf("expected bare reference, got %+v", ref)
	}

	doc := []byte(`{"_id":"662f1c9a","businessName":"MediSupply","deliveryCapability":true,"rating":4.5}`)
	if err := json.Unmarshal(doc, &ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ref.Expanded() || ref.Vendor.BusinessName != "MediSupply" || ref.VendorID() != "662f1c9a" {
		t.Fatalf("expected expanded vendor, got %+v", ref)
	}

	if err := json.Unmarshal([]byte("null"), &ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Expanded() || ref.VendorID() != "" {
		t.Fatalf("expected empty ref for null, got %+v", ref)
	}

	if err := json.Unmarshal([]byte("42"), &ref); err == nil {
		t.Fatal("expected error for numeric vendor ref")
	}
}

func TestVendorRefMarshalsAsID(t *testing.T) {
	t.Parallel()

	ref := VendorRef{Vendor: &Vendor{ID: "abc"}}
	out, err := json.Marshal(ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"abc"` {
		t.Fatalf("expected id form, got %s", out)
	}
}
