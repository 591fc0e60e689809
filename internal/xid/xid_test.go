package xid

import (
	"strings"
	"testing"
	"time"
)

func TestNewUsesPrefix(t *testing.T) {
	a := New("audit")
	b := New("audit")
	if !strings.HasPrefix(a, "audit-") {
		t.Fatalf("expected audit- prefix, got %s", a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
}

func TestInvoiceIsMinuteGranular(t *testing.T) {
	loc := time.FixedZone("AST", 3*3600)
	first := time.Date(2026, 10, 19, 14, 30, 5, 0, loc)
	second := first.Add(40 * time.Second)

	if got := Invoice(first); got != "INV-20261019-1430" {
		t.Fatalf("unexpected invoice id %s", got)
	}
	if Invoice(first) != Invoice(second) {
		t.Fatalf("expected same-minute checkouts to share an invoice id")
	}
}
