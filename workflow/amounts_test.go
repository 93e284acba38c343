package workflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the amount
// computation and intent validation semantics; integration tests covering
// the full transactional path live in the models package.

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeRecordAmounts_VatInCurrentPeriod(t *testing.T) {
	base, vat, total := computeRecordAmounts(d("2"), d("10.00"), true, d("15"), true)

	if base.Cmp(d("20.00")) != 0 {
		t.Fatalf("base = %s, want 20.00", base)
	}
	if vat.Cmp(d("3.00")) != 0 {
		t.Fatalf("vat = %s, want 3.00", vat)
	}
	if total.Cmp(d("23.00")) != 0 {
		t.Fatalf("total = %s, want 23.00", total)
	}
}

func TestComputeRecordAmounts_VatFoldedOutsidePeriod(t *testing.T) {
	base, vat, total := computeRecordAmounts(d("2"), d("10.00"), true, d("15"), false)

	if base.Cmp(d("23.00")) != 0 {
		t.Fatalf("base = %s, want 23.00 (vat folded in)", base)
	}
	if !vat.IsZero() {
		t.Fatalf("vat = %s, want 0", vat)
	}
	if total.Cmp(d("23.00")) != 0 {
		t.Fatalf("total = %s, want 23.00", total)
	}
}

func TestComputeRecordAmounts_VatOff(t *testing.T) {
	for _, inPeriod := range []bool{true, false} {
		base, vat, total := computeRecordAmounts(d("3"), d("7.50"), false, d("15"), inPeriod)

		if base.Cmp(d("22.50")) != 0 {
			t.Fatalf("inPeriod=%v: base = %s, want 22.50", inPeriod, base)
		}
		if !vat.IsZero() {
			t.Fatalf("inPeriod=%v: vat = %s, want 0", inPeriod, vat)
		}
		if total.Cmp(d("22.50")) != 0 {
			t.Fatalf("inPeriod=%v: total = %s, want 22.50", inPeriod, total)
		}
	}
}

func TestComputeRecordAmounts_TotalIsBasePlusVat(t *testing.T) {
	cases := []struct {
		qty, price, pct string
		vatOn, inPeriod bool
	}{
		{"1", "9.99", "5", true, true},
		{"7", "13.33", "7.5", true, false},
		{"100", "0.01", "15", true, true},
		{"4", "250", "0", true, true},
		{"4", "250", "15", false, true},
	}
	for _, c := range cases {
		base, vat, total := computeRecordAmounts(d(c.qty), d(c.price), c.vatOn, d(c.pct), c.inPeriod)
		if base.Add(vat).Cmp(total) != 0 {
			t.Fatalf("qty=%s price=%s: base %s + vat %s != total %s", c.qty, c.price, base, vat, total)
		}
	}
}

func TestComputeRecordAmounts_RoundsVatToFourPlaces(t *testing.T) {
	// 3 * 9.99 = 29.97; 29.97 * 7 / 100 = 2.0979 exactly at 4 places.
	_, vat, _ := computeRecordAmounts(d("3"), d("9.99"), true, d("7"), true)
	if vat.Exponent() < -4 {
		t.Fatalf("vat %s has more than 4 decimal places", vat)
	}
}

func TestValidateIntent(t *testing.T) {
	valid := func() *RecordIntent {
		return &RecordIntent{
			VendorTaxId:  "TAX-1",
			VendorName:   "Acme",
			ItemName:     "Bolt",
			CategoryId:   1,
			ComponentKey: "comp-1",
			PurchaseDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			Quantity:     d("1"),
			UnitPrice:    d("2"),
		}
	}

	if err := validateIntent(0, valid()); err != nil {
		t.Fatalf("valid intent rejected: %v", err)
	}

	mutations := map[string]func(*RecordIntent){
		"missing component key": func(i *RecordIntent) { i.ComponentKey = " " },
		"missing purchase date": func(i *RecordIntent) { i.PurchaseDate = time.Time{} },
		"zero quantity":         func(i *RecordIntent) { i.Quantity = decimal.Zero },
		"negative unit price":   func(i *RecordIntent) { i.UnitPrice = d("-1") },
		"no vendor reference":   func(i *RecordIntent) { i.VendorId = 0; i.VendorTaxId = "" },
		"no item reference":     func(i *RecordIntent) { i.ItemId = 0; i.ItemName = "" },
		"negative vat pct": func(i *RecordIntent) {
			i.VatOn = true
			i.VatPercentage = d("-5")
		},
	}
	for name, mutate := range mutations {
		intent := valid()
		mutate(intent)
		if err := validateIntent(0, intent); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}
