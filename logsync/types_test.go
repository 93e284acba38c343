package logsync

import (
	"encoding/json"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"github.com/shopspring/decimal"
)

// The relay stores pushed entries verbatim and serves them back on fetch, so
// a batch serialized by the push side must decode on any peer's pull side.
func TestPushedBatchDecodesAfterRelayEcho(t *testing.T) {
	rec := models.PurchaseRecord{
		ID:           7,
		VendorId:     2,
		ItemId:       3,
		ComponentKey: "assembly-9",
		PurchaseDate: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		Quantity:     decimal.RequireFromString("2"),
		UnitPrice:    decimal.RequireFromString("10.00"),
		VatAmount:    decimal.RequireFromString("3.00"),
		BaseTotal:    decimal.RequireFromString("20.00"),
		TotalAmount:  decimal.RequireFromString("23.00"),
		Status:       models.RecordStatusSaved,
	}
	snap, err := utils.MarshalToJSON(rec)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	pushed := pushRequest{Entries: []models.ActivityLog{{
		ID:         1,
		Timestamp:  time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		ActionType: models.ActionTypeInsert,
		TableName:  models.TablePurchaseRecords,
		RecordId:   rec.ID,
		NewObj:     models.Snapshot(snap),
		UserId:     1,
		UserName:   "Test",
	}}}
	body, err := json.Marshal(pushed)
	if err != nil {
		t.Fatalf("marshal push request: %v", err)
	}

	// Field-for-field echo: the pushed entries come straight back as the
	// fetch payload.
	var resp fetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal echoed batch: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("expected 1 echoed entry, got %d", len(resp.Entries))
	}

	decoded, err := decodeSnapshot(resp.Entries[0].TableName, resp.Entries[0].NewObj)
	if err != nil {
		t.Fatalf("decode echoed snapshot: %v", err)
	}
	got, ok := decoded.(*models.PurchaseRecord)
	if !ok {
		t.Fatalf("expected *models.PurchaseRecord, got %T", decoded)
	}
	if got.ID != rec.ID || got.ComponentKey != rec.ComponentKey {
		t.Fatalf("identity fields lost in transit: got %+v", got)
	}
	if !got.TotalAmount.Equal(rec.TotalAmount) || !got.VatAmount.Equal(rec.VatAmount) {
		t.Fatalf("amounts lost in transit: got total=%s vat=%s",
			got.TotalAmount, got.VatAmount)
	}
}
