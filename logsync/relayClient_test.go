package logsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/models"
)

func TestHTTPRelayClient_Send(t *testing.T) {
	var gotPath, gotKey string
	var gotBody pushRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPRelayClient(srv.URL, "secret", 5*time.Second)
	batch := []models.ActivityLog{
		{ID: 1, ActionType: models.ActionTypeInsert, TableName: models.TablePurchaseRecords, RecordId: 10},
		{ID: 2, ActionType: models.ActionTypeDelete, TableName: models.TableVendors, RecordId: 3},
	}
	if err := client.Send(context.Background(), batch); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/v1/logs" {
		t.Fatalf("path = %q, want /v1/logs", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header = %q, want secret", gotKey)
	}
	if len(gotBody.Entries) != 2 {
		t.Fatalf("relay received %d entries, want 2", len(gotBody.Entries))
	}
}

func TestHTTPRelayClient_SendErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPRelayClient(srv.URL, "", time.Second)
	err := client.Send(context.Background(), []models.ActivityLog{{ID: 1}})
	if err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestHTTPRelayClient_FetchSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since"); got != "41" {
			t.Errorf("since = %q, want 41", got)
		}
		_ = json.NewEncoder(w).Encode(fetchResponse{
			Entries: []RemoteLogEntry{
				{Sequence: 42, ActionType: models.ActionTypeInsert, TableName: models.TablePurchaseRecords, RecordId: 5},
				{Sequence: 43, ActionType: models.ActionTypeDelete, TableName: models.TableItems, RecordId: 9},
			},
			MaxSequence: 43,
		})
	}))
	defer srv.Close()

	client := NewHTTPRelayClient(srv.URL, "", time.Second)
	entries, maxSeq, err := client.FetchSince(context.Background(), 41)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Sequence != 42 || entries[1].Sequence != 43 {
		t.Fatalf("sequences = %d,%d, want 42,43", entries[0].Sequence, entries[1].Sequence)
	}
	if maxSeq != 43 {
		t.Fatalf("maxSequence = %d, want 43", maxSeq)
	}
}

func TestHTTPRelayClient_FetchSinceErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPRelayClient(srv.URL, "", time.Second)
	if _, _, err := client.FetchSince(context.Background(), 0); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}
