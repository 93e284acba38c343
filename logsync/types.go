package logsync

import (
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
)

// RemoteLogEntry mirrors an ActivityLog row produced by a peer, plus the
// relay-assigned monotonically increasing sequence number.
type RemoteLogEntry struct {
	Sequence   int64             `json:"sequence"`
	Timestamp  time.Time         `json:"timestamp"`
	ActionType models.ActionType `json:"action_type"`
	TableName  string            `json:"table_name"`
	RecordId   int               `json:"record_id"`
	OldObj     json.RawMessage   `json:"old_obj"`
	NewObj     json.RawMessage   `json:"new_obj"`
}

type pushRequest struct {
	Entries []models.ActivityLog `json:"entries"`
}

type fetchResponse struct {
	Entries     []RemoteLogEntry `json:"entries"`
	MaxSequence int64            `json:"max_sequence"`
}

var errUnknownSnapshotTable = errors.New("unknown snapshot table")

// decodeSnapshot turns the free-form snapshot blob into a strongly-typed
// domain value, keyed by table name.
func decodeSnapshot(tableName string, raw []byte) (any, error) {
	switch tableName {
	case models.TablePurchaseRecords:
		var rec models.PurchaseRecord
		if err := utils.UnmarshalFromJSON(raw, &rec); err != nil {
			return nil, err
		}
		return &rec, nil
	case models.TableVendors:
		var vendor models.Vendor
		if err := utils.UnmarshalFromJSON(raw, &vendor); err != nil {
			return nil, err
		}
		return &vendor, nil
	case models.TableItems:
		var item models.Item
		if err := utils.UnmarshalFromJSON(raw, &item); err != nil {
			return nil, err
		}
		return &item, nil
	default:
		return nil, errUnknownSnapshotTable
	}
}

type SyncPubSubPayload struct {
	CorrelationId string `json:"correlation_id"`
	TriggeredBy   string `json:"triggered_by"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}
