package models

// RecordStatus is the purchase record lifecycle state. The only transition is
// saved -> posted; there is no reverse transition.
type RecordStatus string

const (
	RecordStatusSaved  RecordStatus = "saved"
	RecordStatusPosted RecordStatus = "posted"
)

// ActionType labels an activity log entry.
type ActionType string

const (
	ActionTypeInsert ActionType = "INSERT"
	ActionTypeUpdate ActionType = "UPDATE"
	ActionTypeDelete ActionType = "DELETE"
)

// WriteOrigin parameterizes the domain write path. Only local-origin writes
// emit outbox entries; replayed writes come from a remote log entry and must
// not echo back out.
type WriteOrigin string

const (
	OriginLocal    WriteOrigin = "local"
	OriginReplayed WriteOrigin = "replayed"
)

// Canonical table names used in activity log entries.
const (
	TableVendors         = "vendors"
	TableItems           = "items"
	TableCategories      = "categories"
	TableSubcategories   = "subcategories"
	TablePurchaseRecords = "purchase_records"
)

// CheckpointLastAppliedRemoteSequence is the single checkpoint key maintained
// by the sync pull phase.
const CheckpointLastAppliedRemoteSequence = "last_applied_remote_sequence"
