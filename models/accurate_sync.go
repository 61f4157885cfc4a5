package models

import "time"

const (
	SyncDocTypePurchaseOrder = "purchase-order"
	SyncDocTypeDeliveryOrder = "delivery-order"
	SyncDocTypeSalesOrder    = "sales-order"
)

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredPubSub = "pubsub"
	SyncTriggeredCLI    = "cli"
)

type AccurateSyncRun struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	DocType     string     `gorm:"index;size:32;not null" json:"doc_type"`
	Page        int        `json:"page"`
	Status      string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy string     `gorm:"size:20" json:"triggered_by"`
	Processed   int        `json:"processed"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	HasMore     bool       `json:"has_more"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	DurationMs  int64      `json:"duration_ms"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type AccurateSyncError struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	DocType     string    `gorm:"size:32" json:"doc_type"`
	DocNumber   string    `gorm:"size:64" json:"doc_number"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
