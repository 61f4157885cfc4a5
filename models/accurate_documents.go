package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Header/detail tables mirroring Accurate documents. Primary keys are the
// Accurate-side ids, so upserts are keyed by the upstream identity and
// repeated syncs converge on the latest upstream state.

type AccuratePurchaseOrder struct {
	ID           int             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Number       string          `gorm:"size:64;index;not null" json:"number"`
	VendorId     *int            `json:"vendor_id"`
	VendorName   string          `gorm:"size:255" json:"vendor_name"`
	TransDate    *string         `gorm:"size:10" json:"trans_date"`
	StatusName   string          `gorm:"size:50" json:"status_name"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_amount"`
	CurrencyCode string          `gorm:"size:10" json:"currency_code"`
	BranchId     *int            `json:"branch_id"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type AccuratePurchaseOrderItem struct {
	ID              int             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	PoId            int             `gorm:"index;not null" json:"po_id"`
	ItemCode        string          `gorm:"size:64;index" json:"item_code"`
	ItemName        string          `gorm:"size:255" json:"item_name"`
	Quantity        float64         `json:"quantity"`
	UnitName        string          `gorm:"size:32" json:"unit_name"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_price"`
	ItemDiscPercent decimal.Decimal `gorm:"type:decimal(8,4)" json:"item_disc_percent"`
	DetailNotes     string          `gorm:"type:text" json:"detail_notes"`
	ItemSeq         int             `json:"item_seq"`
	HsoNumber       *string         `gorm:"size:64;index" json:"hso_number"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type AccurateDeliveryOrder struct {
	ID           int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Number       string    `gorm:"size:64;index;not null" json:"number"`
	CustomerId   *int      `json:"customer_id"`
	CustomerName string    `gorm:"size:255" json:"customer_name"`
	TransDate    *string   `gorm:"size:10" json:"trans_date"`
	StatusName   string    `gorm:"size:50" json:"status_name"`
	ShipTo       string    `gorm:"type:text" json:"ship_to"`
	DriverName   string    `gorm:"size:255" json:"driver_name"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type AccurateDeliveryOrderItem struct {
	ID          int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DoId        int       `gorm:"index;not null" json:"do_id"`
	ItemCode    string    `gorm:"size:64;index" json:"item_code"`
	ItemName    string    `gorm:"size:255" json:"item_name"`
	Quantity    float64   `json:"quantity"`
	UnitName    string    `gorm:"size:32" json:"unit_name"`
	DetailNotes string    `gorm:"type:text" json:"detail_notes"`
	ItemSeq     int       `json:"item_seq"`
	HsoNumber   *string   `gorm:"size:64;index" json:"hso_number"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	ShipmentStatusPendingProcess  = "Pending Process"
	ShipmentStatusFollowUpFactory = "Follow up to factory"

	ShipmentTypeImportPO = "IMPORT_PO"
)

// Shipment tracks one sales-order line on its way through the factory chain.
// HpoNumber is a set-once link: written when first discovered, never
// overwritten by a later sync pass.
type Shipment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SoId          string    `gorm:"size:64;uniqueIndex:idx_shipment_so_item,priority:1;not null" json:"so_id"`
	ItemCode      string    `gorm:"size:64;uniqueIndex:idx_shipment_so_item,priority:2;not null" json:"item_code"`
	HpoNumber     string    `gorm:"size:64" json:"hpo_number"`
	CurrentStatus string    `gorm:"size:64" json:"current_status"`
	StatusDate    *string   `gorm:"size:10" json:"status_date"`
	ShipmentType  string    `gorm:"size:32" json:"shipment_type"`
	AdminNotes    string    `gorm:"type:text" json:"admin_notes"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
