package models

import (
	"log"

	"github.com/davidtheosimaremare/hso/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&AccuratePurchaseOrder{}, &AccuratePurchaseOrderItem{},
		&AccurateDeliveryOrder{}, &AccurateDeliveryOrderItem{},
		&Shipment{},
		&AccurateSyncRun{}, &AccurateSyncError{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
