package accuratesync

import (
	"context"
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davidtheosimaremare/hso/models"
)

// ErrShipmentExists is returned by CreateShipment when another writer created
// the same (so_id, item_code) row first.
var ErrShipmentExists = errors.New("shipment already exists")

// Store is the persistence boundary of the sync engine. The gorm
// implementation below is the real one; tests substitute in-memory fakes.
type Store interface {
	UpsertPurchaseOrder(ctx context.Context, po *models.AccuratePurchaseOrder) error
	ReplacePurchaseOrderItems(ctx context.Context, poId int, items []models.AccuratePurchaseOrderItem) error
	UpsertDeliveryOrder(ctx context.Context, do *models.AccurateDeliveryOrder) error
	ReplaceDeliveryOrderItems(ctx context.Context, doId int, items []models.AccurateDeliveryOrderItem) error

	FindShipment(ctx context.Context, soId, itemCode string) (*models.Shipment, error)
	SetShipmentLinkOnce(ctx context.Context, shipmentId uint, hpoNumber, statusDate string) (bool, error)
	CreateShipment(ctx context.Context, shipment *models.Shipment) error

	CreateSyncRun(ctx context.Context, run *models.AccurateSyncRun) error
	FinishSyncRun(ctx context.Context, run *models.AccurateSyncRun) error
	CreateSyncError(ctx context.Context, syncErr *models.AccurateSyncError) error
	RecentSyncRuns(ctx context.Context, limit int) ([]models.AccurateSyncRun, error)
	SyncRunByID(ctx context.Context, id uint) (*models.AccurateSyncRun, []models.AccurateSyncError, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) UpsertPurchaseOrder(ctx context.Context, po *models.AccuratePurchaseOrder) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(po).Error
}

// ReplacePurchaseOrderItems swaps the full item set of one PO inside a
// transaction, so readers never observe a partially synced document.
func (s *gormStore) ReplacePurchaseOrderItems(ctx context.Context, poId int, items []models.AccuratePurchaseOrderItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("po_id = ?", poId).Delete(&models.AccuratePurchaseOrderItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (s *gormStore) UpsertDeliveryOrder(ctx context.Context, do *models.AccurateDeliveryOrder) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(do).Error
}

func (s *gormStore) ReplaceDeliveryOrderItems(ctx context.Context, doId int, items []models.AccurateDeliveryOrderItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("do_id = ?", doId).Delete(&models.AccurateDeliveryOrderItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (s *gormStore) FindShipment(ctx context.Context, soId, itemCode string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.WithContext(ctx).
		Where("so_id = ? AND item_code = ?", soId, itemCode).
		First(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// SetShipmentLinkOnce writes hpo_number only when the row has none yet and
// bumps a still-pending shipment forward. Returns false when another pass
// already linked the shipment.
func (s *gormStore) SetShipmentLinkOnce(ctx context.Context, shipmentId uint, hpoNumber, statusDate string) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id = ? AND (hpo_number IS NULL OR hpo_number = '')", shipmentId).
		Update("hpo_number", hpoNumber)
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected == 0 {
		return false, nil
	}

	err := s.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id = ? AND current_status = ?", shipmentId, models.ShipmentStatusPendingProcess).
		Updates(map[string]interface{}{
			"current_status": models.ShipmentStatusFollowUpFactory,
			"status_date":    statusDate,
		}).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *gormStore) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	err := s.db.WithContext(ctx).Create(shipment).Error
	if isDuplicateKeyErr(err) {
		return ErrShipmentExists
	}
	return err
}

func (s *gormStore) CreateSyncRun(ctx context.Context, run *models.AccurateSyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *gormStore) FinishSyncRun(ctx context.Context, run *models.AccurateSyncRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

func (s *gormStore) CreateSyncError(ctx context.Context, syncErr *models.AccurateSyncError) error {
	return s.db.WithContext(ctx).Create(syncErr).Error
}

func (s *gormStore) RecentSyncRuns(ctx context.Context, limit int) ([]models.AccurateSyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.AccurateSyncRun
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (s *gormStore) SyncRunByID(ctx context.Context, id uint) (*models.AccurateSyncRun, []models.AccurateSyncError, error) {
	var run models.AccurateSyncRun
	err := s.db.WithContext(ctx).First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var syncErrs []models.AccurateSyncError
	if err := s.db.WithContext(ctx).
		Where("sync_run_id = ?", id).
		Order("id ASC").
		Find(&syncErrs).Error; err != nil {
		return nil, nil, err
	}
	return &run, syncErrs, nil
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
