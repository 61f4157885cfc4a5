package accuratesync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidtheosimaremare/hso/config"
	"github.com/davidtheosimaremare/hso/models"
	"github.com/davidtheosimaremare/hso/utils"
)

const (
	syncPageSize     = 100
	crossRefPageSize = 50
	trackingPageSize = 50
	errorSampleLimit = 5

	purchaseOrderListFields = "id,number,transDate,statusName,vendor,totalAmount,currency"
	deliveryOrderListFields = "id,number,transDate,statusName,customer,shipTo,driverName"
	salesOrderListFields    = "id,number,transDate,customer,statusName"

	crossRefStatusExclusions = "Closed,Dibatalkan"
	shipmentAutoNotes        = "Auto-synced dari PO Accurate"
)

var ErrMissingLinkInput = errors.New("soId and soNumber are required")

// Syncer drives one Accurate document flow end to end: list a page, fan out
// detail fetches, sanitize, persist, and record the run.
type Syncer struct {
	client *Client
	store  Store
	policy RetryPolicy
	logger *logrus.Logger
	now    func() time.Time

	// TriggeredBy is stamped on every run row. Defaults to manual.
	TriggeredBy string
}

func NewSyncer(client *Client, store Store, policy RetryPolicy, logger *logrus.Logger) *Syncer {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Syncer{
		client:      client,
		store:       store,
		policy:      policy.normalized(),
		logger:      logger,
		now:         time.Now,
		TriggeredBy: models.SyncTriggeredManual,
	}
}

// SyncPurchaseOrderPage syncs one page of Purchase Orders. Document-level
// failures are counted and recorded but only a list failure aborts the run.
func (s *Syncer) SyncPurchaseOrderPage(ctx context.Context, page int) (*SyncRunResult, error) {
	return s.syncPage(ctx, models.SyncDocTypePurchaseOrder, purchaseOrderListFields, page,
		func(ctx context.Context, summary DocumentSummary, detail *DocumentDetail) error {
			header, items, err := buildPurchaseOrder(summary, detail)
			if err != nil {
				return err
			}
			if err := s.store.UpsertPurchaseOrder(ctx, header); err != nil {
				return fmt.Errorf("upsert header: %w", err)
			}
			if err := s.store.ReplacePurchaseOrderItems(ctx, header.ID, items); err != nil {
				return fmt.Errorf("replace items: %w", err)
			}
			return nil
		})
}

// SyncDeliveryOrderPage syncs one page of Delivery Orders.
func (s *Syncer) SyncDeliveryOrderPage(ctx context.Context, page int) (*SyncRunResult, error) {
	return s.syncPage(ctx, models.SyncDocTypeDeliveryOrder, deliveryOrderListFields, page,
		func(ctx context.Context, summary DocumentSummary, detail *DocumentDetail) error {
			header, items, err := buildDeliveryOrder(summary, detail)
			if err != nil {
				return err
			}
			if err := s.store.UpsertDeliveryOrder(ctx, header); err != nil {
				return fmt.Errorf("upsert header: %w", err)
			}
			if err := s.store.ReplaceDeliveryOrderItems(ctx, header.ID, items); err != nil {
				return fmt.Errorf("replace items: %w", err)
			}
			return nil
		})
}

func (s *Syncer) syncPage(ctx context.Context, docType, fields string, page int, persist func(context.Context, DocumentSummary, *DocumentDetail) error) (*SyncRunResult, error) {
	if page < 1 {
		page = 1
	}
	run := s.beginRun(ctx, docType, page)

	listRes, err := s.client.ListPage(ctx, docType, ListOptions{
		Fields:   fields,
		Page:     page,
		PageSize: syncPageSize,
	})
	if err != nil {
		config.LogError(s.logger, "accuratesync", "syncPage", "list "+docType, map[string]interface{}{"page": page}, err)
		s.finishRun(ctx, run, nil, err)
		return nil, err
	}

	details, failures := s.client.FetchDetails(ctx, docType, listRes.Items, s.policy)

	result := &SyncRunResult{
		Processed: len(listRes.Items),
		Errors:    []string{},
	}
	fail := func(docNumber, code string, cause error) {
		result.FailCount++
		if len(result.Errors) < errorSampleLimit {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", docNumber, cause))
		}
		s.recordError(ctx, run, docType, docNumber, code, cause)
	}

	for _, f := range failures {
		fail(f.Number, "detail_fetch", f.Err)
	}
	for i, summary := range listRes.Items {
		if details[i] == nil {
			continue
		}
		if err := persist(ctx, summary, details[i]); err != nil {
			fail(summary.Number, "persist", err)
			continue
		}
		result.SuccessCount++
	}

	result.Success = true
	result.HasMore = listRes.HasMore(syncPageSize)
	result.NextPage = page + 1
	result.Message = fmt.Sprintf("synced %s page %d: %d ok, %d failed", docType, page, result.SuccessCount, result.FailCount)

	logFields := logrus.Fields{
		"docType":   docType,
		"page":      page,
		"processed": result.Processed,
		"succeeded": result.SuccessCount,
		"failed":    result.FailCount,
		"hasMore":   result.HasMore,
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		logFields["correlationId"] = cid
	}
	if actor, ok := utils.GetActorFromContext(ctx); ok {
		logFields["actor"] = actor
	}
	s.logger.WithFields(logFields).Info("accurate sync page done")

	s.finishRun(ctx, run, result, nil)
	return result, nil
}

func buildPurchaseOrder(summary DocumentSummary, detail *DocumentDetail) (*models.AccuratePurchaseOrder, []models.AccuratePurchaseOrderItem, error) {
	id := SanitizeInt(summary.ID)
	if id == nil {
		return nil, nil, fmt.Errorf("document %q has no usable id", summary.Number)
	}
	number := summary.Number
	if number == "" {
		number = "UNKNOWN"
	}

	header := &models.AccuratePurchaseOrder{
		ID:          *id,
		Number:      number,
		TransDate:   SanitizeDate(summary.TransDate),
		StatusName:  summary.StatusName,
		TotalAmount: SanitizeDecimal(summary.TotalAmount),
	}
	if summary.Vendor != nil {
		header.VendorId = SanitizeInt(summary.Vendor.ID)
		header.VendorName = summary.Vendor.Name
	}
	if summary.Currency != nil {
		header.CurrencyCode = summary.Currency.Code
	}
	if summary.Branch != nil {
		header.BranchId = SanitizeInt(summary.Branch.ID)
	}

	items := make([]models.AccuratePurchaseOrderItem, 0, len(detail.DetailItem))
	for seq, line := range detail.DetailItem {
		lineId := SanitizeInt(line.ID)
		if lineId == nil {
			return nil, nil, fmt.Errorf("document %q line %d has no usable id", number, seq)
		}
		item := models.AccuratePurchaseOrderItem{
			ID:              *lineId,
			PoId:            *id,
			Quantity:        SanitizeFloat(line.Quantity),
			UnitPrice:       SanitizeDecimal(line.UnitPrice),
			ItemDiscPercent: SanitizeDecimal(line.ItemDiscPercent),
			DetailNotes:     line.DetailNotes,
			ItemSeq:         seq,
			HsoNumber:       ExtractHSONumber(line.DetailNotes),
		}
		if line.Item != nil {
			item.ItemCode = line.Item.No
			item.ItemName = line.Item.Name
		}
		if item.ItemName == "" {
			item.ItemName = line.DetailName
		}
		if line.ItemUnit != nil {
			item.UnitName = line.ItemUnit.Name
		}
		items = append(items, item)
	}
	return header, items, nil
}

func buildDeliveryOrder(summary DocumentSummary, detail *DocumentDetail) (*models.AccurateDeliveryOrder, []models.AccurateDeliveryOrderItem, error) {
	id := SanitizeInt(summary.ID)
	if id == nil {
		return nil, nil, fmt.Errorf("document %q has no usable id", summary.Number)
	}
	number := summary.Number
	if number == "" {
		number = "UNKNOWN"
	}

	header := &models.AccurateDeliveryOrder{
		ID:         *id,
		Number:     number,
		TransDate:  SanitizeDate(summary.TransDate),
		StatusName: summary.StatusName,
		ShipTo:     summary.ShipTo,
		DriverName: summary.DriverName,
	}
	if summary.Customer != nil {
		header.CustomerId = SanitizeInt(summary.Customer.ID)
		header.CustomerName = summary.Customer.Name
	}

	items := make([]models.AccurateDeliveryOrderItem, 0, len(detail.DetailItem))
	for seq, line := range detail.DetailItem {
		lineId := SanitizeInt(line.ID)
		if lineId == nil {
			return nil, nil, fmt.Errorf("document %q line %d has no usable id", number, seq)
		}
		item := models.AccurateDeliveryOrderItem{
			ID:          *lineId,
			DoId:        *id,
			Quantity:    SanitizeFloat(line.Quantity),
			DetailNotes: line.DetailNotes,
			ItemSeq:     seq,
			HsoNumber:   ExtractHSONumber(line.DetailNotes),
		}
		if line.Item != nil {
			item.ItemCode = line.Item.No
			item.ItemName = line.Item.Name
		}
		if item.ItemName == "" {
			item.ItemName = line.DetailName
		}
		if line.ItemUnit != nil {
			item.UnitName = line.ItemUnit.Name
		}
		items = append(items, item)
	}
	return header, items, nil
}

// SyncShipmentLinks finds Purchase Orders whose item notes reference the
// given Sales Order and links them to the shipment rows, writing hpo_number
// at most once per shipment.
func (s *Syncer) SyncShipmentLinks(ctx context.Context, req ShipmentLinkRequest) (*ShipmentLinkResult, error) {
	soId := strings.TrimSpace(req.SoId)
	soNumber := strings.TrimSpace(req.SoNumber)
	if soId == "" || soNumber == "" {
		return nil, ErrMissingLinkInput
	}

	listRes, err := s.client.ListPage(ctx, models.SyncDocTypePurchaseOrder, ListOptions{
		Fields: DefaultListFields,
		Filters: []Filter{
			{Field: "statusName", Op: "NOT_IN", Val: crossRefStatusExclusions},
			{Field: "keywords", Op: "CONTAIN", Val: soNumber},
		},
		PageSize: crossRefPageSize,
	})
	if err != nil {
		return nil, err
	}

	result := &ShipmentLinkResult{
		Success: true,
		Stats:   ShipmentLinkStats{TotalPOsFound: len(listRes.Items)},
		Items:   []MatchedPOItem{},
	}
	if len(listRes.Items) == 0 {
		result.Message = "no purchase orders reference " + soNumber
		return result, nil
	}

	details, failures := s.client.FetchDetails(ctx, models.SyncDocTypePurchaseOrder, listRes.Items, s.policy)
	for _, f := range failures {
		config.LogError(s.logger, "accuratesync", "SyncShipmentLinks", "fetch po detail", map[string]interface{}{"number": f.Number}, f.Err)
	}

	itemSet := map[string]bool{}
	for _, code := range req.Items {
		code = strings.TrimSpace(code)
		if code != "" {
			itemSet[strings.ToUpper(code)] = true
		}
	}

	for _, detail := range details {
		if detail == nil {
			continue
		}
		for _, line := range detail.DetailItem {
			if !ContainsHSORef(line.DetailNotes, soNumber) {
				continue
			}
			code := ""
			if line.Item != nil {
				code = line.Item.No
			}
			if code == "" {
				continue
			}
			if len(itemSet) > 0 && !itemSet[strings.ToUpper(code)] {
				continue
			}
			result.Items = append(result.Items, MatchedPOItem{
				PoNumber: detail.Number,
				ItemCode: code,
				Quantity: SanitizeFloat(line.Quantity),
			})
		}
	}
	result.Stats.MatchingItems = len(result.Items)

	today := s.now().UTC().Format("2006-01-02")
	for _, match := range result.Items {
		shipment, err := s.store.FindShipment(ctx, soId, match.ItemCode)
		if err != nil {
			config.LogError(s.logger, "accuratesync", "SyncShipmentLinks", "find shipment", map[string]interface{}{"soId": soId, "itemCode": match.ItemCode}, err)
			continue
		}
		if shipment != nil {
			updated, err := s.store.SetShipmentLinkOnce(ctx, shipment.ID, match.PoNumber, today)
			if err != nil {
				config.LogError(s.logger, "accuratesync", "SyncShipmentLinks", "update shipment", map[string]interface{}{"shipmentId": shipment.ID}, err)
				continue
			}
			if updated {
				result.Stats.Updated++
			}
			continue
		}

		statusDate := today
		err = s.store.CreateShipment(ctx, &models.Shipment{
			SoId:          soId,
			ItemCode:      match.ItemCode,
			HpoNumber:     match.PoNumber,
			CurrentStatus: models.ShipmentStatusFollowUpFactory,
			StatusDate:    &statusDate,
			ShipmentType:  models.ShipmentTypeImportPO,
			AdminNotes:    shipmentAutoNotes,
		})
		if errors.Is(err, ErrShipmentExists) {
			continue
		}
		if err != nil {
			config.LogError(s.logger, "accuratesync", "SyncShipmentLinks", "create shipment", map[string]interface{}{"soId": soId, "itemCode": match.ItemCode}, err)
			continue
		}
		result.Stats.Created++
	}

	result.Message = fmt.Sprintf("linked %s: %d POs, %d matches, %d updated, %d created",
		soNumber, result.Stats.TotalPOsFound, result.Stats.MatchingItems, result.Stats.Updated, result.Stats.Created)
	return result, nil
}

// DeliveryOrderMappings resolves Delivery Orders by number and returns a flat
// item-to-DO mapping plus per-DO summaries. Unresolvable numbers are skipped.
func (s *Syncer) DeliveryOrderMappings(ctx context.Context, doNumbers []string) (*DOMappingResult, error) {
	numbers := make([]string, 0, len(doNumbers))
	for _, n := range doNumbers {
		if n = strings.TrimSpace(n); n != "" {
			numbers = append(numbers, n)
		}
	}

	result := &DOMappingResult{
		Success:   true,
		Mappings:  []DOItemMapping{},
		DoDetails: []DODetailSummary{},
	}
	if len(numbers) == 0 {
		return result, nil
	}

	details, failures := s.client.FetchDetailsByNumber(ctx, models.SyncDocTypeDeliveryOrder, numbers, s.policy)
	for _, f := range failures {
		config.LogError(s.logger, "accuratesync", "DeliveryOrderMappings", "fetch do detail", map[string]interface{}{"number": f.Number}, f.Err)
	}

	for _, detail := range details {
		if detail == nil {
			continue
		}
		date := detail.TransDate
		if date == "" {
			date = detail.TransDateView
		}
		status := detail.StatusName
		if status == "" {
			status = "Approved"
		}
		summary := DODetailSummary{
			Number: detail.Number,
			Date:   date,
			Status: status,
			Items:  []DOItemLine{},
		}
		for _, line := range detail.DetailItem {
			code := ""
			name := line.DetailName
			if line.Item != nil {
				code = line.Item.No
				if line.Item.Name != "" {
					name = line.Item.Name
				}
			}
			if code == "" {
				continue
			}
			unit := "Pcs"
			if line.ItemUnit != nil && line.ItemUnit.Name != "" {
				unit = line.ItemUnit.Name
			}
			summary.Items = append(summary.Items, DOItemLine{
				Code:       code,
				Name:       name,
				QtyShipped: SanitizeFloat(line.Quantity),
				Unit:       unit,
			})
			result.Mappings = append(result.Mappings, DOItemMapping{
				ItemCode: code,
				DoNumber: detail.Number,
				DoDate:   date,
			})
		}
		result.DoDetails = append(result.DoDetails, summary)
	}
	return result, nil
}

// ListTrackingSalesOrders returns one page of open Sales Orders with their
// line items inlined. Documents whose detail fetch fails after retries are
// returned with an empty item list rather than dropped.
func (s *Syncer) ListTrackingSalesOrders(ctx context.Context, page, pageSize int) (*TrackingPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = trackingPageSize
	}

	listRes, err := s.client.ListPage(ctx, models.SyncDocTypeSalesOrder, ListOptions{
		Fields: salesOrderListFields,
		Filters: []Filter{
			{Field: "statusName", Op: "NOT_IN", Val: crossRefStatusExclusions},
		},
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}

	details, failures := s.client.FetchDetails(ctx, models.SyncDocTypeSalesOrder, listRes.Items, s.policy)
	for _, f := range failures {
		config.LogError(s.logger, "accuratesync", "ListTrackingSalesOrders", "fetch so detail", map[string]interface{}{"number": f.Number}, f.Err)
	}

	items := make([]TrackingSalesOrder, 0, len(listRes.Items))
	for i, summary := range listRes.Items {
		item := TrackingSalesOrder{DocumentSummary: summary, DetailItem: []DetailItem{}}
		if details[i] != nil && details[i].DetailItem != nil {
			item.DetailItem = details[i].DetailItem
		}
		items = append(items, item)
	}

	totalPages := 0
	if listRes.RowCount > 0 {
		totalPages = (listRes.RowCount + pageSize - 1) / pageSize
	}
	return &TrackingPage{
		Success: true,
		Items:   items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: listRes.RowCount,
			TotalPages: totalPages,
			HasMore:    page < totalPages,
		},
	}, nil
}

// ListAllPurchaseOrders walks every list page up to the limit.
func (s *Syncer) ListAllPurchaseOrders(ctx context.Context, req ListAllRequest) ([]DocumentSummary, error) {
	fields := req.Fields
	if fields == "" {
		fields = purchaseOrderListFields
	}
	return s.client.ListAll(ctx, models.SyncDocTypePurchaseOrder, ListOptions{
		Fields: fields,
		Sort:   req.Sort,
	}, req.Limit)
}

func (s *Syncer) beginRun(ctx context.Context, docType string, page int) *models.AccurateSyncRun {
	started := s.now()
	run := &models.AccurateSyncRun{
		DocType:     docType,
		Page:        page,
		Status:      models.SyncRunStatusRunning,
		TriggeredBy: s.TriggeredBy,
		StartedAt:   &started,
	}
	if err := s.store.CreateSyncRun(ctx, run); err != nil {
		config.LogError(s.logger, "accuratesync", "beginRun", "create sync run", map[string]interface{}{"docType": docType, "page": page}, err)
	}
	return run
}

func (s *Syncer) finishRun(ctx context.Context, run *models.AccurateSyncRun, result *SyncRunResult, runErr error) {
	finished := s.now()
	run.FinishedAt = &finished
	if run.StartedAt != nil {
		run.DurationMs = finished.Sub(*run.StartedAt).Milliseconds()
	}
	switch {
	case runErr != nil:
		run.Status = models.SyncRunStatusFailed
	case result != nil && result.FailCount > 0:
		run.Status = models.SyncRunStatusPartial
	default:
		run.Status = models.SyncRunStatusSuccess
	}
	if result != nil {
		run.Processed = result.Processed
		run.Succeeded = result.SuccessCount
		run.Failed = result.FailCount
		run.HasMore = result.HasMore
	}
	if run.ID == 0 {
		return
	}
	if err := s.store.FinishSyncRun(ctx, run); err != nil {
		config.LogError(s.logger, "accuratesync", "finishRun", "save sync run", map[string]interface{}{"runId": run.ID}, err)
	}
	// Recent-runs cache is rebuilt on the next read.
	_ = config.RemoveRedisKey(syncRunsCacheKey)
}

func (s *Syncer) recordError(ctx context.Context, run *models.AccurateSyncRun, docType, docNumber, code string, cause error) {
	if run == nil || run.ID == 0 {
		return
	}
	row := &models.AccurateSyncError{
		SyncRunId: run.ID,
		DocType:   docType,
		DocNumber: docNumber,
		ErrorCode: code,
		Message:   cause.Error(),
	}
	if payload, err := utils.MarshalToJSON(map[string]string{"docNumber": docNumber, "error": cause.Error()}); err == nil {
		row.PayloadJSON = []byte(payload)
	}
	if err := s.store.CreateSyncError(ctx, row); err != nil {
		config.LogError(s.logger, "accuratesync", "recordError", "create sync error", map[string]interface{}{"runId": run.ID}, err)
	}
}
