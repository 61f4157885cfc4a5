package accuratesync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidtheosimaremare/hso/models"
)

type fakeStore struct {
	mu sync.Mutex

	pos     map[int]models.AccuratePurchaseOrder
	poItems map[int][]models.AccuratePurchaseOrderItem
	dos     map[int]models.AccurateDeliveryOrder
	doItems map[int][]models.AccurateDeliveryOrderItem

	shipments []*models.Shipment
	runs      []*models.AccurateSyncRun
	syncErrs  []*models.AccurateSyncError

	nextShipmentID uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pos:     map[int]models.AccuratePurchaseOrder{},
		poItems: map[int][]models.AccuratePurchaseOrderItem{},
		dos:     map[int]models.AccurateDeliveryOrder{},
		doItems: map[int][]models.AccurateDeliveryOrderItem{},
	}
}

func (f *fakeStore) UpsertPurchaseOrder(_ context.Context, po *models.AccuratePurchaseOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos[po.ID] = *po
	return nil
}

func (f *fakeStore) ReplacePurchaseOrderItems(_ context.Context, poId int, items []models.AccuratePurchaseOrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poItems[poId] = append([]models.AccuratePurchaseOrderItem{}, items...)
	return nil
}

func (f *fakeStore) UpsertDeliveryOrder(_ context.Context, do *models.AccurateDeliveryOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dos[do.ID] = *do
	return nil
}

func (f *fakeStore) ReplaceDeliveryOrderItems(_ context.Context, doId int, items []models.AccurateDeliveryOrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doItems[doId] = append([]models.AccurateDeliveryOrderItem{}, items...)
	return nil
}

func (f *fakeStore) FindShipment(_ context.Context, soId, itemCode string) (*models.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shipments {
		if s.SoId == soId && s.ItemCode == itemCode {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SetShipmentLinkOnce(_ context.Context, shipmentId uint, hpoNumber, statusDate string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shipments {
		if s.ID != shipmentId {
			continue
		}
		if s.HpoNumber != "" {
			return false, nil
		}
		s.HpoNumber = hpoNumber
		if s.CurrentStatus == models.ShipmentStatusPendingProcess {
			s.CurrentStatus = models.ShipmentStatusFollowUpFactory
			date := statusDate
			s.StatusDate = &date
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) CreateShipment(_ context.Context, shipment *models.Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shipments {
		if s.SoId == shipment.SoId && s.ItemCode == shipment.ItemCode {
			return ErrShipmentExists
		}
	}
	f.nextShipmentID++
	shipment.ID = f.nextShipmentID
	copied := *shipment
	f.shipments = append(f.shipments, &copied)
	return nil
}

func (f *fakeStore) CreateSyncRun(_ context.Context, run *models.AccurateSyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = uint(len(f.runs) + 1)
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeStore) FinishSyncRun(_ context.Context, run *models.AccurateSyncRun) error {
	return nil
}

func (f *fakeStore) CreateSyncError(_ context.Context, syncErr *models.AccurateSyncError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncErrs = append(f.syncErrs, syncErr)
	return nil
}

func (f *fakeStore) RecentSyncRuns(_ context.Context, limit int) ([]models.AccurateSyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AccurateSyncRun
	for i := len(f.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.runs[i])
	}
	return out, nil
}

func (f *fakeStore) SyncRunByID(_ context.Context, id uint) (*models.AccurateSyncRun, []models.AccurateSyncError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.ID == id {
			copied := *r
			var errs []models.AccurateSyncError
			for _, e := range f.syncErrs {
				if e.SyncRunId == id {
					errs = append(errs, *e)
				}
			}
			return &copied, errs, nil
		}
	}
	return nil, nil, nil
}

var fixedNow = time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

func newTestSyncer(t *testing.T, handler http.HandlerFunc) (*Syncer, *fakeStore) {
	t.Helper()
	client, _ := testClient(t, handler)
	store := newFakeStore()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	syncer := NewSyncer(client, store, RetryPolicy{MaxAttempts: 1, sleep: func(time.Duration) {}}, logger)
	syncer.now = func() time.Time { return fixedNow }
	return syncer, store
}

const poListRow = `{"id":101,"number":"PO.001","transDate":"25/08/2025","statusName":"Open",` +
	`"vendor":{"id":9,"name":"PT Vendor Jaya"},"totalAmount":"1,250.50","currency":{"code":"IDR"}}`

func poDetail(itemCount int) string {
	items := ""
	for i := 0; i < itemCount; i++ {
		if i > 0 {
			items += ","
		}
		notes := ""
		if i == 0 {
			notes = "untuk HSO/2025/IX/77 segera"
		}
		items += fmt.Sprintf(`{"id":%d,"item":{"no":"ITEM-%d","name":"Part %d"},"quantity":5,`+
			`"itemUnit":{"name":"Pcs"},"unitPrice":"100.00","itemDiscPercent":0,"detailNotes":"%s"}`,
			1001+i, i, i, notes)
	}
	return fmt.Sprintf(`{"d":{"id":101,"number":"PO.001","transDate":"25/08/2025","statusName":"Open","detailItem":[%s]}}`, items)
}

func TestSyncPurchaseOrderPageFullReplace(t *testing.T) {
	var mu sync.Mutex
	itemCount := 3

	syncer, store := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/purchase-order/list.do":
			fmt.Fprintf(w, `{"d":[%s],"sp":{"rowCount":1}}`, poListRow)
		case "/purchase-order/detail.do":
			mu.Lock()
			n := itemCount
			mu.Unlock()
			fmt.Fprint(w, poDetail(n))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	result, err := syncer.SyncPurchaseOrderPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncPurchaseOrderPage: %v", err)
	}
	if !result.Success || result.Processed != 1 || result.SuccessCount != 1 || result.FailCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.HasMore {
		t.Fatal("short page must not report more")
	}
	if result.NextPage != 2 {
		t.Fatalf("NextPage = %d, want 2", result.NextPage)
	}

	header, ok := store.pos[101]
	if !ok {
		t.Fatal("header not upserted")
	}
	if header.Number != "PO.001" || header.StatusName != "Open" {
		t.Fatalf("unexpected header: %+v", header)
	}
	if header.TransDate == nil || *header.TransDate != "2025-08-25" {
		t.Fatalf("TransDate = %v, want 2025-08-25", header.TransDate)
	}
	if header.VendorId == nil || *header.VendorId != 9 || header.VendorName != "PT Vendor Jaya" {
		t.Fatalf("vendor not mapped: %+v", header)
	}
	if header.TotalAmount.String() != "1250.5" {
		t.Fatalf("TotalAmount = %s", header.TotalAmount.String())
	}
	if header.CurrencyCode != "IDR" {
		t.Fatalf("CurrencyCode = %s", header.CurrencyCode)
	}

	items := store.poItems[101]
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for seq, item := range items {
		if item.ItemSeq != seq {
			t.Fatalf("item %d has seq %d", seq, item.ItemSeq)
		}
		if item.PoId != 101 {
			t.Fatalf("item %d has po_id %d", seq, item.PoId)
		}
	}
	if items[0].HsoNumber == nil || *items[0].HsoNumber != "HSO/2025/IX/77" {
		t.Fatalf("first item hso = %v", items[0].HsoNumber)
	}
	if items[1].HsoNumber != nil {
		t.Fatal("second item should carry no hso number")
	}

	// Upstream drops two lines; a re-sync must fully replace, not merge.
	mu.Lock()
	itemCount = 1
	mu.Unlock()

	if _, err := syncer.SyncPurchaseOrderPage(context.Background(), 1); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if got := len(store.poItems[101]); got != 1 {
		t.Fatalf("after re-sync got %d items, want 1", got)
	}

	if len(store.runs) != 2 {
		t.Fatalf("got %d run rows, want 2", len(store.runs))
	}
	for _, run := range store.runs {
		if run.Status != models.SyncRunStatusSuccess {
			t.Fatalf("run %d status = %s", run.ID, run.Status)
		}
		if run.TriggeredBy != models.SyncTriggeredManual {
			t.Fatalf("run %d triggered_by = %s", run.ID, run.TriggeredBy)
		}
	}
}

func TestSyncPageCountsDocumentFailures(t *testing.T) {
	syncer, store := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/purchase-order/list.do":
			fmt.Fprint(w, `{"d":[{"id":201,"number":"PO.201"},{"id":202,"number":"PO.202"}],"sp":{"rowCount":2}}`)
		case "/purchase-order/detail.do":
			if r.URL.Query().Get("id") == "202" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{"d":{"id":201,"number":"PO.201","detailItem":[]}}`)
		}
	})

	result, err := syncer.SyncPurchaseOrderPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncPurchaseOrderPage: %v", err)
	}
	if result.Processed != 2 || result.SuccessCount != 1 || result.FailCount != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("got %d embedded errors, want 1", len(result.Errors))
	}
	if !result.Success {
		t.Fatal("document failures must not fail the invocation")
	}

	if len(store.runs) != 1 || store.runs[0].Status != models.SyncRunStatusPartial {
		t.Fatalf("run not marked partial: %+v", store.runs)
	}
	if len(store.syncErrs) != 1 || store.syncErrs[0].DocNumber != "PO.202" || store.syncErrs[0].ErrorCode != "detail_fetch" {
		t.Fatalf("unexpected sync errors: %+v", store.syncErrs)
	}
}

func TestSyncDeliveryOrderPage(t *testing.T) {
	syncer, store := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/delivery-order/list.do":
			fmt.Fprint(w, `{"d":[{"id":301,"number":"DO.301","transDate":"2025-08-20","statusName":"Approved",`+
				`"customer":{"id":77,"name":"PT Pelanggan"},"shipTo":"Gudang Timur","driverName":"Budi"}],"sp":{"rowCount":1}}`)
		case "/delivery-order/detail.do":
			fmt.Fprint(w, `{"d":{"id":301,"number":"DO.301","detailItem":[`+
				`{"id":9001,"item":{"no":"ITEM-X","name":"Widget"},"quantity":"3","itemUnit":{"name":"Box"},"detailNotes":"kirim HSO/2025/X/5"}]}}`)
		}
	})

	result, err := syncer.SyncDeliveryOrderPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncDeliveryOrderPage: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	header := store.dos[301]
	if header.CustomerId == nil || *header.CustomerId != 77 || header.ShipTo != "Gudang Timur" || header.DriverName != "Budi" {
		t.Fatalf("unexpected header: %+v", header)
	}
	items := store.doItems[301]
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Quantity != 3 || items[0].UnitName != "Box" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if items[0].HsoNumber == nil || *items[0].HsoNumber != "HSO/2025/X/5" {
		t.Fatalf("hso = %v", items[0].HsoNumber)
	}
}

func TestSyncShipmentLinksSetOnce(t *testing.T) {
	syncer, store := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/purchase-order/list.do":
			q := r.URL.Query()
			if q.Get("filter.keywords.op") != "CONTAIN" || q.Get("filter.statusName.op") != "NOT_IN" {
				t.Errorf("missing cross-ref filters: %v", q)
			}
			fmt.Fprint(w, `{"d":[{"id":401,"number":"PO.HPO.001"}],"sp":{"rowCount":1}}`)
		case "/purchase-order/detail.do":
			fmt.Fprint(w, `{"d":{"id":401,"number":"PO.HPO.001","detailItem":[`+
				`{"id":1,"item":{"no":"ITEM-A"},"quantity":4,"detailNotes":"pesanan HSO/2025/IX/77"},`+
				`{"id":2,"item":{"no":"ITEM-B"},"quantity":2,"detailNotes":"pesanan HSO/2025/IX/77"},`+
				`{"id":3,"item":{"no":"ITEM-C"},"quantity":9,"detailNotes":"tidak terkait"}]}}`)
		}
	})

	store.shipments = append(store.shipments, &models.Shipment{
		ID:            1,
		SoId:          "SO-1",
		ItemCode:      "ITEM-A",
		CurrentStatus: models.ShipmentStatusPendingProcess,
	})
	store.nextShipmentID = 1

	result, err := syncer.SyncShipmentLinks(context.Background(), ShipmentLinkRequest{
		SoId:     "SO-1",
		SoNumber: "HSO/2025/IX/77",
	})
	if err != nil {
		t.Fatalf("SyncShipmentLinks: %v", err)
	}
	if result.Stats.TotalPOsFound != 1 || result.Stats.MatchingItems != 2 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
	if result.Stats.Updated != 1 || result.Stats.Created != 1 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}

	existing := store.shipments[0]
	if existing.HpoNumber != "PO.HPO.001" {
		t.Fatalf("hpo_number = %q", existing.HpoNumber)
	}
	if existing.CurrentStatus != models.ShipmentStatusFollowUpFactory {
		t.Fatalf("status = %q", existing.CurrentStatus)
	}
	if existing.StatusDate == nil || *existing.StatusDate != "2025-08-25" {
		t.Fatalf("status_date = %v", existing.StatusDate)
	}

	created := store.shipments[1]
	if created.ItemCode != "ITEM-B" || created.ShipmentType != models.ShipmentTypeImportPO {
		t.Fatalf("unexpected created shipment: %+v", created)
	}
	if created.AdminNotes == "" {
		t.Fatal("created shipment should carry admin notes")
	}

	// A second pass must never rewrite an existing link.
	result, err = syncer.SyncShipmentLinks(context.Background(), ShipmentLinkRequest{
		SoId:     "SO-1",
		SoNumber: "HSO/2025/IX/77",
	})
	if err != nil {
		t.Fatalf("second SyncShipmentLinks: %v", err)
	}
	if result.Stats.Updated != 0 || result.Stats.Created != 0 {
		t.Fatalf("second pass changed rows: %+v", result.Stats)
	}
	if store.shipments[0].HpoNumber != "PO.HPO.001" {
		t.Fatalf("hpo_number overwritten: %q", store.shipments[0].HpoNumber)
	}
}

func TestSyncShipmentLinksRequiresInput(t *testing.T) {
	syncer, _ := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := syncer.SyncShipmentLinks(context.Background(), ShipmentLinkRequest{SoNumber: "HSO/1"})
	if !errors.Is(err, ErrMissingLinkInput) {
		t.Fatalf("expected ErrMissingLinkInput, got %v", err)
	}
}

func TestSyncShipmentLinksItemFilter(t *testing.T) {
	syncer, store := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/purchase-order/list.do":
			fmt.Fprint(w, `{"d":[{"id":401,"number":"PO.HPO.001"}],"sp":{"rowCount":1}}`)
		case "/purchase-order/detail.do":
			fmt.Fprint(w, `{"d":{"id":401,"number":"PO.HPO.001","detailItem":[`+
				`{"id":1,"item":{"no":"ITEM-A"},"quantity":4,"detailNotes":"HSO/2025/IX/77"},`+
				`{"id":2,"item":{"no":"ITEM-B"},"quantity":2,"detailNotes":"HSO/2025/IX/77"}]}}`)
		}
	})

	result, err := syncer.SyncShipmentLinks(context.Background(), ShipmentLinkRequest{
		SoId:     "SO-1",
		SoNumber: "HSO/2025/IX/77",
		Items:    []string{"item-b"},
	})
	if err != nil {
		t.Fatalf("SyncShipmentLinks: %v", err)
	}
	if result.Stats.MatchingItems != 1 || result.Items[0].ItemCode != "ITEM-B" {
		t.Fatalf("item filter not applied: %+v", result)
	}
	if len(store.shipments) != 1 || store.shipments[0].ItemCode != "ITEM-B" {
		t.Fatalf("unexpected shipments: %+v", store.shipments)
	}
}

func TestDeliveryOrderMappings(t *testing.T) {
	syncer, _ := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		number := r.URL.Query().Get("number")
		if number == "DO.GONE" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"d":{"id":5,"number":"%s","transDate":"","transDateView":"30/08/2025","statusName":"",`+
			`"detailItem":[{"id":1,"item":{"no":"ITEM-X","name":"Widget"},"quantity":"2"},{"id":2,"detailNotes":"no item ref"}]}}`, number)
	})

	result, err := syncer.DeliveryOrderMappings(context.Background(), []string{"DO.001", "DO.GONE", " "})
	if err != nil {
		t.Fatalf("DeliveryOrderMappings: %v", err)
	}
	if len(result.Mappings) != 1 {
		t.Fatalf("got %d mappings, want 1", len(result.Mappings))
	}
	m := result.Mappings[0]
	if m.ItemCode != "ITEM-X" || m.DoNumber != "DO.001" || m.DoDate != "30/08/2025" {
		t.Fatalf("unexpected mapping: %+v", m)
	}
	if len(result.DoDetails) != 1 {
		t.Fatalf("got %d details, want 1", len(result.DoDetails))
	}
	d := result.DoDetails[0]
	if d.Status != "Approved" {
		t.Fatalf("status fallback = %q", d.Status)
	}
	if len(d.Items) != 1 || d.Items[0].Unit != "Pcs" || d.Items[0].QtyShipped != 2 {
		t.Fatalf("unexpected items: %+v", d.Items)
	}
}

func TestListTrackingSalesOrders(t *testing.T) {
	syncer, _ := newTestSyncer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sales-order/list.do":
			fmt.Fprint(w, `{"d":[{"id":501,"number":"SO.001","customer":{"name":"PT A"}},`+
				`{"id":502,"number":"SO.002","customer":{"name":"PT B"}}],"sp":{"rowCount":120}}`)
		case "/sales-order/detail.do":
			if r.URL.Query().Get("id") == "502" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{"d":{"id":501,"number":"SO.001","detailItem":[{"id":1,"item":{"no":"ITEM-A"},"quantity":1}]}}`)
		}
	})

	page, err := syncer.ListTrackingSalesOrders(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("ListTrackingSalesOrders: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(page.Items))
	}
	if len(page.Items[0].DetailItem) != 1 {
		t.Fatalf("first SO should carry its line items: %+v", page.Items[0])
	}
	if page.Items[1].DetailItem == nil || len(page.Items[1].DetailItem) != 0 {
		t.Fatalf("failed detail should yield empty, non-nil items: %+v", page.Items[1].DetailItem)
	}
	p := page.Pagination
	if p.TotalItems != 120 || p.TotalPages != 3 || !p.HasMore {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}
