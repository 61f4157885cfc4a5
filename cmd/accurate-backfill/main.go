package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/davidtheosimaremare/hso/accuratesync"
	"github.com/davidtheosimaremare/hso/config"
	"github.com/davidtheosimaremare/hso/models"
)

// Walks Accurate list pages from start-page until the upstream runs out (or
// max-pages is hit), syncing each page into the database. Meant for initial
// loads and re-syncs after incidents; the HTTP service stays page-at-a-time.
func main() {
	docType := flag.String("doc-type", models.SyncDocTypePurchaseOrder, "document type: purchase-order or delivery-order")
	startPage := flag.Int("start-page", 1, "first page to sync")
	maxPages := flag.Int("max-pages", 0, "stop after this many pages (0 = until upstream runs out)")
	pageDelay := flag.Duration("page-delay", 500*time.Millisecond, "pause between pages")
	flag.Parse()

	if *docType != models.SyncDocTypePurchaseOrder && *docType != models.SyncDocTypeDeliveryOrder {
		fmt.Fprintln(os.Stderr, "doc-type must be purchase-order or delivery-order")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	client, err := accuratesync.NewClientFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "accurate client:", err)
		os.Exit(1)
	}

	syncer := accuratesync.NewSyncer(client, accuratesync.NewStore(config.GetDB()), accuratesync.DefaultRetryPolicy(), config.GetLogger())
	syncer.TriggeredBy = models.SyncTriggeredCLI

	ctx := context.Background()
	page := *startPage
	if page < 1 {
		page = 1
	}

	for pages := 0; ; pages++ {
		if *maxPages > 0 && pages >= *maxPages {
			fmt.Printf("reached max-pages=%d, stopping at page %d\n", *maxPages, page)
			break
		}

		var result *accuratesync.SyncRunResult
		switch *docType {
		case models.SyncDocTypePurchaseOrder:
			result, err = syncer.SyncPurchaseOrderPage(ctx, page)
		case models.SyncDocTypeDeliveryOrder:
			result, err = syncer.SyncDeliveryOrderPage(ctx, page)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "sync %s page %d: %v\n", *docType, page, err)
			os.Exit(1)
		}

		fmt.Printf("%s page %d: processed=%d ok=%d failed=%d hasMore=%v\n",
			*docType, page, result.Processed, result.SuccessCount, result.FailCount, result.HasMore)
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e)
		}

		if !result.HasMore {
			fmt.Println("upstream exhausted, done")
			break
		}
		page = result.NextPage
		time.Sleep(*pageDelay)
	}
}
