package accuratesync

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/davidtheosimaremare/hso/config"
	"github.com/davidtheosimaremare/hso/models"
)

const (
	defaultRunsLimit = 20
	syncRunsCacheKey = "accurate:sync-runs:recent"
	syncRunsCacheTTL = 30 * time.Second
)

// Deps wires the sync handlers to the running process. DB is a provider, not
// a handle, because the pool connects after the HTTP server starts listening.
// Store overrides the gorm store when set.
type Deps struct {
	NewClient func() (*Client, error)
	DB        func() *gorm.DB
	Store     func() Store
	Policy    RetryPolicy
	Logger    *logrus.Logger
}

func DefaultDeps() Deps {
	return Deps{
		NewClient: NewClientFromEnv,
		DB:        config.GetDB,
		Policy:    DefaultRetryPolicy(),
		Logger:    config.GetLogger(),
	}
}

func (d Deps) store() Store {
	if d.Store != nil {
		return d.Store()
	}
	return NewStore(d.DB())
}

func (d Deps) syncer() (*Syncer, error) {
	client, err := d.NewClient()
	if err != nil {
		return nil, err
	}
	return NewSyncer(client, d.store(), d.Policy, d.Logger), nil
}

// RegisterRoutes mounts the sync API under the given group.
func RegisterRoutes(r *gin.RouterGroup, deps Deps) {
	r.POST("/sync/purchase-orders", SyncPurchaseOrdersHandler(deps))
	r.POST("/sync/delivery-orders", SyncDeliveryOrdersHandler(deps))
	r.POST("/sync/shipment-links", ShipmentLinksHandler(deps))
	r.POST("/sync/delivery-order-mappings", DeliveryOrderMappingsHandler(deps))
	r.POST("/sync/queue", QueueSyncHandler(deps))
	r.POST("/tracking/sales-orders", TrackingSalesOrdersHandler(deps))
	r.POST("/purchase-orders/all", ListAllPurchaseOrdersHandler(deps))
	r.GET("/sync/runs", SyncRunsHandler(deps))
	r.GET("/sync/runs/:id", SyncRunDetailHandler(deps))
}

func SyncPurchaseOrdersHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SyncPageRequest
		_ = c.ShouldBindJSON(&req)

		syncer, err := deps.syncer()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		result, err := syncer.SyncPurchaseOrderPage(c.Request.Context(), req.Page)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func SyncDeliveryOrdersHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SyncPageRequest
		_ = c.ShouldBindJSON(&req)

		syncer, err := deps.syncer()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		result, err := syncer.SyncDeliveryOrderPage(c.Request.Context(), req.Page)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func ShipmentLinksHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ShipmentLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"s": false, "error": err.Error()})
			return
		}

		syncer, err := deps.syncer()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		result, err := syncer.SyncShipmentLinks(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"s": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func DeliveryOrderMappingsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DOMappingRequest
		_ = c.ShouldBindJSON(&req)

		syncer, err := deps.syncer()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		result, err := syncer.DeliveryOrderMappings(c.Request.Context(), req.DoNumbers)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func TrackingSalesOrdersHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TrackingPageRequest
		_ = c.ShouldBindJSON(&req)

		syncer, err := deps.syncer()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		result, err := syncer.ListTrackingSalesOrders(c.Request.Context(), req.Page, req.PageSize)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"s": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func ListAllPurchaseOrdersHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListAllRequest
		_ = c.ShouldBindJSON(&req)

		syncer, err := deps.syncer()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		items, err := syncer.ListAllPurchaseOrders(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"s": true, "d": items, "count": len(items)})
	}
}

func SyncRunsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		// The default listing is the hot one (polled by dashboards); serve it
		// from redis when available. finishRun drops the key after each sync.
		if limit == defaultRunsLimit {
			var cached []models.AccurateSyncRun
			if ok, err := config.GetRedisObject(syncRunsCacheKey, &cached); err == nil && ok {
				c.JSON(http.StatusOK, gin.H{"s": true, "d": cached})
				return
			}
		}

		runs, err := deps.store().RecentSyncRuns(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		if limit == defaultRunsLimit {
			_ = config.SetRedisObject(syncRunsCacheKey, runs, syncRunsCacheTTL)
		}
		c.JSON(http.StatusOK, gin.H{"s": true, "d": runs})
	}
}

func SyncRunDetailHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"s": false, "error": "invalid run id"})
			return
		}
		run, syncErrs, err := deps.store().SyncRunByID(c.Request.Context(), uint(id))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		if run == nil {
			c.JSON(http.StatusNotFound, gin.H{"s": false, "error": "run not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"s": true, "d": run, "errors": syncErrs})
	}
}

// QueueSyncHandler publishes a page sync request for asynchronous processing
// instead of running it inline.
func QueueSyncHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload SyncPubSubPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"s": false, "error": err.Error()})
			return
		}
		if payload.DocType != models.SyncDocTypePurchaseOrder && payload.DocType != models.SyncDocTypeDeliveryOrder {
			c.JSON(http.StatusBadRequest, gin.H{"s": false, "error": "doc_type must be purchase-order or delivery-order"})
			return
		}
		if payload.Page < 1 {
			payload.Page = 1
		}

		id, err := PublishSyncRun(c.Request.Context(), payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"s": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"s": true, "messageId": id})
	}
}
