package accuratesync

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"

	"github.com/davidtheosimaremare/hso/config"
	"github.com/davidtheosimaremare/hso/models"
	"github.com/davidtheosimaremare/hso/utils"
)

const defaultSyncTopic = "accurate-sync"

func syncTopicName() string {
	if v := os.Getenv("ACCURATE_SYNC_TOPIC"); v != "" {
		return v
	}
	return defaultSyncTopic
}

// PublishSyncRun enqueues one page sync on the sync topic and returns the
// message id.
func PublishSyncRun(ctx context.Context, payload SyncPubSubPayload) (string, error) {
	client, err := config.GetClient(ctx)
	if err != nil {
		return "", err
	}
	topic, err := config.CreateTopicIfNotExists(client, syncTopicName())
	if err != nil {
		return "", err
	}

	data, err := utils.MarshalToJSON(payload)
	if err != nil {
		return "", err
	}
	result := topic.Publish(ctx, &pubsub.Message{Data: []byte(data)})
	return result.Get(ctx)
}

// PubSubPushHandler processes push deliveries from the sync subscription.
// It always responds 204: the sync is page-idempotent, so a retried delivery
// just re-syncs the same page, and nacking only causes redelivery storms.
func PubSubPushHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope PubSubPushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			config.LogError(deps.Logger, "accuratesync", "PubSubPushHandler", "decode envelope", nil, err)
			c.Status(http.StatusNoContent)
			return
		}

		var payload SyncPubSubPayload
		if err := utils.UnmarshalFromJSON(envelope.Message.Data, &payload); err != nil {
			config.LogError(deps.Logger, "accuratesync", "PubSubPushHandler", "decode payload", map[string]interface{}{"messageId": envelope.Message.ID}, err)
			c.Status(http.StatusNoContent)
			return
		}
		if payload.Page < 1 {
			payload.Page = 1
		}

		ctx := utils.SetActorInContext(c.Request.Context(), "pubsub")

		// Best-effort dedup across replicas. Losing the lock (or having no
		// Redis) degrades to a duplicate page sync, which is harmless.
		if locker := config.GetRedisLock(); locker != nil {
			key := fmt.Sprintf("accurate-sync:%s:%d", payload.DocType, payload.Page)
			lock, err := locker.Obtain(ctx, key, 5*time.Minute, nil)
			if err == nil {
				defer lock.Release(context.Background())
			} else if err != redislock.ErrNotObtained {
				config.LogError(deps.Logger, "accuratesync", "PubSubPushHandler", "obtain lock", map[string]interface{}{"key": key}, err)
			}
		}

		syncer, err := deps.syncer()
		if err != nil {
			config.LogError(deps.Logger, "accuratesync", "PubSubPushHandler", "build syncer", nil, err)
			c.Status(http.StatusNoContent)
			return
		}
		syncer.TriggeredBy = models.SyncTriggeredPubSub

		switch payload.DocType {
		case models.SyncDocTypePurchaseOrder:
			_, err = syncer.SyncPurchaseOrderPage(ctx, payload.Page)
		case models.SyncDocTypeDeliveryOrder:
			_, err = syncer.SyncDeliveryOrderPage(ctx, payload.Page)
		default:
			config.LogError(deps.Logger, "accuratesync", "PubSubPushHandler", "unknown doc type", map[string]interface{}{"docType": payload.DocType}, fmt.Errorf("unsupported doc type"))
			c.Status(http.StatusNoContent)
			return
		}
		if err != nil {
			config.LogError(deps.Logger, "accuratesync", "PubSubPushHandler", "sync page", map[string]interface{}{"docType": payload.DocType, "page": payload.Page}, err)
		}
		c.Status(http.StatusNoContent)
	}
}
