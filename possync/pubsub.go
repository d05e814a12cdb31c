package possync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"bitbucket.org/mmdatafocus/tickets_backend/models"
	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
)

// PublishSyncRun queues a sync pass on the pos-sync topic so the push
// subscription executes it outside the request that asked for it.
func PublishSyncRun(ctx context.Context, batchType string, triggeredBy string) error {
	topicName := strings.TrimSpace(os.Getenv("POS_SYNC_TOPIC"))
	if topicName == "" {
		topicName = "pos-sync"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if envBoolDefault("POS_SYNC_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	payload := SyncPubSubPayload{
		BatchType:   batchType,
		TriggeredBy: triggeredBy,
	}
	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler receives push deliveries. It always answers 204;
// returning an error status would only make Pub/Sub redeliver payloads
// that will never parse.
func PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_POS_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload SyncPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}
		if payload.BatchType == "" {
			c.Status(204)
			return
		}
		if payload.TriggeredBy == "" {
			payload.TriggeredBy = models.SyncTriggeredPubSub
		}

		result := runSyncPass(c.Request.Context(), payload.BatchType, payload.TriggeredBy)
		if !result.Success {
			config.LogError(config.GetLogger(), "possync", "PubSubPushHandler", "sync pass", payload.BatchType, errors.New(result.Error))
		} else {
			invalidateStatsCache()
		}
		c.Status(204)
	}
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
