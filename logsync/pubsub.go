package logsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func PublishSyncRun(ctx context.Context, triggeredBy string) error {
	topicName := strings.TrimSpace(os.Getenv("SYNC_TOPIC"))
	if topicName == "" {
		topicName = "purchases-sync"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if envBoolDefault("SYNC_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = uuid.NewString()
	}
	payload := SyncPubSubPayload{
		CorrelationId: correlationId,
		TriggeredBy:   triggeredBy,
	}
	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PublishSyncRunIfEnabled fires a sync trigger after a local mutation when
// SYNC_PUBLISH_ON_MUTATION is set. Failures only log; the mutation has
// already committed and the next scheduled run covers the backlog anyway.
func PublishSyncRunIfEnabled(ctx context.Context, triggeredBy string) {
	if !envBoolDefault("SYNC_PUBLISH_ON_MUTATION", false) {
		return
	}
	if err := PublishSyncRun(ctx, triggeredBy); err != nil {
		if logger := config.GetLogger(); logger != nil {
			logger.WithField("triggered_by", triggeredBy).Warn("sync trigger publish failed: " + err.Error())
		}
	}
}

// PubSubPushHandler consumes push-delivery messages from the sync topic and
// runs one sync pass. It always acks (204): redelivering a sync trigger has
// no value since every pass covers the full backlog anyway.
func PubSubPushHandler(engine *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_SYNC_PUBSUB_PUSH_ENDPOINT", true) {
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

		result, err := engine.Run(c.Request.Context())
		if err != nil && engine.Logger != nil {
			if errors.Is(err, ErrSyncInProgress) {
				engine.Logger.WithField("correlation_id", payload.CorrelationId).
					Info("sync trigger dropped, run already in progress")
			} else {
				engine.Logger.WithField("correlation_id", payload.CorrelationId).
					Error("sync run finished with errors: " + err.Error() + " (" + result.Summary() + ")")
			}
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
