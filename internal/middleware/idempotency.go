package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyLockTTL  = 30 * time.Second
	idempotencyCacheTTL = 24 * time.Hour
)

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the cached response for repeated POSTs carrying the
// same Idempotency-Key, and uses a short-lived SetNX lock to reject a
// duplicate that arrives while the first attempt is still in flight.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempKey := c.GetHeader("Idempotency-Key")

		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		userID := c.GetString("user_id_validated")
		if userID == "" {
			userID = c.GetString("user_id")
		}

		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), userID, idempKey)
		lockKey := cacheKey + ":lock"

		ctx := c.Request.Context()

		if val, err := rdb.Get(ctx, cacheKey).Result(); err == nil {
			c.Header("X-Idempotent-Replay", "true")
			c.Data(http.StatusOK, "application/json", []byte(val))
			c.Abort()
			return
		}

		// Short expiry so a crashed server releases the lock on its own.
		isNew, _ := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
		if !isNew {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"code":    "PROCESSING",
				"message": "Your request is still being processed, please wait.",
			})
			return
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		// Only successful outcomes are worth replaying; failures may succeed
		// on retry.
		if writer.Status() >= 200 && writer.Status() < 300 {
			_ = rdb.Set(ctx, cacheKey, writer.body.String(), idempotencyCacheTTL).Err()
		}
		_ = rdb.Del(ctx, lockKey).Err()
	}
}
