package httpgin

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	keys "github.com/sarjanshah14/ParkingSpotFinder/internal/redis"
	redisrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/redis"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	idemLockTTL          = 60 * time.Second
	maxIdemKeyLen        = 255
)

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key from the same user. Keys are scoped per user, so it must
// run after Auth. Without a store or a key the request passes through.
func Idempotency(store *redisrepo.IdempotencyStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
		if store == nil || idemKey == "" {
			c.Next()
			return
		}
		if len(idemKey) > maxIdemKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Idempotency-Key too long"})
			return
		}

		userID, _ := currentUser(c)
		key := keys.KeyIdemBooking(userID, idemKey)
		ctx := c.Request.Context()

		if replayStored(c, store, key, idemKey) {
			return
		}

		locked, err := store.AcquireLock(ctx, key, idemLockTTL)
		if err != nil {
			logger.Warn("idempotency store unavailable", "key", idemKey, "error", err)
			c.Next()
			return
		}
		if !locked {
			if replayStored(c, store, key, idemKey) {
				return
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Header(headerIdempotencyKey, idemKey)

		c.Next()

		// the client may be gone already; the outcome still has to be recorded
		bg := context.WithoutCancel(ctx)
		if status := rec.Status(); status >= 200 && status < 300 {
			if err := store.SaveResult(bg, key, status, rec.body.Bytes()); err != nil {
				logger.Warn("idempotency result not saved", "key", idemKey, "error", err)
			}
			return
		}
		if err := store.Release(bg, key); err != nil {
			logger.Warn("idempotency lock not released", "key", idemKey, "error", err)
		}
	}
}

func replayStored(c *gin.Context, store *redisrepo.IdempotencyStore, key, idemKey string) bool {
	res, ok, err := store.GetResult(c.Request.Context(), key)
	if err != nil || !ok {
		return false
	}

	c.Header(headerIdempotencyKey, idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(res.Status, "application/json; charset=utf-8", res.Body)
	c.Abort()
	return true
}
