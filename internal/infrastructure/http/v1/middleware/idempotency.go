package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"mystore/internal/core/apperror"
	appctx "mystore/internal/core/context"
	"mystore/internal/infrastructure/storage/postgres"
	"mystore/pkg/logger"
)

const (
	HeaderIdempotencyKey      = "X-Idempotency-Key"
	HeaderIdempotencyReplayed = "X-Idempotency-Replayed"

	maxIdempotencyBodyBytes = 1 << 20
)

// IdempotencyStore is the storage behind Idempotency.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key, userID string, statusCode int, contentType string, body []byte) error
	FailKey(ctx context.Context, key, userID string, statusCode int, contentType string, body []byte) error
	ReleaseKey(ctx context.Context, key, userID string) error
}

// bodyRecorder tees the response body so it can be stored for replay.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated
// X-Idempotency-Key on POST/PUT/PATCH/DELETE. Requests without the header
// pass through. 2xx responses are stored as completed, 4xx as failed;
// anything else releases the key so the client may retry.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1))
		if err != nil {
			_ = c.Error(apperror.NewValidation("unreadable request body"))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			_ = c.Error(apperror.NewPayloadTooLarge(maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := sha256.Sum256(body)
		operation := c.Request.Method + " " + c.Request.URL.Path

		userID := appctx.GetUserID(ctx)
		replay, err := store.AcquireKey(ctx, key, userID, operation, hex.EncodeToString(hash[:]))
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
			} else {
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			}
			c.Abort()
			return
		}
		if replay != nil {
			c.Header(HeaderIdempotencyReplayed, "true")
			if replay.StatusCode == http.StatusNoContent {
				c.Status(http.StatusNoContent)
			} else {
				c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			}
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		contentType := rec.Header().Get("Content-Type")
		var storeErr error
		switch {
		case len(c.Errors) > 0 && !rec.Written():
			storeErr = store.ReleaseKey(ctx, key, userID)
		case status >= 200 && status < 300:
			storeErr = store.CompleteKey(ctx, key, userID, status, contentType, bodyOrNil(rec.buf.Bytes()))
		case status >= 400 && status < 500:
			storeErr = store.FailKey(ctx, key, userID, status, contentType, bodyOrNil(rec.buf.Bytes()))
		default:
			storeErr = store.ReleaseKey(ctx, key, userID)
		}
		if storeErr != nil {
			logger.Warn(ctx, "idempotency key not stored", "key", key, "error", storeErr)
		}
	}
}

func bodyOrNil(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
