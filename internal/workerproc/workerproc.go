// Package workerproc contains the queue-message handling shared by the
// worker binary and its tests.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"treasury-backend/internal/bootstrap"
	"treasury-backend/internal/queue"
	"treasury-backend/internal/workorders"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingWorkOrderID indicates a message without a work order reference.
type ErrMissingWorkOrderID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingWorkOrderID) Error() string { return "missing work order id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	WorkOrderID string
	TenantID    string
	RequestID   string
	Err         error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process work order"
	}
	return "process work order: " + e.Err.Error()
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.WorkOrderID) == "" || strings.TrimSpace(msg.TenantID) == "" {
		return msg, meta, ErrMissingWorkOrderID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload. The
// work order was already claimed by the API, so the worker only drives the
// pipeline of an order sitting in processing.
func HandleMessage(ctx context.Context, app *bootstrap.App, body string) error {
	if app == nil || app.WorkOrdersService == nil {
		return errors.New("work order service not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(msg.WorkOrderID) == "" || strings.TrimSpace(msg.TenantID) == "" {
		return ErrMissingWorkOrderID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctxWithRequest := workorders.WithRequestID(ctx, msg.RequestID)
	if err := app.WorkOrdersService.ExecuteClaimed(ctxWithRequest, msg.TenantID, msg.WorkOrderID); err != nil {
		return ErrProcess{WorkOrderID: msg.WorkOrderID, TenantID: msg.TenantID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
