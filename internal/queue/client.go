// Package queue defines the execution hand-off between the API and the
// worker. The API claims a work order, enqueues a message, and the worker
// drives the pipeline for orders already sitting in processing.
package queue

import "context"

// Client sends work order execution messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
