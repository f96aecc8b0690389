package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	workOrderStartedTotal   atomic.Uint64
	workOrderCompletedTotal atomic.Uint64
	workOrderFailedTotal    atomic.Uint64
	datasetCreatedTotal     atomic.Uint64
	artifactWrittenTotal    atomic.Uint64
	integrityFailureTotal   atomic.Uint64

	queueJobsReceivedTotal      atomic.Uint64
	queueJobsCompletedTotal     atomic.Uint64
	queueJobsFailedTotal        atomic.Uint64
	queueJobsUnrecoverableTotal atomic.Uint64

	executionDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncWorkOrderStarted increments the started counter.
func IncWorkOrderStarted() {
	workOrderStartedTotal.Add(1)
}

// IncWorkOrderCompleted increments the completed counter.
func IncWorkOrderCompleted() {
	workOrderCompletedTotal.Add(1)
}

// IncWorkOrderFailed increments the failed counter.
func IncWorkOrderFailed() {
	workOrderFailedTotal.Add(1)
}

// IncDatasetCreated increments the dataset counter.
func IncDatasetCreated() {
	datasetCreatedTotal.Add(1)
}

// IncArtifactWritten increments the artifact counter.
func IncArtifactWritten() {
	artifactWrittenTotal.Add(1)
}

// IncIntegrityFailure increments the checksum-mismatch counter. Any non-zero
// value here is alert-worthy.
func IncIntegrityFailure() {
	integrityFailureTotal.Add(1)
}

// IncQueueJobReceived increments the worker's received-jobs counter.
func IncQueueJobReceived() {
	queueJobsReceivedTotal.Add(1)
}

// IncQueueJobCompleted increments the worker's completed-jobs counter.
func IncQueueJobCompleted() {
	queueJobsCompletedTotal.Add(1)
}

// IncQueueJobFailed increments the worker's failed-jobs counter.
func IncQueueJobFailed() {
	queueJobsFailedTotal.Add(1)
}

// IncQueueJobDeletedUnrecoverable counts jobs dropped because they can never
// succeed (malformed payloads and the like).
func IncQueueJobDeletedUnrecoverable() {
	queueJobsUnrecoverableTotal.Add(1)
}

// ObserveExecutionDurationMs records a work order execution duration in milliseconds.
func ObserveExecutionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	executionDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "work_order_started_total", "Total work order executions started", workOrderStartedTotal.Load())
	writeCounter(&buf, "work_order_completed_total", "Total work order executions completed", workOrderCompletedTotal.Load())
	writeCounter(&buf, "work_order_failed_total", "Total work order executions failed", workOrderFailedTotal.Load())
	writeCounter(&buf, "dataset_created_total", "Total datasets normalized and stored", datasetCreatedTotal.Load())
	writeCounter(&buf, "artifact_written_total", "Total artifacts written", artifactWrittenTotal.Load())
	writeCounter(&buf, "artifact_integrity_failure_total", "Total artifact checksum mismatches on read", integrityFailureTotal.Load())
	writeCounter(&buf, "queue_jobs_received_total", "Total queue jobs received by the worker", queueJobsReceivedTotal.Load())
	writeCounter(&buf, "queue_jobs_completed_total", "Total queue jobs completed by the worker", queueJobsCompletedTotal.Load())
	writeCounter(&buf, "queue_jobs_failed_total", "Total queue jobs that failed processing", queueJobsFailedTotal.Load())
	writeCounter(&buf, "queue_jobs_unrecoverable_total", "Total queue jobs deleted as unrecoverable", queueJobsUnrecoverableTotal.Load())
	writeHistogram(&buf, "work_order_execution_ms", "Work order execution duration in milliseconds", executionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
