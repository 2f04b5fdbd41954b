package metrics

import "github.com/prometheus/client_golang/prometheus"

var uploadCollectors struct {
	blocksUploaded prometheus.Counter
	blocksDeduped  prometheus.Counter
	bytesUploaded  prometheus.Counter
	retries        *prometheus.CounterVec
	queueDepth     prometheus.Gauge
}

func registerUploadCollectors(reg *prometheus.Registry) {
	uploadCollectors.blocksUploaded = newCounter(reg, "safedrive_upload_blocks_total",
		"Total number of blocks sent to the remote store.")
	uploadCollectors.blocksDeduped = newCounter(reg, "safedrive_upload_blocks_deduped_total",
		"Total number of blocks skipped because the remote already has them.")
	uploadCollectors.bytesUploaded = newCounter(reg, "safedrive_upload_bytes_total",
		"Total number of wrapped block bytes sent to the remote store.")
	uploadCollectors.retries = newCounterVec(reg, "safedrive_upload_retries_total",
		"Total number of upload retries, by error kind.", "kind")
	uploadCollectors.queueDepth = newGauge(reg, "safedrive_upload_queue_depth",
		"Current number of blocks queued for upload.")
}

// RecordBlockUploaded records a block actually sent over the wire.
func RecordBlockUploaded(bytes int64) {
	if !IsEnabled() {
		return
	}
	uploadCollectors.blocksUploaded.Inc()
	uploadCollectors.bytesUploaded.Add(float64(bytes))
}

// RecordBlockDeduped records a block the remote store already held, so no
// upload was needed.
func RecordBlockDeduped() {
	if !IsEnabled() {
		return
	}
	uploadCollectors.blocksDeduped.Inc()
}

// RecordUploadRetry records a retried upload attempt, labeled by the error
// kind that triggered it (e.g. "network_failure", "service_unavailable").
func RecordUploadRetry(kind string) {
	if !IsEnabled() {
		return
	}
	uploadCollectors.retries.WithLabelValues(kind).Inc()
}

// RecordQueueDepth sets the upload queue's current backlog.
func RecordQueueDepth(n int) {
	if !IsEnabled() {
		return
	}
	uploadCollectors.queueDepth.Set(float64(n))
}
