package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// SystemMetricsRegistry holds the atomic counters sampled by the admin API.
type SystemMetricsRegistry struct {
	TotalRequestCount     int64 `json:"total_request_count"`
	ActiveConnectionCount int64 `json:"active_connection_count"`
	GetOperationCount     int64 `json:"get_operation_count"`
	PutOperationCount     int64 `json:"put_operation_count"`
	DeleteOperationCount  int64 `json:"delete_operation_count"`
	ScanOperationCount    int64 `json:"scan_operation_count"`
	WalAppendCount        int64 `json:"wal_append_count"`
	WalBytesWritten       int64 `json:"wal_bytes_written"`
	SystemMemoryBytes     int64 `json:"system_memory_bytes"`
	GoroutineCount        int64 `json:"goroutine_count"`
	WalSizeBytes          int64 `json:"wal_size_bytes"`
}

var Global SystemMetricsRegistry

// Prometheus mirrors of the registry counters, exported on the admin port.
var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "durakv_requests_total",
		Help: "Requests processed, partitioned by operation.",
	}, []string{"operation"})

	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "durakv_active_connections",
		Help: "Connections currently open against the binary protocol port.",
	})

	WalAppendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "durakv_wal_appends_total",
		Help: "Records appended to the write-ahead log.",
	})

	WalBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "durakv_wal_bytes_total",
		Help: "Bytes written to the write-ahead log.",
	})

	KeysStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "durakv_keys_stored",
		Help: "Keys currently held in the in-memory store.",
	})
)

func RegisterPrometheusCollectors(registerer prometheus.Registerer) {
	registerer.MustRegister(RequestsTotal, ActiveConnections, WalAppendsTotal, WalBytesTotal, KeysStored)
}

func IncrementRequestCount(operation string) {
	atomic.AddInt64(&Global.TotalRequestCount, 1)
	RequestsTotal.WithLabelValues(operation).Inc()
}

func IncrementGetOperationCount()    { atomic.AddInt64(&Global.GetOperationCount, 1) }
func IncrementPutOperationCount()    { atomic.AddInt64(&Global.PutOperationCount, 1) }
func IncrementDeleteOperationCount() { atomic.AddInt64(&Global.DeleteOperationCount, 1) }
func IncrementScanOperationCount()   { atomic.AddInt64(&Global.ScanOperationCount, 1) }

func IncrementConnectionCount() {
	atomic.AddInt64(&Global.ActiveConnectionCount, 1)
	ActiveConnections.Inc()
}

func DecrementConnectionCount() {
	atomic.AddInt64(&Global.ActiveConnectionCount, -1)
	ActiveConnections.Dec()
}

func RecordWalAppend(recordSizeInBytes int) {
	atomic.AddInt64(&Global.WalAppendCount, 1)
	atomic.AddInt64(&Global.WalBytesWritten, int64(recordSizeInBytes))
	WalAppendsTotal.Inc()
	WalBytesTotal.Add(float64(recordSizeInBytes))
}

// GetCurrentState returns a snapshot for the API
func GetCurrentState() map[string]int64 {
	return map[string]int64{
		"total_requests":     atomic.LoadInt64(&Global.TotalRequestCount),
		"active_connections": atomic.LoadInt64(&Global.ActiveConnectionCount),
		"get_ops":            atomic.LoadInt64(&Global.GetOperationCount),
		"put_ops":            atomic.LoadInt64(&Global.PutOperationCount),
		"delete_ops":         atomic.LoadInt64(&Global.DeleteOperationCount),
		"scan_ops":           atomic.LoadInt64(&Global.ScanOperationCount),
		"wal_appends":        atomic.LoadInt64(&Global.WalAppendCount),
		"wal_bytes":          atomic.LoadInt64(&Global.WalBytesWritten),
		"system_memory":      atomic.LoadInt64(&Global.SystemMemoryBytes),
		"goroutines":         atomic.LoadInt64(&Global.GoroutineCount),
		"wal_size_bytes":     atomic.LoadInt64(&Global.WalSizeBytes),
	}
}
