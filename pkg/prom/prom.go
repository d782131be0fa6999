package prom

import (
	"sync"

	xhttp "github.com/nimasrn/momo-analyzer/pkg/http"
	"github.com/nimasrn/momo-analyzer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemImport = "import"
)

const (
	MetricImportRecords  = "records_total"
	MetricImportDropped  = "dropped_total"
	MetricImportDuration = "duration_seconds"
	MetricImportJobs     = "jobs_total"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var registry = prometheus.NewRegistry()

var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionHistogram = make(map[string]prometheus.Histogram)

var defaultLabels prometheus.Labels

// importBuckets span a small backup parsed in-request up to a multi-megabyte one.
var importBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Create registers the import metrics and enables recording. Calling it again resets
// the registry.
func Create(host string, env string, nameSpace string) error {
	lockCreateMetricLock.Lock()
	registry = prometheus.NewRegistry()
	MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
	MetricCollectionHistogram = make(map[string]prometheus.Histogram)
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace
	lockCreateMetricLock.Unlock()

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemImport, MetricImportRecords, "Transaction records stored by imports.", "type"))
	hasError(createCounterVec(SystemImport, MetricImportDropped, "Backup entries skipped by the parser.", "reason"))
	hasError(createCounterVec(SystemImport, MetricImportJobs, "Import jobs by outcome.", "status"))
	hasError(createHistogram(SystemImport, MetricImportDuration, "Time spent parsing and storing one backup."))

	MetricSystemEnabled = err == nil
	return err
}

// Gatherer exposes the registry the metrics are recorded in.
func Gatherer() prometheus.Gatherer {
	return registry
}

// Handler serves the registry in the prometheus text format.
func Handler() xhttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

func ListenAndServer(port string, url string) {
	s := xhttp.CreateServer()
	s.GET(url, Handler())
	logger.Info("[metrics-server] listening...", "port", port, "url", url)
	if err := s.ListenAndServe(port); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func createCounterVec(subsystem, name, help string, labels ...string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounterVec[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: defaultLabels,
	}, labels)
	return registry.Register(MetricCollectionCounterVec[subsystem+name])
}

func createHistogram(subsystem, name, help string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogram[subsystem+name] = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: defaultLabels,
		Buckets:     importBuckets,
	})
	return registry.Register(MetricCollectionHistogram[subsystem+name])
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func AddHistogram(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogram[subsystem+name]; ok {
		v.Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram not found", "subsystem", subsystem, "name", name)
}

func AddImportRecords(txType string, n int) {
	AddCounterVec(SystemImport, MetricImportRecords, float64(n), txType)
}

func AddImportDropped(reason string, n int) {
	AddCounterVec(SystemImport, MetricImportDropped, float64(n), reason)
}

func AddImportDuration(seconds float64) {
	AddHistogram(SystemImport, MetricImportDuration, seconds)
}

func IncImportJobs(status string) {
	AddCounterVec(SystemImport, MetricImportJobs, 1, status)
}
