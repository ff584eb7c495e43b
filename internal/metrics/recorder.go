package metrics

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared by page and action counters.
const (
	OutcomeSuccess          = "success"
	OutcomeFailure          = "failure"
	OutcomeNotFound         = "not_found"
	OutcomeSimulated        = "simulated"
	OutcomeAlreadyFollowing = "already_following"
)

// Traversal node state label values.
const (
	NodeStateExpanded     = "expanded"
	NodeStatePruned       = "pruned"
	NodeStateCycleSkipped = "cycle_skipped"
)

const (
	metricsNamespaceConstant               = "ghfollow"
	pageRequestsMetricNameConstant         = "page_requests_total"
	pageRequestsMetricHelpConstant         = "Relationship list pages requested from GitHub."
	actionsMetricNameConstant              = "actions_total"
	actionsMetricHelpConstant              = "Follow and unfollow actions by outcome."
	traversalNodesMetricNameConstant       = "traversal_nodes_total"
	traversalNodesMetricHelpConstant       = "Traversal nodes by state."
	traversalDepthMetricNameConstant       = "traversal_max_depth"
	traversalDepthMetricHelpConstant       = "Deepest traversal level reached in this run."
	listLabelConstant                      = "list"
	outcomeLabelConstant                   = "outcome"
	actionLabelConstant                    = "action"
	stateLabelConstant                     = "state"
	textfilePathMissingMessageConstant     = "metrics textfile path must be provided"
	textfileWriteErrorTemplateConstant     = "failed to write metrics textfile %s: %w"
	collectorRegisterErrorTemplateConstant = "failed to register metrics collector: %w"
)

// Recorder receives counters describing API pagination, relationship actions, and traversal progress.
type Recorder interface {
	PageRequested(list string, outcome string)
	ActionCompleted(action string, outcome string)
	TraversalNode(state string)
	TraversalDepth(depth int)
}

// NopRecorder discards every observation.
type NopRecorder struct{}

// PageRequested discards the observation.
func (NopRecorder) PageRequested(string, string) {}

// ActionCompleted discards the observation.
func (NopRecorder) ActionCompleted(string, string) {}

// TraversalNode discards the observation.
func (NopRecorder) TraversalNode(string) {}

// TraversalDepth discards the observation.
func (NopRecorder) TraversalDepth(int) {}

// PrometheusRecorder keeps run counters in a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry       *prometheus.Registry
	pageRequests   *prometheus.CounterVec
	actions        *prometheus.CounterVec
	traversalNodes *prometheus.CounterVec
	maxDepth       prometheus.Gauge
	depthMutex     sync.Mutex
	deepestLevel   int
}

// NewPrometheusRecorder registers the ghfollow collectors on a fresh registry.
func NewPrometheusRecorder() (*PrometheusRecorder, error) {
	recorder := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		pageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      pageRequestsMetricNameConstant,
			Help:      pageRequestsMetricHelpConstant,
		}, []string{listLabelConstant, outcomeLabelConstant}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      actionsMetricNameConstant,
			Help:      actionsMetricHelpConstant,
		}, []string{actionLabelConstant, outcomeLabelConstant}),
		traversalNodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      traversalNodesMetricNameConstant,
			Help:      traversalNodesMetricHelpConstant,
		}, []string{stateLabelConstant}),
		maxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespaceConstant,
			Name:      traversalDepthMetricNameConstant,
			Help:      traversalDepthMetricHelpConstant,
		}),
	}

	for _, collector := range []prometheus.Collector{recorder.pageRequests, recorder.actions, recorder.traversalNodes, recorder.maxDepth} {
		if registerError := recorder.registry.Register(collector); registerError != nil {
			return nil, fmt.Errorf(collectorRegisterErrorTemplateConstant, registerError)
		}
	}

	return recorder, nil
}

// Gatherer exposes the registry backing the recorder.
func (recorder *PrometheusRecorder) Gatherer() prometheus.Gatherer {
	return recorder.registry
}

// PageRequested counts one list page request.
func (recorder *PrometheusRecorder) PageRequested(list string, outcome string) {
	recorder.pageRequests.WithLabelValues(list, outcome).Inc()
}

// ActionCompleted counts one follow or unfollow action.
func (recorder *PrometheusRecorder) ActionCompleted(action string, outcome string) {
	recorder.actions.WithLabelValues(action, outcome).Inc()
}

// TraversalNode counts one traversal node transition.
func (recorder *PrometheusRecorder) TraversalNode(state string) {
	recorder.traversalNodes.WithLabelValues(state).Inc()
}

// TraversalDepth raises the max depth gauge when depth exceeds the deepest level seen so far.
func (recorder *PrometheusRecorder) TraversalDepth(depth int) {
	recorder.depthMutex.Lock()
	defer recorder.depthMutex.Unlock()
	if depth <= recorder.deepestLevel {
		return
	}
	recorder.deepestLevel = depth
	recorder.maxDepth.Set(float64(depth))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (recorder *PrometheusRecorder) WriteTextfile(filePath string) error {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return fmt.Errorf(textfileWriteErrorTemplateConstant, filePath, errors.New(textfilePathMissingMessageConstant))
	}
	if writeError := prometheus.WriteToTextfile(trimmedPath, recorder.registry); writeError != nil {
		return fmt.Errorf(textfileWriteErrorTemplateConstant, trimmedPath, writeError)
	}
	return nil
}
