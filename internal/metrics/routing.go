package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RoutingMetrics holds metrics related to the bindings table's routing
// decisions: message dispatch outcomes, redistribution, and the group
// proposal protocol.
type RoutingMetrics struct {
	// RoutedTotal tracks messages routed, broken down by outcome (delivered,
	// no_bindings, scale_down, unknown_id).
	RoutedTotal *prometheus.CounterVec

	// TargetsPerMessage tracks how many bindings a single routed message
	// fanned out to (1 for exclusive/grouped routing, N for a diverted or
	// multi-queue address).
	TargetsPerMessage prometheus.Histogram

	// RedistributedTotal tracks messages moved off a binding that's about
	// to be removed, broken down by outcome (delivered, dropped).
	RedistributedTotal *prometheus.CounterVec

	// GroupProposalsTotal tracks group proposal protocol outcomes, broken
	// down by outcome (accepted, declined, timeout, exhausted).
	GroupProposalsTotal *prometheus.CounterVec

	// GroupProposalLatency tracks time spent in the group proposal
	// protocol per routed group, including any retries.
	GroupProposalLatency prometheus.Histogram
}

// Routing outcome label values.
const (
	RouteOutcomeDelivered   = "delivered"
	RouteOutcomeNoBindings  = "no_bindings"
	RouteOutcomeScaleDown   = "scale_down"
	RouteOutcomeUnknownID   = "unknown_id"
	RouteOutcomeDropped     = "dropped"
	ProposalOutcomeAccepted = "accepted"
	ProposalOutcomeDeclined = "declined"
	ProposalOutcomeTimeout  = "timeout"
	ProposalOutcomeExhausted = "exhausted"
)

// DefaultGroupProposalLatencyBuckets are latency buckets for the group
// proposal protocol, which involves at least one metadata store round
// trip and up to MaxGroupRetry of them.
var DefaultGroupProposalLatencyBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0,
}

// NewRoutingMetrics creates and registers routing metrics with the
// default registry.
func NewRoutingMetrics() *RoutingMetrics {
	return &RoutingMetrics{
		RoutedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "router",
				Subsystem: "routing",
				Name:      "routed_total",
				Help:      "Total number of messages routed, broken down by outcome.",
			},
			[]string{"outcome"},
		),
		TargetsPerMessage: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "router",
				Subsystem: "routing",
				Name:      "targets_per_message",
				Help:      "Number of bindings a routed message was delivered to.",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
			},
		),
		RedistributedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "router",
				Subsystem: "routing",
				Name:      "redistributed_total",
				Help:      "Total number of messages redistributed off a removed binding, broken down by outcome.",
			},
			[]string{"outcome"},
		),
		GroupProposalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "router",
				Subsystem: "grouping",
				Name:      "proposals_total",
				Help:      "Total number of group proposal protocol attempts, broken down by outcome.",
			},
			[]string{"outcome"},
		),
		GroupProposalLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "router",
				Subsystem: "grouping",
				Name:      "proposal_latency_seconds",
				Help:      "Time spent resolving a group's binding via the proposal protocol, including retries.",
				Buckets:   DefaultGroupProposalLatencyBuckets,
			},
		),
	}
}

// NewRoutingMetricsWithRegistry creates routing metrics registered with
// a custom registry. Useful for testing to avoid conflicts with the
// default registry.
func NewRoutingMetricsWithRegistry(reg prometheus.Registerer) *RoutingMetrics {
	routedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "router",
			Subsystem: "routing",
			Name:      "routed_total",
			Help:      "Total number of messages routed, broken down by outcome.",
		},
		[]string{"outcome"},
	)
	targetsPerMessage := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "router",
			Subsystem: "routing",
			Name:      "targets_per_message",
			Help:      "Number of bindings a routed message was delivered to.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)
	redistributedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "router",
			Subsystem: "routing",
			Name:      "redistributed_total",
			Help:      "Total number of messages redistributed off a removed binding, broken down by outcome.",
		},
		[]string{"outcome"},
	)
	groupProposalsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "router",
			Subsystem: "grouping",
			Name:      "proposals_total",
			Help:      "Total number of group proposal protocol attempts, broken down by outcome.",
		},
		[]string{"outcome"},
	)
	groupProposalLatency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "router",
			Subsystem: "grouping",
			Name:      "proposal_latency_seconds",
			Help:      "Time spent resolving a group's binding via the proposal protocol, including retries.",
			Buckets:   DefaultGroupProposalLatencyBuckets,
		},
	)

	reg.MustRegister(routedTotal, targetsPerMessage, redistributedTotal, groupProposalsTotal, groupProposalLatency)

	return &RoutingMetrics{
		RoutedTotal:          routedTotal,
		TargetsPerMessage:    targetsPerMessage,
		RedistributedTotal:   redistributedTotal,
		GroupProposalsTotal:  groupProposalsTotal,
		GroupProposalLatency: groupProposalLatency,
	}
}

// RecordRouted increments the routed counter for outcome and observes
// the number of targets a message fanned out to.
func (m *RoutingMetrics) RecordRouted(outcome string, targets int) {
	if m == nil {
		return
	}
	m.RoutedTotal.WithLabelValues(outcome).Inc()
	m.TargetsPerMessage.Observe(float64(targets))
}

// RecordRedistributed increments the redistribution counter for outcome.
func (m *RoutingMetrics) RecordRedistributed(outcome string) {
	if m == nil {
		return
	}
	m.RedistributedTotal.WithLabelValues(outcome).Inc()
}

// RecordGroupProposal increments the proposal counter for outcome and
// observes the latency of the whole proposal attempt (including any
// internal retries).
func (m *RoutingMetrics) RecordGroupProposal(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.GroupProposalsTotal.WithLabelValues(outcome).Inc()
	m.GroupProposalLatency.Observe(durationSeconds)
}
