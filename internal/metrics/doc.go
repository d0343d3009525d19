// Package metrics provides Prometheus metrics for observability.
//
// This package exposes metrics for:
//   - Oxia metadata store operation latency and retry counts, broken down
//     by operation (get, put, delete, list, txn, put_ephemeral) and outcome
//   - Bindings table routing outcomes (delivered, no bindings, scale down,
//     unknown ID) and fan-out width per routed message
//   - Redistribution outcomes for messages moved off a binding being removed
//   - Group proposal protocol outcomes (accepted, declined, timeout,
//     exhausted) and end-to-end proposal latency including retries
//
// Metrics are exposed via a dedicated HTTP server on /metrics in Prometheus format.
//
// Usage:
//
//	// Create and register metrics
//	oxiaMetrics := metrics.NewOxiaMetrics()
//	routingMetrics := metrics.NewRoutingMetrics()
//
//	// Record observations from the call sites that own the outcome
//	routingMetrics.RecordRouted(metrics.RouteOutcomeDelivered, len(targets))
//	routingMetrics.RecordGroupProposal(metrics.ProposalOutcomeAccepted, elapsed.Seconds())
//
//	// Start metrics server
//	metricsServer := metrics.NewServer(":9090")
//	metricsServer.Start()
package metrics
