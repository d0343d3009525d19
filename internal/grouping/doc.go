// Package grouping provides GroupingHandler implementations consumed by
// internal/routing's strict-ordering sticky-routing path.
//
//	memory.go  in-memory reference handler, for single-broker deployments
//	           and tests; the local map is the entire source of truth.
//	store.go   metadata-store-backed handler, for a clustered deployment:
//	           proposals are compare-and-swap records in the shared
//	           MetadataStore, so every broker in the cluster converges on
//	           the same decision for a given group id.
package grouping
