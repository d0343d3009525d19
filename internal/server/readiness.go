// Package server implements HTTP health and readiness probes for the router daemon.
package server

import (
	"context"
	"errors"

	"github.com/routecore/router/internal/metadata"
)

// MetadataStoreChecker implements ReadinessChecker for the metadata store backing
// the grouping coordinator's proposal registry.
type MetadataStoreChecker struct {
	store metadata.MetadataStore
}

// NewMetadataStoreChecker creates a new MetadataStoreChecker.
func NewMetadataStoreChecker(store metadata.MetadataStore) *MetadataStoreChecker {
	return &MetadataStoreChecker{store: store}
}

// Name returns the name of this component for health status display.
func (c *MetadataStoreChecker) Name() string {
	return "metadata_store"
}

// CheckReady verifies the metadata store is accessible.
// It performs a simple Get operation to verify connectivity.
func (c *MetadataStoreChecker) CheckReady(ctx context.Context) error {
	if c.store == nil {
		return errors.New("metadata store not configured")
	}

	// Perform a simple Get operation to verify connectivity.
	// We use a known non-existent key - we just want to verify the store responds.
	_, err := c.store.Get(ctx, "/router/v1/health-check")
	if err != nil && !errors.Is(err, metadata.ErrKeyNotFound) {
		// ErrKeyNotFound is expected (the key doesn't exist), any other error is a problem.
		return err
	}
	return nil
}

// FuncChecker is a simple ReadinessChecker that wraps a function.
// Useful for ad-hoc checks or testing.
type FuncChecker struct {
	name  string
	check func(context.Context) error
}

// NewFuncChecker creates a new FuncChecker with the given name and check function.
func NewFuncChecker(name string, check func(context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

// Name returns the name of this component.
func (c *FuncChecker) Name() string {
	return c.name
}

// CheckReady calls the wrapped function.
func (c *FuncChecker) CheckReady(ctx context.Context) error {
	if c.check == nil {
		return nil
	}
	return c.check(ctx)
}
