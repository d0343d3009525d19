// Package oxia implements the MetadataStore interface using Oxia.
//
// Oxia is a distributed metadata store designed for high-performance streaming systems.
// This package wraps the Oxia Go SDK to back the router's cluster-wide state: broker
// registration and message-group routing proposals.
//
// Usage:
//
//	store, err := oxia.New(ctx, oxia.Config{
//	    ServiceAddress: "localhost:6648",
//	    Namespace:      "router/my-cluster",
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	// Store a value
//	version, err := store.Put(ctx, "/router/v1/cluster/my-cluster/brokers/broker-1", data)
//
//	// Retrieve a value
//	result, err := store.Get(ctx, "/router/v1/cluster/my-cluster/brokers/broker-1")
//
// Namespace:
//
// A Store works within the single Oxia namespace named by Config.Namespace (the
// daemon's default is "router"). Clusters sharing that namespace are kept apart by
// key paths that include the cluster id (see the keys package).
//
// Ephemeral Keys:
//
// PutEphemeral creates keys that are automatically deleted when the client session ends.
// Group proposal records are written with plain Put, not PutEphemeral, so they
// outlive the session that wrote them and are removed only by ForceRemove.
//
// Transactions:
//
// Transactions use Oxia's shard-scoped write batch API to provide atomic multi-key
// updates within a single shard (PartitionKey scope).
//
// Notifications:
//
// The Notifications method returns a stream of change events for cache invalidation
// and other reactive patterns. Once subscribed, all subsequent changes are delivered.
package oxia
