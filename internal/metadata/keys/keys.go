// Package keys provides key encoding/decoding for the router's metadata
// keyspace: grouping proposal records and broker registration entries.
package keys

import (
	"errors"
	"fmt"
	"strings"
)

// Key prefixes.
const (
	// Prefix is the root prefix for all router metadata keys.
	Prefix = "/router/v1"

	// ClusterPrefix is the prefix for cluster metadata.
	ClusterPrefix = Prefix + "/cluster"

	// GroupingPrefix is the prefix for message-group routing proposals.
	GroupingPrefix = Prefix + "/grouping"
)

// ErrInvalidKey is returned when a key cannot be parsed.
var ErrInvalidKey = errors.New("keys: invalid key format")

// BrokerKeyPath returns the key for a broker registration (ephemeral).
// Format: /router/v1/cluster/<clusterId>/brokers/<brokerId>
func BrokerKeyPath(clusterID, brokerID string) string {
	return fmt.Sprintf("%s/%s/brokers/%s", ClusterPrefix, clusterID, brokerID)
}

// BrokersPrefix returns the prefix for listing all brokers in a cluster.
func BrokersPrefix(clusterID string) string {
	return fmt.Sprintf("%s/%s/brokers/", ClusterPrefix, clusterID)
}

// ParseBrokerKey parses a broker key into its components.
func ParseBrokerKey(key string) (clusterID, brokerID string, err error) {
	prefix := ClusterPrefix + "/"
	if !strings.HasPrefix(key, prefix) {
		return "", "", ErrInvalidKey
	}

	rest := key[len(prefix):]
	parts := strings.Split(rest, "/brokers/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidKey
	}

	return parts[0], parts[1], nil
}

// GroupProposalKeyPath returns the key for a message-group routing
// proposal record. fullID is the "groupId.routingName" composite key
// the routing core constructs for each grouped routing attempt.
// Format: /router/v1/grouping/<clusterId>/<fullId>
func GroupProposalKeyPath(clusterID, fullID string) string {
	return fmt.Sprintf("%s/%s/%s", GroupingPrefix, clusterID, fullID)
}

// GroupProposalsPrefix returns the prefix for listing all proposal
// records for a cluster.
func GroupProposalsPrefix(clusterID string) string {
	return fmt.Sprintf("%s/%s/", GroupingPrefix, clusterID)
}

// ParseGroupProposalKey parses a proposal key into its cluster id and
// full group id.
func ParseGroupProposalKey(key string) (clusterID, fullID string, err error) {
	prefix := GroupingPrefix + "/"
	if !strings.HasPrefix(key, prefix) {
		return "", "", ErrInvalidKey
	}

	rest := key[len(prefix):]
	idx := strings.Index(rest, "/")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", ErrInvalidKey
	}

	return rest[:idx], rest[idx+1:], nil
}
