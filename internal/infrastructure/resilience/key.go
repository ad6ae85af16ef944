package resilience

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Upstream endpoint names. Circuit breaker state is tracked per endpoint;
// cache keys are scoped by them.
const (
	EndpointVehicles   = "vehicles"
	EndpointTaxonomy   = "taxonomy"
	EndpointValuations = "valuations"
	EndpointMetrics    = "vehicle-metrics"
	EndpointCheck      = "vehicle-check"
	EndpointListings   = "listings"
	EndpointTrends     = "valuation-trends"
)

// Key is a deterministic fingerprint of an upstream operation and its
// normalized parameters. Two logically identical requests produce the same
// Key regardless of the order parameters were supplied in.
type Key struct {
	endpoint    string
	fingerprint string
}

// NewKey builds a key from an endpoint name and its normalized parameters
func NewKey(endpoint string, params map[string]string) Key {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Key{
		endpoint:    endpoint,
		fingerprint: endpoint + ":" + hex.EncodeToString(sum[:8]),
	}
}

// Endpoint returns the upstream endpoint this key belongs to
func (k Key) Endpoint() string {
	return k.endpoint
}

// String returns the cache fingerprint
func (k Key) String() string {
	return k.fingerprint
}

// mileageBucket is the granularity mileage is rounded to before
// fingerprinting. Valuations barely move within a bucket, and rounding
// stops near-identical requests fragmenting the cache.
const mileageBucket = 500

// RoundMileage rounds a mileage to the nearest cache bucket
func RoundMileage(mileage int) int {
	if mileage < 0 {
		return 0
	}
	return (mileage + mileageBucket/2) / mileageBucket * mileageBucket
}
