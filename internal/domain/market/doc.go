// Package market defines the types and gateway contract for the external
// vehicle-data provider: taxonomy lookups, valuations, vehicle metrics,
// history checks and competitor listings. Implementations live in
// infrastructure; everything here is transport-agnostic.
package market
