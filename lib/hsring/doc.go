// Package hsring places relays on the consistent-hash rings used by onion
// services.
//
// Ring positions depend only on the relay's Ed25519 identity, the time
// period and that period's shared random value, so a client and a service
// that hold the same view compute the same ring without coordinating.
// Nothing in this package uses randomness.
package hsring
