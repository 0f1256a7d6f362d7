// Package sampler implements stateless weighted random selection.
//
// Callers inject the random Source on every call, which makes draws
// reproducible under a fixed seed (see NewSource).
package sampler
