// Package relay holds the value types shared by every stage of relay
// selection: identities, consensus flags, path roles, exit policies and
// subnet grouping.
package relay
