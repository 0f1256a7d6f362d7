// Package weight implements bandwidth weighting for relay selection.
//
// A Table holds the role coefficients published with a consensus, indexed
// by a relay's Guard/Exit/V2Dir flag combination. A Set combines a Table
// with the bandwidth function and overflow shift chosen for one view.
package weight
