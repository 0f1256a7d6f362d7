// Package selection decides which relays may fill a circuit position and
// picks among them.
//
// IsSuitable is the per-relay predicate. A Selector combines it with a
// netview.View, bandwidth-weighted sampling and the onion service rings to
// answer three questions: pick a relay for a usage, check a relay chosen
// earlier against the current view, and build a whole path whose hops share
// no identity, family or subnet.
//
// Selection never mutates an exclusion.Tracker it is given. BuildPath owns a
// private tracker and returns either a complete path or a *PathError.
package selection
