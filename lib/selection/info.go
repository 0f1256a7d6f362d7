package selection

import (
	"fmt"
	"sort"
	"strings"
)

// SelectionInfo counts what happened to every relay during one pick.
type SelectionInfo struct {
	// Considered is the number of relays in the view.
	Considered int
	// Usable passed the basic running/valid/ntor filter.
	Usable int
	// Accepted passed IsSuitable and every filter.
	Accepted int
	// Rejected counts usable relays by the first check they failed.
	Rejected map[ReasonKind]int
	// Filtered counts RelayFilter rejections by filter name.
	Filtered map[string]int
	// Relaxed is set when a flexible profile fell back to a middle usage.
	Relaxed bool
	// Strict holds the counts of the first attempt when Relaxed is set.
	Strict *SelectionInfo

	// first detail seen per kind
	details map[ReasonKind]string
}

func newSelectionInfo() SelectionInfo {
	return SelectionInfo{
		Rejected: make(map[ReasonKind]int),
		Filtered: make(map[string]int),
		details:  make(map[ReasonKind]string),
	}
}

func (i *SelectionInfo) reject(reason *UnsuitableReason) {
	i.Rejected[reason.Kind]++
	if _, seen := i.details[reason.Kind]; !seen {
		i.details[reason.Kind] = reason.Detail
	}
}

func (i *SelectionInfo) filter(name string) {
	i.reject(&UnsuitableReason{Kind: FilteredOut, Detail: name})
	i.Filtered[name]++
}

// MostCommon returns the most frequent rejection kind. Ties go to the kind
// the predicate checks first. ok is false if nothing was rejected.
func (i SelectionInfo) MostCommon() (kind ReasonKind, count int, ok bool) {
	for _, k := range reasonKinds {
		if n := i.Rejected[k]; n > count {
			kind, count, ok = k, n, true
		}
	}
	return kind, count, ok
}

// String summarises rejections, e.g.
// "rejected 3/10 as missing required flag; 1/10 as filtered by reachable".
func (i SelectionInfo) String() string {
	if i.Relaxed && i.Strict != nil {
		return fmt.Sprintf("at first %s; after relaxing requirements %s", i.Strict.counts(), i.counts())
	}
	return i.counts()
}

func (i SelectionInfo) counts() string {
	if i.Usable == 0 {
		return fmt.Sprintf("no usable relays among %d", i.Considered)
	}
	var parts []string
	for _, k := range reasonKinds {
		if k == FilteredOut {
			continue
		}
		if n := i.Rejected[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d/%d as %s", n, i.Usable, k))
		}
	}
	names := make([]string, 0, len(i.Filtered))
	for name := range i.Filtered {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%d/%d as filtered by %s", i.Filtered[name], i.Usable, name))
	}
	if len(parts) == 0 {
		return "rejected none"
	}
	return "rejected " + strings.Join(parts, "; ")
}

func (i SelectionInfo) mostCommonReason() *UnsuitableReason {
	kind, _, ok := i.MostCommon()
	if !ok {
		return nil
	}
	return &UnsuitableReason{Kind: kind, Detail: i.details[kind]}
}
