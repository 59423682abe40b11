// Package catalog holds the mutable set of launchable items and hands
// out immutable snapshots to query sessions. Writers serialize through
// a single mutex and publish copy-on-write roots, so taking a snapshot
// is one atomic load and never blocks on mutations.
package catalog

import (
	"reflect"

	"github.com/lumenlauncher/lumen/internal/match"
)

// Item is a single addressable catalog entry. Once published into a
// snapshot it is immutable; an upsert for the same id publishes a new
// Item rather than mutating the old one, so results computed from prior
// snapshots stay valid.
type Item struct {
	// ID is the stable opaque key chosen by the catalog provider.
	ID string

	// Labels are the display strings the item can be matched on:
	// the primary label first, then optional aliases.
	Labels []string

	// Payload is an opaque reference to provider-owned action data.
	// The engine never inspects it.
	Payload any

	matcherName string
	matcher     match.Matcher
	normalized  []match.Text
}

// NormalizedLabel returns the precomputed match form of label i.
func (it *Item) NormalizedLabel(i int) match.Text {
	return it.normalized[i]
}

// Matcher returns the matcher resolved for this item at registration.
func (it *Item) Matcher() match.Matcher {
	return it.matcher
}

// MatcherName returns the name the item's matcher was resolved from.
func (it *Item) MatcherName() string {
	return it.matcherName
}

// equivalent reports whether a re-upsert would be a no-op: same labels,
// same payload, same matcher. Used to skip publishing a new root.
func (it *Item) equivalent(labels []string, payload any, matcherName string) bool {
	if it.matcherName != matcherName || len(it.Labels) != len(labels) {
		return false
	}
	for i, l := range labels {
		if it.Labels[i] != l {
			return false
		}
	}
	return reflect.DeepEqual(it.Payload, payload)
}
