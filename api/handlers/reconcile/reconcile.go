// Package reconcile merges the three status-keyed listing collections into a
// single de-duplicated view and filters it for search.
package reconcile

import (
	"strings"

	"github.com/roomloft/roomloft-api/models"
)

// Merge unions the three collection snapshots into one sequence with
// precedence accepted > pending > rejected. A listing id that transiently
// exists in more than one collection keeps its highest-precedence copy.
// Within each source, collection order is preserved; output is deterministic
// for fixed inputs.
func Merge(accepted, pending, rejected []models.Listing) []models.Listing {
	seen := make(map[string]struct{}, len(accepted)+len(pending)+len(rejected))
	merged := make([]models.Listing, 0, len(accepted)+len(pending)+len(rejected))

	for _, src := range [][]models.Listing{accepted, pending, rejected} {
		for _, listing := range src {
			if _, ok := seen[listing.ID]; ok {
				continue
			}
			seen[listing.ID] = struct{}{}
			merged = append(merged, listing)
		}
	}
	return merged
}

// Filter returns the listings whose name, address, owner email or status
// contains query, case-insensitively. An empty query returns the input
// unchanged.
func Filter(listings []models.Listing, query string) []models.Listing {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return listings
	}

	matched := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if matches(l.Details, q) {
			matched = append(matched, l)
		}
	}
	return matched
}

func matches(d models.ListingDetails, q string) bool {
	for _, field := range []string{d.Name, d.Address, d.OwnerEmail, d.Status} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
