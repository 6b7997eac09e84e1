package markov

import (
	"context"
)

// Stats holds aggregated statistics for a pattern table.
type Stats struct {
	Contexts       int    // The number of distinct contexts
	Observations   int    // The total number of recorded context -> follower transitions
	Alphabet       int    // The number of distinct runes seen as followers
	MaxFollowers   int    // The length of the longest follower list
	BusiestContext string // The context owning the longest follower list
}

// ComputeStats walks every context of table and returns a snapshot of its
// statistics. The table must be flushed.
func ComputeStats(ctx context.Context, table Table) (Stats, error) {
	keys, err := table.Contexts(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Contexts: len(keys)}
	alphabet := make(map[rune]struct{})
	for _, key := range keys {
		followers, err := table.Followers(ctx, key)
		if err != nil {
			return Stats{}, err
		}
		stats.Observations += len(followers)
		if len(followers) > stats.MaxFollowers {
			stats.MaxFollowers = len(followers)
			stats.BusiestContext = key
		}
		for _, r := range followers {
			alphabet[r] = struct{}{}
		}
	}
	stats.Alphabet = len(alphabet)
	return stats, nil
}
