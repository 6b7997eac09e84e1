package markov

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// maxResamples bounds the search for a context with followers. Every key of
// a well-formed table has followers, so the first draw always succeeds.
const maxResamples = 1024

// Generate walks table and returns a phrase of at least length runes.
//
// The phrase starts with a random context. Each step then appends one rune
// chosen uniformly from the followers of the current context and slides the
// context forward. When the current context has no followers a new random
// context is adopted and appended whole, so the result may run past length
// by one rune plus one context. Even a small length yields at least one full
// context.
func (g *Generator) Generate(ctx context.Context, table Table, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: length must be a positive integer, got %d", ErrInvalidArgument, length)
	}

	keys, err := table.Contexts(ctx)
	if err != nil {
		return "", fmt.Errorf("could not list contexts: %w", err)
	}
	if len(keys) == 0 {
		return "", ErrEmptyTable
	}

	var builder strings.Builder

	key := []rune(g.pick(keys))
	builder.WriteString(string(key))
	printed := len(key)
	resamples := 0

	for printed <= length {
		if err = ctx.Err(); err != nil {
			return "", err
		}

		values, err := table.Followers(ctx, string(key))
		if err != nil {
			return "", fmt.Errorf("could not look up context %q: %w", string(key), err)
		}

		// Dead end: adopt random contexts until one has followers.
		for attempts := 0; len(values) == 0; attempts++ {
			if attempts == maxResamples {
				return "", fmt.Errorf("%w: no context with followers after %d attempts", ErrEmptyTable, attempts)
			}
			key = []rune(g.pick(keys))
			values, err = table.Followers(ctx, string(key))
			if err != nil {
				return "", fmt.Errorf("could not look up context %q: %w", string(key), err)
			}
			if len(values) > 0 {
				builder.WriteString(string(key))
				printed += len(key)
				resamples++
			}
		}

		value := values[g.rng.IntN(len(values))]
		builder.WriteRune(value)
		printed++

		copy(key, key[1:])
		key[len(key)-1] = value
	}

	g.logger.DebugContext(ctx, "Generation completed",
		slog.Int("requested_length", length),
		slog.Int("generated_length", printed),
		slog.Int("contexts", len(keys)),
		slog.Int("resamples", resamples),
	)

	return builder.String(), nil
}

func (g *Generator) pick(keys []string) string {
	return keys[g.rng.IntN(len(keys))]
}
