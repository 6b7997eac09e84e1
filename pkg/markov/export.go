package markov

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ExportedTable is the serializable representation of a learned table, used
// for inspecting what a run learned.
type ExportedTable struct {
	SampleSize int               `json:"sample_size"`
	Contexts   []ExportedContext `json:"contexts"`
}

// ExportedContext is a single context and its followers in observation order.
type ExportedContext struct {
	Context   string `json:"context"`
	Followers string `json:"followers"`
}

// Export serializes table into indented JSON and writes it to w. Contexts
// appear in the table's key order.
func Export(ctx context.Context, table Table, sampleSize int, w io.Writer) error {
	keys, err := table.Contexts(ctx)
	if err != nil {
		return fmt.Errorf("could not list contexts for export: %w", err)
	}

	exported := ExportedTable{
		SampleSize: sampleSize,
		Contexts:   make([]ExportedContext, 0, len(keys)),
	}
	for _, key := range keys {
		followers, err := table.Followers(ctx, key)
		if err != nil {
			return fmt.Errorf("could not read followers of %q for export: %w", key, err)
		}
		exported.Contexts = append(exported.Contexts, ExportedContext{
			Context:   key,
			Followers: string(followers),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}
