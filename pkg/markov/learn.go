package markov

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Learner builds pattern tables from character streams using a fixed
// context length.
type Learner struct {
	sampleSize int
	logger     *slog.Logger
}

// NewLearner returns a Learner whose contexts are sampleSize runes long.
func NewLearner(sampleSize int) (*Learner, error) {
	if sampleSize <= 0 {
		return nil, fmt.Errorf("%w: sample size must be a positive integer, got %d", ErrInvalidArgument, sampleSize)
	}
	return &Learner{
		sampleSize: sampleSize,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the Learner. By default, all logs are discarded.
func (l *Learner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// SampleSize returns the context length used by the Learner.
func (l *Learner) SampleSize() int {
	return l.sampleSize
}

// Learn reads every stream in order and returns the resulting in-memory
// table. Contexts never span two streams. On any error no table is returned.
func (l *Learner) Learn(ctx context.Context, streams ...io.Reader) (*PatternTable, error) {
	table := NewPatternTable()
	if err := l.LearnInto(ctx, table, streams...); err != nil {
		return nil, err
	}
	return table, nil
}

// LearnInto is Learn for an arbitrary Table backend. The table is flushed
// after each stream.
func (l *Learner) LearnInto(ctx context.Context, table Table, streams ...io.Reader) error {
	var total int64
	for i, r := range streams {
		n, err := l.train(ctx, table, r)
		if err != nil {
			return fmt.Errorf("stream %d: %w", i, err)
		}
		if err = table.Flush(ctx); err != nil {
			return fmt.Errorf("stream %d: could not flush table: %w", i, err)
		}
		l.logger.DebugContext(ctx, "Stream learned",
			slog.Int("stream", i),
			slog.Int64("observations", n),
		)
		total += n
	}

	l.logger.InfoContext(ctx, "Learning completed",
		slog.Int("sample_size", l.sampleSize),
		slog.Int("streams", len(streams)),
		slog.Int64("observations", total),
	)
	return nil
}

// Train learns a single stream into table. The caller is responsible for
// flushing the table afterwards.
func (l *Learner) Train(ctx context.Context, table Table, r io.Reader) error {
	_, err := l.train(ctx, table, r)
	return err
}

func (l *Learner) train(ctx context.Context, table Table, r io.Reader) (int64, error) {
	reader, ok := r.(io.RuneReader)
	if !ok {
		reader = bufio.NewReader(r)
	}

	// Prime the context with the first sampleSize runes.
	key := make([]rune, 0, l.sampleSize)
	for len(key) < l.sampleSize {
		c, _, err := reader.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("%w: read %d of %d runes", ErrShortStream, len(key), l.sampleSize)
			}
			return 0, fmt.Errorf("%w: %w", ErrStreamRead, err)
		}
		key = append(key, c)
	}

	var observations int64
	for {
		if err := ctx.Err(); err != nil {
			return observations, err
		}
		c, _, err := reader.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return observations, fmt.Errorf("%w: %w", ErrStreamRead, err)
		}

		if err = table.Observe(ctx, string(key), c); err != nil {
			return observations, fmt.Errorf("could not record observation: %w", err)
		}
		observations++

		copy(key, key[1:])
		key[len(key)-1] = c
	}
	return observations, nil
}
