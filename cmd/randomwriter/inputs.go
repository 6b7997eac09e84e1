package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFileUnreadable is returned when a named training file cannot be opened.
var ErrFileUnreadable = errors.New("file not found or unreadable")

// openInputs opens every named file before any reading happens, so a bad
// path fails the run without touching the others. With no paths, stdin is the
// only input. The returned function closes everything that was opened and is
// safe to call on every exit path.
func openInputs(paths []string, stdin io.Reader) ([]io.Reader, int64, func(), error) {
	if len(paths) == 0 {
		return []io.Reader{stdin}, 0, func() {}, nil
	}

	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	var totalSize int64
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, 0, nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
		}
		files = append(files, f)

		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, 0, nil, fmt.Errorf("%w: %s: %w", ErrFileUnreadable, path, err)
		}
		if info.IsDir() {
			closeAll()
			return nil, 0, nil, fmt.Errorf("%w: %s is a directory", ErrFileUnreadable, path)
		}
		totalSize += info.Size()
	}

	readers := make([]io.Reader, len(files))
	for i, f := range files {
		readers[i] = f
	}
	return readers, totalSize, closeAll, nil
}
