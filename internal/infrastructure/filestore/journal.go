package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

const maxJournalLine = 1 << 20

// Journal is an append-only JSON Lines file implementing ports.Journal[T].
// Every Append is fsynced before it returns.
type Journal[T any] struct {
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	file *os.File
}

// OpenJournal opens or creates the journal at path.
func OpenJournal[T any](path string, log zerolog.Logger) (*Journal[T], error) {
	j := &Journal[T]{path: path, log: log}
	if err := j.openLocked(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal[T]) openLocked() error {
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", j.path, err)
	}
	j.file = f
	return nil
}

func (j *Journal[T]) Append(_ context.Context, entry T) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return errors.New("journal is closed")
	}
	if _, err := j.file.Write(line); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("sync journal: %w", err)
	}
	return nil
}

// Load returns at most limit of the newest entries, oldest first. Lines that
// fail to decode, such as a torn final write, are skipped and logged.
func (j *Journal[T]) Load(_ context.Context, limit int) ([]T, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal %s: %w", j.path, err)
	}
	defer f.Close()

	var entries []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJournalLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e T
		if err := json.Unmarshal(raw, &e); err != nil {
			j.log.Warn().Err(err).Str("path", j.path).Int("line", lineNo).Msg("skipping corrupt journal line")
			continue
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) > 2*limit {
			entries = append(entries[:0:0], entries[len(entries)-limit:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal %s: %w", j.path, err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Rewrite atomically replaces the journal with entries.
func (j *Journal[T]) Rewrite(_ context.Context, entries []T) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode journal entry: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := writeFileAtomic(j.path, buf.Bytes()); err != nil {
		return fmt.Errorf("rewrite journal %s: %w", j.path, err)
	}
	// The old handle still points at the replaced inode.
	if j.file != nil {
		_ = j.file.Close()
	}
	return j.openLocked()
}

func (j *Journal[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
