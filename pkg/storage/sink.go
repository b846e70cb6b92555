package storage

import (
	"context"
	"fmt"
	"os"
)

// ObjectSink copies finished documents into a Storage backend under their
// final names. It is the delivery end of a rename run.
type ObjectSink struct {
	store Storage
}

func NewObjectSink(store Storage) *ObjectSink {
	return &ObjectSink{store: store}
}

// Finalize stores the file at sourcePath under finalName.
func (s *ObjectSink) Finalize(ctx context.Context, sourcePath, finalName string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source %s: %w", sourcePath, err)
	}
	defer f.Close()

	if _, err := s.store.Store(ctx, f, finalName); err != nil {
		return fmt.Errorf("store %s: %w", finalName, err)
	}
	return nil
}
