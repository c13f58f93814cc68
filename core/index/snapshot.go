package index

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/hrrag/model"
)

// Snapshot is one complete ingestion result: the vectors and the records at the same ordinals.
type Snapshot struct {
	BuildID   uuid.UUID
	Model     string
	CreatedAt time.Time
	Index     *Flat
	Records   []model.Record
}

// Store persists and loads snapshots. Save replaces the previous snapshot atomically.
// Current returns the build id of the stored snapshot without loading it.
type Store interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Current(ctx context.Context) (uuid.UUID, error)
}

// NewSnapshot assigns a fresh build id and ordinals to the chunks.
func NewSnapshot(embeddingModel string, flat *Flat, chunks []model.Chunk) (*Snapshot, error) {
	s := &Snapshot{
		BuildID:   uuid.New(),
		Model:     embeddingModel,
		CreatedAt: time.Now().UTC(),
		Index:     flat,
		Records:   model.NewRecords(chunks),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of indexed records.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// Validate checks that index and records correspond ordinal by ordinal.
func (s *Snapshot) Validate() error {
	if s.Index == nil {
		return fmt.Errorf("%w: snapshot has no index", model.ErrCorruptState)
	}
	if s.Index.Len() != len(s.Records) {
		return fmt.Errorf("%w: index holds %d vectors but metadata holds %d records", model.ErrCorruptState, s.Index.Len(), len(s.Records))
	}
	for i, r := range s.Records {
		if r.Ordinal != i {
			return fmt.Errorf("%w: record at position %d has ordinal %d", model.ErrCorruptState, i, r.Ordinal)
		}
	}
	return nil
}
