package index

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
)

// FileStore keeps a snapshot as two files, the binary index artifact and the JSON metadata artifact.
type FileStore struct {
	IndexPath string
	MetaPath  string
	log       *slog.Logger
}

// NewFileStore creates a file store. An empty metaPath defaults to model.DefaultMetaPath(indexPath).
func NewFileStore(indexPath string, metaPath string, logger *slog.Logger) (*FileStore, error) {
	if indexPath == "" {
		return nil, fmt.Errorf("%w: index path is required", model.ErrConfiguration)
	}
	if metaPath == "" {
		metaPath = model.DefaultMetaPath(indexPath)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		IndexPath: indexPath,
		MetaPath:  metaPath,
		log:       logger,
	}, nil
}

// Save stages both artifacts next to their targets and renames them into place.
// On failure no temporary file is left behind and the previous artifacts stay untouched.
func (s *FileStore) Save(ctx context.Context, snapshot *Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return helper.NewError("validate snapshot", err)
	}

	indexTmp, err := stageFile(s.IndexPath, func(w io.Writer) error { return EncodeIndex(w, snapshot) })
	if err != nil {
		return fmt.Errorf("%w: write index artifact %s: %v", model.ErrIngestionIO, s.IndexPath, err)
	}
	metaTmp, err := stageFile(s.MetaPath, func(w io.Writer) error { return EncodeMetadata(w, snapshot) })
	if err != nil {
		_ = os.Remove(indexTmp)
		return fmt.Errorf("%w: write metadata artifact %s: %v", model.ErrIngestionIO, s.MetaPath, err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(indexTmp)
		_ = os.Remove(metaTmp)
		return err
	}

	if err := os.Rename(indexTmp, s.IndexPath); err != nil {
		_ = os.Remove(indexTmp)
		_ = os.Remove(metaTmp)
		return fmt.Errorf("%w: replace index artifact: %v", model.ErrIngestionIO, err)
	}
	if err := os.Rename(metaTmp, s.MetaPath); err != nil {
		_ = os.Remove(metaTmp)
		return fmt.Errorf("%w: replace metadata artifact: %v", model.ErrIngestionIO, err)
	}

	s.log.Info("Saved index snapshot",
		slog.String("build_id", snapshot.BuildID.String()),
		slog.String("index_path", s.IndexPath),
		slog.String("meta_path", s.MetaPath),
		slog.Int("vectors", snapshot.Len()),
		slog.Int("dimension", snapshot.Index.Dim()),
	)

	return nil
}

// Load reads and cross-checks both artifacts.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readArtifact(s.IndexPath)
	if err != nil {
		return nil, err
	}
	header, flat, err := DecodeIndex(data)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(s.MetaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: metadata artifact %s", model.ErrNotFound, s.MetaPath)
		}
		return nil, helper.NewError("open metadata artifact", err)
	}
	defer f.Close()

	meta, err := DecodeMetadata(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}

	snapshot, err := assemble(header, flat, meta)
	if err != nil {
		return nil, err
	}

	s.log.Debug("Loaded index snapshot",
		slog.String("build_id", snapshot.BuildID.String()),
		slog.String("model", snapshot.Model),
		slog.Int("vectors", snapshot.Len()),
	)

	return snapshot, nil
}

// Current reads the build id from the index artifact header.
func (s *FileStore) Current(ctx context.Context) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	f, err := os.Open(s.IndexPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return uuid.Nil, fmt.Errorf("%w: index artifact %s", model.ErrNotFound, s.IndexPath)
		}
		return uuid.Nil, helper.NewError("open index artifact", err)
	}
	defer f.Close()

	return DecodeBuildID(f)
}

func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: index artifact %s", model.ErrNotFound, path)
		}
		return nil, helper.NewError("read index artifact", err)
	}
	return data, nil
}

// stageFile writes a synced temporary file in the directory of path and returns its name.
func stageFile(path string, write func(w io.Writer) error) (name string, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return "", err
	}
	if err = bw.Flush(); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}

	return tmp.Name(), nil
}
