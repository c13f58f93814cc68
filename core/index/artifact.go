package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/hrrag/model"
)

const (
	indexMagic         = "HRRAGIDX"
	indexFormatVersion = uint16(1)
	metricInnerProduct = uint8(1)
)

// indexHeader precedes the vector data in the index artifact
type indexHeader struct {
	Version uint16
	Metric  uint8
	BuildID uuid.UUID
	Model   string
	Dim     int
	Count   int
}

// metadataFile is the JSON layout of the metadata artifact
type metadataFile struct {
	BuildID   uuid.UUID      `json:"build_id"`
	Model     string         `json:"model"`
	Dimension int            `json:"dimension"`
	Count     int            `json:"count"`
	CreatedAt time.Time      `json:"created_at"`
	Records   []model.Record `json:"records"`
}

// EncodeIndex writes the binary index artifact:
// magic, version, metric, build id, model name, dimension, count,
// little-endian float32 vectors and a trailing CRC-32 of everything before it.
func EncodeIndex(w io.Writer, s *Snapshot) error {
	if len(s.Model) > math.MaxUint16 {
		return fmt.Errorf("model name too long")
	}

	crc := crc32.NewIEEE()
	out := io.MultiWriter(w, crc)

	header := []any{
		[]byte(indexMagic),
		indexFormatVersion,
		metricInnerProduct,
		s.BuildID,
		uint16(len(s.Model)),
		[]byte(s.Model),
		uint32(s.Index.Dim()),
		uint64(s.Index.Len()),
	}
	for _, field := range header {
		if err := binary.Write(out, binary.LittleEndian, field); err != nil {
			return err
		}
	}

	buf := make([]byte, 4)
	for _, x := range s.Index.vectors {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}

	return binary.Write(w, binary.LittleEndian, crc.Sum32())
}

// DecodeIndex parses an index artifact. Any structural problem is ErrCorruptState.
func DecodeIndex(data []byte) (*indexHeader, *Flat, error) {
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: index artifact: %s", model.ErrCorruptState, fmt.Sprintf(format, args...))
	}

	if len(data) < len(indexMagic)+4 {
		return nil, nil, corrupt("file too short")
	}
	body, sum := data[:len(data)-4], binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return nil, nil, corrupt("checksum mismatch")
	}

	r := bytes.NewReader(body)
	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != indexMagic {
		return nil, nil, corrupt("bad magic")
	}

	var (
		h        indexHeader
		modelLen uint16
		dim      uint32
		count    uint64
	)
	for _, field := range []any{&h.Version, &h.Metric, &h.BuildID} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return nil, nil, corrupt("truncated header")
		}
	}
	if h.Version != indexFormatVersion {
		return nil, nil, corrupt("unsupported format version %d", h.Version)
	}
	if h.Metric != metricInnerProduct {
		return nil, nil, corrupt("unsupported metric %d", h.Metric)
	}
	if err := binary.Read(r, binary.LittleEndian, &modelLen); err != nil {
		return nil, nil, corrupt("truncated header")
	}
	name := make([]byte, modelLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, nil, corrupt("truncated model name")
	}
	h.Model = string(name)
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, nil, corrupt("truncated header")
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, nil, corrupt("truncated header")
	}

	remaining := uint64(r.Len())
	if dim == 0 && count != 0 {
		return nil, nil, corrupt("%d vectors with dimension 0", count)
	}
	if dim != 0 && (count > remaining/4/uint64(dim) || count*uint64(dim)*4 != remaining) {
		return nil, nil, corrupt("%d vectors of dimension %d do not match %d data bytes", count, dim, remaining)
	}
	if dim == 0 && remaining != 0 {
		return nil, nil, corrupt("unexpected trailing data")
	}

	h.Dim, h.Count = int(dim), int(count)
	flat := NewFlat(h.Dim)
	flat.vectors = make([]float32, h.Count*h.Dim)
	rest := body[len(body)-int(remaining):]
	for i := range flat.vectors {
		flat.vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(rest[i*4:]))
	}

	return &h, flat, nil
}

// DecodeBuildID reads the build id from the start of an index artifact.
// Only the header fields before it are checked, the checksum is not.
func DecodeBuildID(r io.Reader) (uuid.UUID, error) {
	var (
		magic   = make([]byte, len(indexMagic))
		version uint16
		metric  uint8
		buildID uuid.UUID
	)
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != indexMagic {
		return uuid.Nil, fmt.Errorf("%w: index artifact: bad magic", model.ErrCorruptState)
	}
	for _, field := range []any{&version, &metric, &buildID} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return uuid.Nil, fmt.Errorf("%w: index artifact: truncated header", model.ErrCorruptState)
		}
	}
	if version != indexFormatVersion {
		return uuid.Nil, fmt.Errorf("%w: index artifact: unsupported format version %d", model.ErrCorruptState, version)
	}
	return buildID, nil
}

// EncodeMetadata writes the metadata artifact as JSON.
func EncodeMetadata(w io.Writer, s *Snapshot) error {
	records := s.Records
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(metadataFile{
		BuildID:   s.BuildID,
		Model:     s.Model,
		Dimension: s.Index.Dim(),
		Count:     len(records),
		CreatedAt: s.CreatedAt,
		Records:   records,
	})
}

// DecodeMetadata parses a metadata artifact. Malformed JSON is ErrCorruptState.
func DecodeMetadata(r io.Reader) (*metadataFile, error) {
	var meta metadataFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: metadata artifact: %v", model.ErrCorruptState, err)
	}
	if meta.Count != len(meta.Records) {
		return nil, fmt.Errorf("%w: metadata declares %d records but holds %d", model.ErrCorruptState, meta.Count, len(meta.Records))
	}
	if meta.Records == nil {
		meta.Records = []model.Record{}
	}
	return &meta, nil
}

// assemble joins both artifacts into a snapshot and checks they belong to the same build.
func assemble(h *indexHeader, flat *Flat, meta *metadataFile) (*Snapshot, error) {
	var errs []error
	if h.BuildID != meta.BuildID {
		errs = append(errs, fmt.Errorf("index build %s does not match metadata build %s", h.BuildID, meta.BuildID))
	}
	if h.Model != meta.Model {
		errs = append(errs, fmt.Errorf("index model %q does not match metadata model %q", h.Model, meta.Model))
	}
	if h.Dim != meta.Dimension {
		errs = append(errs, fmt.Errorf("index dimension %d does not match metadata dimension %d", h.Dim, meta.Dimension))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", model.ErrCorruptState, errors.Join(errs...))
	}

	s := &Snapshot{
		BuildID:   h.BuildID,
		Model:     h.Model,
		CreatedAt: meta.CreatedAt,
		Index:     flat,
		Records:   meta.Records,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
