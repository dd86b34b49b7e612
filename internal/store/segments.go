package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"

	"github.com/datallboy/segfetch/internal/domain"
)

// SegmentOptions configures segment naming.
type SegmentOptions struct {
	// PadWidth is the zero-padded width of the index in file names. Default: 4
	PadWidth int

	// Extension is appended to every segment file name. Default: .ts
	Extension string
}

// SegmentStore maps segment indices to files in a single directory.
// Presence is file existence only; contents are never inspected.
type SegmentStore struct {
	bucket *blob.Bucket
	dir    string
	opts   SegmentOptions
}

// OpenSegmentStore opens (and creates, if needed) the segment directory.
func OpenSegmentStore(dir string, opts SegmentOptions) (*SegmentStore, error) {
	if opts.PadWidth <= 0 {
		opts.PadWidth = 4
	}
	if opts.Extension == "" {
		opts.Extension = domain.DefaultExtension
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve segment dir: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create segment dir: %w", err)
	}

	bucket, err := fileblob.OpenBucket(abs, &fileblob.Options{
		// Temp files stay beside the segments so the final rename never
		// crosses a filesystem boundary.
		NoTempDir: true,
		// The directory is read by external tools; keep it free of sidecars.
		Metadata: fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("open segment bucket: %w", err)
	}

	return &SegmentStore{bucket: bucket, dir: abs, opts: opts}, nil
}

// Dir returns the absolute directory holding the segments.
func (s *SegmentStore) Dir() string { return s.dir }

// Key is the file name of index, e.g. 0042.ts.
func (s *SegmentStore) Key(index int) string {
	return fmt.Sprintf("%0*d%s", s.opts.PadWidth, index, s.opts.Extension)
}

// PathFor returns the deterministic local path of index.
func (s *SegmentStore) PathFor(index int) string {
	return filepath.Join(s.dir, s.Key(index))
}

// Present reports whether index has been written.
func (s *SegmentStore) Present(ctx context.Context, index int) (bool, error) {
	return s.bucket.Exists(ctx, s.Key(index))
}

// Write stores data as the segment at index.
func (s *SegmentStore) Write(ctx context.Context, index int, data []byte) error {
	if err := s.bucket.WriteAll(ctx, s.Key(index), data, nil); err != nil {
		return fmt.Errorf("write segment %d: %w", index, err)
	}
	return nil
}

// WriteFrom streams r into the segment at index. The file only appears
// once the copy succeeded, so an interrupted write never counts as present.
func (s *SegmentStore) WriteFrom(ctx context.Context, index int, r io.Reader) (int64, error) {
	// A private context lets us abort the writer without committing.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(wctx, s.Key(index), nil)
	if err != nil {
		return 0, fmt.Errorf("open segment %d: %w", index, err)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		cancel()
		_ = w.Close()
		return n, fmt.Errorf("write segment %d: %w", index, err)
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("commit segment %d: %w", index, err)
	}
	return n, nil
}

// Segment describes index as currently persisted.
func (s *SegmentStore) Segment(ctx context.Context, index int, tpl domain.Template) (domain.Segment, error) {
	seg := domain.Segment{
		Index:     index,
		LocalPath: s.PathFor(index),
		Status:    domain.StatusMissing,
	}
	if !tpl.IsZero() {
		seg.URL = tpl.URL(index)
	}

	ok, err := s.Present(ctx, index)
	if err != nil {
		return seg, err
	}
	if ok {
		seg.Status = domain.StatusPresent
	}
	return seg, nil
}

// Indices lists every stored segment index in ascending order.
// Files that don't follow the naming scheme exactly are ignored.
func (s *SegmentStore) Indices(ctx context.Context) ([]int, error) {
	var out []int

	iter := s.bucket.List(&blob.ListOptions{Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list segments: %w", err)
		}
		if obj.IsDir {
			continue
		}
		if idx, ok := s.parseKey(obj.Key); ok {
			out = append(out, idx)
		}
	}

	sort.Ints(out)
	return out, nil
}

func (s *SegmentStore) parseKey(key string) (int, bool) {
	name, found := strings.CutSuffix(key, s.opts.Extension)
	if !found || name == "" {
		return 0, false
	}
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 {
		return 0, false
	}
	// Only the canonical key maps back to idx; 17.ts beside 0017.ts is a stranger.
	if key != s.Key(idx) {
		return 0, false
	}
	return idx, true
}

func (s *SegmentStore) Close() error {
	return s.bucket.Close()
}
