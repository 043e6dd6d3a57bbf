package hasher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/bucketer"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
)

func writeFile(t *testing.T, fs afero.Fs, path string, content []byte) *internal.FileRecord {
	t.Helper()
	if err := afero.WriteFile(fs, path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return &internal.FileRecord{Path: path, Size: int64(len(content)), Kind: internal.KindFile}
}

func TestHasher_Partial_SmallFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs, PartialSize: 1024})

	rec := writeFile(t, fs, "/a.txt", []byte("hello"))
	if err := h.Partial(rec); err != nil {
		t.Fatalf("Partial() error = %v", err)
	}

	if rec.PartialDigest == "" {
		t.Error("Expected partial digest to be set")
	}
	// sha256("hello")
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if rec.FullDigest != want {
		t.Errorf("Expected full digest %s for a file within the prefix, got %s", want, rec.FullDigest)
	}

	c := h.Counters()
	if c.PartialCalls != 1 || c.FullCalls != 0 || c.BytesRead != 5 {
		t.Errorf("Unexpected counters: %+v", c)
	}
}

func TestHasher_TraceFields(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Logger
	l := zerolog.New(&buf).Level(zerolog.TraceLevel)
	logger.Logger = &l
	t.Cleanup(func() { logger.Logger = prev })

	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs, PartialSize: 4})
	rec := writeFile(t, fs, "/dir with space/a.txt", []byte("hello world"))
	if err := h.Partial(rec); err != nil {
		t.Fatalf("Partial() error = %v", err)
	}
	if err := h.Full(rec); err != nil {
		t.Fatalf("Full() error = %v", err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("Expected 2 trace lines, got %d: %s", len(lines), buf.String())
	}
	for i, want := range []string{rec.PartialDigest, rec.FullDigest} {
		var entry map[string]any
		if err := json.Unmarshal(lines[i], &entry); err != nil {
			t.Fatalf("Failed to decode log line %q: %v", lines[i], err)
		}
		if entry["path"] != rec.Path || entry["digest"] != want {
			t.Errorf("Expected path and digest fields, got %v", entry)
		}
	}
}

func TestHasher_Partial_LargeFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs, PartialSize: 16, BufferSize: 4})

	rec := writeFile(t, fs, "/big", bytes.Repeat([]byte("x"), 100))
	if err := h.Partial(rec); err != nil {
		t.Fatalf("Partial() error = %v", err)
	}
	if rec.FullDigest != "" {
		t.Error("Expected no full digest when only the prefix was read")
	}
	if got := h.Counters().BytesRead; got != 16 {
		t.Errorf("Expected 16 bytes read, got %d", got)
	}

	if err := h.Full(rec); err != nil {
		t.Fatalf("Full() error = %v", err)
	}
	if rec.FullDigest == "" {
		t.Error("Expected full digest after Full()")
	}
	if got := h.Counters().BytesRead; got != 116 {
		t.Errorf("Expected 116 bytes read in total, got %d", got)
	}
}

func TestHasher_Consistent(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs, PartialSize: 8})

	a := writeFile(t, fs, "/a", []byte("same content here"))
	b := writeFile(t, fs, "/b", []byte("same content here"))
	c := writeFile(t, fs, "/c", []byte("same content HERE"))

	for _, rec := range []*internal.FileRecord{a, b, c} {
		if err := h.Partial(rec); err != nil {
			t.Fatalf("Partial() error = %v", err)
		}
		if err := h.Full(rec); err != nil {
			t.Fatalf("Full() error = %v", err)
		}
	}

	if a.PartialDigest != b.PartialDigest || a.FullDigest != b.FullDigest {
		t.Error("Same content should produce same digests")
	}
	if a.PartialDigest != c.PartialDigest {
		t.Error("Shared prefix should produce same partial digest")
	}
	if a.FullDigest == c.FullDigest {
		t.Error("Different content should produce different full digests")
	}
}

func TestHasher_NonExistentFile(t *testing.T) {
	h := New(Options{Fs: afero.NewMemMapFs()})

	rec := &internal.FileRecord{Path: "/non/existent/file.txt", Size: 3, Kind: internal.KindFile}
	if err := h.Partial(rec); err == nil {
		t.Error("Expected error for non-existent file")
	}
	if err := h.Full(rec); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestHasher_SizeChanged(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs, PartialSize: 4})

	rec := writeFile(t, fs, "/grown", []byte("0123456789"))
	rec.Size = 8

	if err := h.Full(rec); !errors.Is(err, ErrSizeChanged) {
		t.Errorf("Expected ErrSizeChanged, got %v", err)
	}
}

func TestHasher_MIME(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs})

	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 32)...)
	rec := writeFile(t, fs, "/image.bin", png)
	if err := h.Partial(rec); err != nil {
		t.Fatalf("Partial() error = %v", err)
	}
	if rec.MIME != "image/png" {
		t.Errorf("Expected image/png, got %q", rec.MIME)
	}
}

func newPool(t *testing.T, workers int) *Pool {
	t.Helper()
	pool, err := NewPool(workers)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(pool.Release)
	return pool
}

func TestConfirm(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs, PartialSize: 4})

	a := writeFile(t, fs, "/a", []byte("duplicate"))
	b := writeFile(t, fs, "/b", []byte("duplicate"))
	c := writeFile(t, fs, "/c", []byte("dupliXXXX"))
	d := writeFile(t, fs, "/d", []byte("other!!!!"))

	errs := &internal.ErrorList{}
	sets := h.Confirm(context.Background(), newPool(t, 2),
		[]bucketer.Bucket{{Size: 9, Records: []*internal.FileRecord{a, b, c, d}}}, errs)

	if len(sets) != 1 {
		t.Fatalf("Expected 1 confirmed set, got %d", len(sets))
	}
	if len(sets[0]) != 2 || sets[0][0] != a || sets[0][1] != b {
		t.Errorf("Expected [a b], got %v", sets[0])
	}
	if errs.Len() != 0 {
		t.Errorf("Expected no errors, got %v", errs.Snapshot())
	}

	// d 的前缀与其他文件都不同，不应读取全文
	if d.FullDigest != "" {
		t.Error("Expected no full read for a file with a unique prefix")
	}
	if c.FullDigest == "" {
		t.Error("Expected full read for a file sharing the prefix")
	}
	if got := h.Counters().FullCalls; got != 3 {
		t.Errorf("Expected 3 full hashes, got %d", got)
	}
}

func TestConfirm_SharedLongPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs})

	prefix := bytes.Repeat([]byte("p"), internal.DefaultPartialSize+100)
	a := writeFile(t, fs, "/a", append(append([]byte{}, prefix...), []byte("tail-one")...))
	b := writeFile(t, fs, "/b", append(append([]byte{}, prefix...), []byte("tail-two")...))

	errs := &internal.ErrorList{}
	sets := h.Confirm(context.Background(), newPool(t, 2),
		[]bucketer.Bucket{{Size: a.Size, Records: []*internal.FileRecord{a, b}}}, errs)

	if a.PartialDigest != b.PartialDigest {
		t.Fatal("Expected equal partial digests for a shared prefix")
	}
	if len(sets) != 0 {
		t.Errorf("Files differing after the prefix must not be grouped, got %d sets", len(sets))
	}
}

func TestConfirm_SplitsSharedPrefixByContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs, PartialSize: 4})

	a := writeFile(t, fs, "/a", []byte("samepfx-AAAA"))
	b := writeFile(t, fs, "/b", []byte("samepfx-BBBB"))
	c := writeFile(t, fs, "/c", []byte("samepfx-AAAA"))
	d := writeFile(t, fs, "/d", []byte("samepfx-BBBB"))
	e := writeFile(t, fs, "/e", []byte("samepfx-CCCC"))

	errs := &internal.ErrorList{}
	sets := h.Confirm(context.Background(), newPool(t, 2),
		[]bucketer.Bucket{{Size: a.Size, Records: []*internal.FileRecord{a, b, c, d, e}}}, errs)

	if len(sets) != 2 {
		t.Fatalf("Expected 2 confirmed sets, got %d", len(sets))
	}
	if len(sets[0]) != 2 || sets[0][0] != a || sets[0][1] != c {
		t.Errorf("Expected [a c] first, got %v", sets[0])
	}
	if len(sets[1]) != 2 || sets[1][0] != b || sets[1][1] != d {
		t.Errorf("Expected [b d] second, got %v", sets[1])
	}
	for _, set := range sets {
		for _, rec := range set {
			if rec.FullDigest != set[0].FullDigest {
				t.Errorf("Set mixes content: %s vs %s", rec.FullDigest, set[0].FullDigest)
			}
		}
	}
}

func TestConfirm_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs, PartialSize: 4})

	a := writeFile(t, fs, "/a", []byte("payload"))
	b := writeFile(t, fs, "/b", []byte("payload"))
	c := writeFile(t, fs, "/c", []byte("payload"))
	if err := fs.Remove("/b"); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	errs := &internal.ErrorList{}
	sets := h.Confirm(context.Background(), newPool(t, 2),
		[]bucketer.Bucket{{Size: 7, Records: []*internal.FileRecord{a, b, c}}}, errs)

	if len(sets) != 1 || len(sets[0]) != 2 || sets[0][0] != a || sets[0][1] != c {
		t.Fatalf("Expected [a c], got %v", sets)
	}

	got := errs.Snapshot()
	if len(got) != 1 || got[0].Path != "/b" || got[0].Stage != internal.StagePartialHash {
		t.Errorf("Expected one partial hash error for /b, got %v", got)
	}
}

func TestConfirm_Cancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := New(Options{Fs: fs})

	a := writeFile(t, fs, "/a", []byte("payload"))
	b := writeFile(t, fs, "/b", []byte("payload"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := &internal.ErrorList{}
	sets := h.Confirm(ctx, newPool(t, 2),
		[]bucketer.Bucket{{Size: 7, Records: []*internal.FileRecord{a, b}}}, errs)

	if len(sets) != 0 {
		t.Errorf("Expected no sets after cancellation, got %d", len(sets))
	}
	if c := h.Counters(); c.PartialCalls != 0 || c.FullCalls != 0 {
		t.Errorf("Expected no hash jobs after cancellation, got %+v", c)
	}
	if errs.Len() != 0 {
		t.Errorf("Cancellation must not be recorded as errors, got %v", errs.Snapshot())
	}
}
