package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Scratch allocates uniquely named files inside one directory. Names combine
// the wall clock, a per-process sequence and the random suffix of
// os.CreateTemp, and every file is created with O_EXCL, so two callers never
// receive the same path.
type Scratch struct {
	dir string
	seq atomic.Uint64
}

// NewScratch prepares dir and returns an allocator rooted there.
func NewScratch(dir string) (*Scratch, error) {
	abs, err := EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &Scratch{dir: abs}, nil
}

func (s *Scratch) Dir() string {
	return s.dir
}

// Create allocates a new empty file and keeps it open for writing.
// role ends up in the name ("in", "out") to ease debugging; ext may be empty
// or carry a leading dot.
func (s *Scratch) Create(role, ext string) (*ScratchFile, error) {
	pattern := fmt.Sprintf("%s-%d-%d-*%s", role, time.Now().UnixNano(), s.seq.Add(1), normalizeExt(ext))

	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}

	return &ScratchFile{path: f.Name(), file: f}, nil
}

// Reserve allocates a file the way Create does but closes it straight away,
// leaving an empty placeholder for an external process to overwrite.
func (s *Scratch) Reserve(role, ext string) (*ScratchFile, error) {
	sf, err := s.Create(role, ext)
	if err != nil {
		return nil, err
	}
	if err := sf.Close(); err != nil {
		_ = sf.Release()
		return nil, fmt.Errorf("close scratch file: %w", err)
	}
	return sf, nil
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" || strings.ContainsAny(ext, `/\*`) {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ScratchFile is owned by exactly one caller, which must Release it.
type ScratchFile struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func (f *ScratchFile) Path() string {
	return f.path
}

// Write appends to the open file. It fails once the file has been closed.
func (f *ScratchFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, os.ErrClosed
	}
	return f.file.Write(p)
}

// Close flushes and closes the handle; the file stays on disk.
// Closing twice is a no-op.
func (f *ScratchFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// Release closes the handle and deletes the file. A file that is already
// gone counts as released.
func (f *ScratchFile) Release() error {
	closeErr := f.Close()
	if closeErr != nil && errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}

	err := os.Remove(f.path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		err = nil
	}

	return errors.Join(closeErr, err)
}
