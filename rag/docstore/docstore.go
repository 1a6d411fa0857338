// Package docstore keeps verbatim copies of ingested files under canonical names
// and detects byte-identical duplicates.
package docstore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/smallnest/insightgraph/log"
)

var (
	// ErrDuplicate is returned by Admit when the candidate is already stored,
	// by canonical name or by content.
	ErrDuplicate = errors.New("document already stored")

	// ErrNotFound is returned when no stored document has the requested name.
	ErrNotFound = errors.New("document not found")
)

// StoredDocument describes a file held by the Store.
type StoredDocument struct {
	Name string
	Path string
	Size int64
}

// Store is a directory of raw documents keyed by canonical name.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New opens (and creates if needed) a store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Normalize maps a file name to its canonical stored name.
//
// The base name is trimmed and split into stem and extension. Spaces in the stem
// become underscores and every other character outside [A-Za-z0-9._-] is
// dropped. The extension is kept verbatim. An empty stem becomes "document".
func Normalize(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.TrimSpace(name)))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" && ext != "" {
		// ".bashrc" style names have no extension, only a stem.
		stem, ext = ext, ""
	}

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	clean := b.String()
	if clean == "" || clean == "." || clean == ".." {
		clean = "document"
	}
	return clean + ext
}

// Exists reports whether candidatePath is already stored, either under its
// canonical name or as a byte-identical copy under any name.
func (s *Store) Exists(candidatePath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, found, err := s.find(candidatePath)
	return found, err
}

// find returns the name of the stored file matching candidatePath.
func (s *Store) find(candidatePath string) (string, bool, error) {
	info, err := os.Stat(candidatePath)
	if err != nil {
		return "", false, fmt.Errorf("failed to stat %s: %w", candidatePath, err)
	}

	name := Normalize(candidatePath)
	if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
		return name, true, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", false, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || isTemp(e.Name()) {
			continue
		}
		stored, err := e.Info()
		if err != nil || stored.Size() != info.Size() {
			continue
		}
		same, err := sameContent(candidatePath, filepath.Join(s.dir, e.Name()))
		if err != nil {
			return "", false, err
		}
		if same {
			return e.Name(), true, nil
		}
	}
	return "", false, nil
}

// Admit copies candidatePath into the store under its canonical name. When the
// file is already stored, it returns ErrDuplicate and changes nothing.
func (s *Store) Admit(candidatePath string) (StoredDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := s.find(candidatePath)
	if err != nil {
		return StoredDocument{}, err
	}
	if found {
		return StoredDocument{}, fmt.Errorf("%w: %s matches %s", ErrDuplicate, candidatePath, existing)
	}

	name := Normalize(candidatePath)
	dst := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return StoredDocument{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	size, err := copyInto(tmp, candidatePath)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return StoredDocument{}, fmt.Errorf("failed to copy %s: %w", candidatePath, err)
	}

	// Link fails if dst exists, so an entry written by another process is never replaced.
	if err := os.Link(tmpName, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return StoredDocument{}, fmt.Errorf("%w: %s", ErrDuplicate, name)
		}
		return StoredDocument{}, fmt.Errorf("failed to store %s: %w", name, err)
	}

	log.Debug("docstore: stored %s as %s (%d bytes)", candidatePath, name, size)
	return StoredDocument{Name: name, Path: dst, Size: size}, nil
}

// Path returns the on-disk path of the stored document name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, Normalize(name))
}

// Read returns the content of the stored document. Names are normalized first,
// so callers may pass a source tag as found in chunk metadata.
func (s *Store) Read(name string) (string, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	return string(data), nil
}

// Remove deletes a stored document.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}

// List returns every stored document sorted by name.
func (s *Store) List() ([]StoredDocument, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var docs []StoredDocument
	for _, e := range entries {
		if !e.Type().IsRegular() || isTemp(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, StoredDocument{
			Name: e.Name(),
			Path: filepath.Join(s.dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

const tempPrefix = ".admit-"

func isTemp(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}

func copyInto(dst *os.File, srcPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(dst, src)
}

// sameContent compares two files of equal size chunk by chunk.
func sameContent(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	const chunk = 32 * 1024
	ra, rb := bufio.NewReaderSize(fa, chunk), bufio.NewReaderSize(fb, chunk)
	bufA, bufB := make([]byte, chunk), make([]byte, chunk)
	for {
		na, errA := io.ReadFull(ra, bufA)
		nb, errB := io.ReadFull(rb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		endA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		endB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if endA || endB {
			return endA && endB, nil
		}
		if errA != nil {
			return false, errA
		}
		if errB != nil {
			return false, errB
		}
	}
}
