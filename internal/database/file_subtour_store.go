package database

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FileSubTourStore keeps one plain text file per cluster, one point id per line
type FileSubTourStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileSubTourStore creates a store rooted at dir, creating the directory if needed
func NewFileSubTourStore(dir string) (*FileSubTourStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sub-tour directory: %w", err)
	}
	return &FileSubTourStore{dir: dir}, nil
}

// Dir returns the directory holding the sub-tour files
func (s *FileSubTourStore) Dir() string {
	return s.dir
}

func (s *FileSubTourStore) Save(ctx context.Context, name string, tour []int) error {
	if err := checkName(name); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, id := range tour {
		buf.WriteString(strconv.Itoa(id))
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := SubTourPath(s.dir, name)
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write temp sub-tour file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to rename temp sub-tour file: %w", err)
	}

	return nil
}

func (s *FileSubTourStore) Load(ctx context.Context, name string) ([]int, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(SubTourPath(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open sub-tour file: %w", err)
	}
	defer f.Close()

	tour := []int{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		id, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sub-tour %s line %d: %w", name, line, err)
		}
		tour = append(tour, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sub-tour file: %w", err)
	}

	return tour, nil
}

// List returns the stored cluster names in lexical order
func (s *FileSubTourStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sub-tour directory: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != SubTourExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), SubTourExt))
	}
	sort.Strings(names)

	return names, nil
}

func (s *FileSubTourStore) Clear(ctx context.Context) error {
	names, err := s.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if err := os.Remove(SubTourPath(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove sub-tour %s: %w", name, err)
		}
	}

	return nil
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	return nil
}
