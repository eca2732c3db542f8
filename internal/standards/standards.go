// Package standards stores named molecular weight ladders.
//
// A standard is a text file named <name>.marker holding one integer weight
// per line, heaviest first.
package standards

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Ext is the file extension of a standard.
const Ext = ".marker"

var (
	// ErrNotFound is returned when a named standard does not exist.
	ErrNotFound = errors.New("standard not found")

	// ErrInvalidStandard is returned by Validate.
	ErrInvalidStandard = errors.New("invalid standard")
)

// Standard is a named ladder of reference weights.
type Standard struct {
	Name    string `json:"name"`
	Weights []int  `json:"weights"`
}

// Float returns the weights as float64 values for model fitting.
func (s *Standard) Float() []float64 {
	f := make([]float64, len(s.Weights))
	for i, w := range s.Weights {
		f[i] = float64(w)
	}
	return f
}

// Validate checks that the ladder has at least two positive, strictly
// decreasing weights.
func (s *Standard) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: no name", ErrInvalidStandard)
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("%w: name %q contains a path separator", ErrInvalidStandard, s.Name)
	}
	if len(s.Weights) < 2 {
		return fmt.Errorf("%w: %q needs at least two weights, has %d", ErrInvalidStandard, s.Name, len(s.Weights))
	}
	for i, w := range s.Weights {
		if w <= 0 {
			return fmt.Errorf("%w: %q weight %d is not positive", ErrInvalidStandard, s.Name, w)
		}
		if i > 0 && w >= s.Weights[i-1] {
			return fmt.Errorf("%w: %q weights must decrease, %d follows %d", ErrInvalidStandard, s.Name, w, s.Weights[i-1])
		}
	}
	return nil
}

// DefaultDir returns the default standards directory under the user config
// directory.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine config directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "gel-analyzer", "standards"), nil
}

// Store is a directory of standards.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir, or at DefaultDir when dir is empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return &Store{Dir: dir}, nil
}

// Path returns the file path of the named standard.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name+Ext)
}

// List returns the names of all standards, sorted. A missing directory holds
// no standards.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read standards directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if strings.EqualFold(ext, Ext) {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the named standard.
func (s *Store) Load(name string) (*Standard, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open standard: %w", err)
	}
	defer f.Close()

	std := &Standard{Name: name}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		w, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("standard %s line %d: %w", name, line, err)
		}
		std.Weights = append(std.Weights, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read standard: %w", err)
	}
	return std, nil
}

// Save validates the standard and writes it, creating the directory if
// needed. An existing standard of the same name is replaced.
func (s *Store) Save(std *Standard) error {
	if err := std.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("cannot create standards directory: %w", err)
	}

	var b strings.Builder
	for _, w := range std.Weights {
		b.WriteString(strconv.Itoa(w))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(s.Path(std.Name), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("cannot write standard: %w", err)
	}
	return nil
}
