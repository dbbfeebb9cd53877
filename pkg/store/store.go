package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	dataio "github.com/geniass/price-tracker/pkg/io"
	"github.com/geniass/price-tracker/pkg/model"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("product not tracked")
	ErrDuplicate = errors.New("product already tracked")
)

// Store is the file-backed list of tracked products.
//
// The CSV file is the source of truth and is re-read on every call, so edits
// made by another process (e.g. the CLI while the daemon runs) are picked up.
// Mutations are serialized and rewrite the whole file.
type Store struct {
	path string

	mu    sync.RWMutex
	names map[string]string
}

// Open returns a Store backed by path, creating the file if needed.
func Open(path string) (*Store, error) {
	if err := dataio.EnsureFile(path); err != nil {
		return nil, fmt.Errorf("opening product store: %w", err)
	}
	return &Store{path: path, names: make(map[string]string)}, nil
}

func (s *Store) Path() string { return s.path }

// List returns a snapshot of the tracked products in file order.
func (s *Store) List() ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps, err := dataio.LoadFromFile(s.path)
	if err != nil {
		return nil, err
	}
	for i := range ps {
		ps[i].Name = s.names[ps[i].URL]
	}
	return ps, nil
}

func (s *Store) Add(url string, target decimal.Decimal) error {
	url = strings.TrimSpace(url)
	if err := ValidateURL(url); err != nil {
		return err
	}
	if err := ValidateTargetPrice(target); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := dataio.LoadFromFile(s.path)
	if err != nil {
		return err
	}
	if indexOf(ps, url) >= 0 {
		return fmt.Errorf("%q: %w", url, ErrDuplicate)
	}
	ps = append(ps, model.Product{URL: url, TargetPrice: target})
	return dataio.WriteToFile(s.path, ps)
}

// Remove deletes url from the store. Removing an unknown URL is a no-op and
// reports false.
func (s *Store) Remove(url string) (bool, error) {
	url = strings.TrimSpace(url)

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := dataio.LoadFromFile(s.path)
	if err != nil {
		return false, err
	}
	i := indexOf(ps, url)
	if i < 0 {
		return false, nil
	}
	ps = append(ps[:i], ps[i+1:]...)
	if err := dataio.WriteToFile(s.path, ps); err != nil {
		return false, err
	}
	delete(s.names, url)
	return true, nil
}

// Edit replaces the URL and target price of the product tracked as oldURL.
func (s *Store) Edit(oldURL, newURL string, target decimal.Decimal) error {
	oldURL = strings.TrimSpace(oldURL)
	newURL = strings.TrimSpace(newURL)
	if err := ValidateURL(newURL); err != nil {
		return err
	}
	if err := ValidateTargetPrice(target); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := dataio.LoadFromFile(s.path)
	if err != nil {
		return err
	}
	i := indexOf(ps, oldURL)
	if i < 0 {
		return fmt.Errorf("%q: %w", oldURL, ErrNotFound)
	}
	if newURL != oldURL && indexOf(ps, newURL) >= 0 {
		return fmt.Errorf("%q: %w", newURL, ErrDuplicate)
	}
	ps[i] = model.Product{URL: newURL, TargetPrice: target}
	if err := dataio.WriteToFile(s.path, ps); err != nil {
		return err
	}
	if newURL != oldURL {
		delete(s.names, oldURL)
	}
	return nil
}

// SetName caches the display name of url.
func (s *Store) SetName(url, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[url] = name
}

func indexOf(ps []model.Product, url string) int {
	for i, p := range ps {
		if p.URL == url {
			return i
		}
	}
	return -1
}
