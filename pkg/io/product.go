package io

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/geniass/price-tracker/pkg/model"
	"github.com/shopspring/decimal"
)

var Header = []string{"Product URL", "Target Price"}

// LoadFromFile reads the tracked products stored at path.
func LoadFromFile(path string) ([]model.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if !isHeader(records[0]) {
		return nil, fmt.Errorf("reading %s: missing header row %q", path, strings.Join(Header, ","))
	}

	var ps []model.Product
	for i, rec := range records[1:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("reading %s: line %d: expected 2 fields, got %d", path, i+2, len(rec))
		}
		price, err := decimal.NewFromString(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("reading %s: line %d: bad target price %q: %w", path, i+2, rec[1], err)
		}
		ps = append(ps, model.Product{URL: strings.TrimSpace(rec[0]), TargetPrice: price})
	}
	return ps, nil
}

// WriteToFile replaces the file at path with a header row followed by ps.
// The new contents are written to a temporary file first and renamed over path.
func WriteToFile(path string, ps []model.Product) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return err
	}
	for _, p := range ps {
		if err := w.Write([]string{p.URL, p.TargetPrice.StringFixed(2)}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// EnsureFile creates path with only the header row when it does not exist yet.
func EnsureFile(path string) error {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return WriteToFile(path, nil)
	}
	return err
}

func isHeader(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(rec[0]), Header[0]) &&
		strings.EqualFold(strings.TrimSpace(rec[1]), Header[1])
}
