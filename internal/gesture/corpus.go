package gesture

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Corpus holds the labeled frequency-magnitude values for each category.
type Corpus map[Category][]float64

// CorpusSource provides the training values of one category, in order.
type CorpusSource interface {
	Values(category string) ([]float64, error)
}

// LoadCorpus reads every category in Categories from src.
func LoadCorpus(src CorpusSource) (Corpus, error) {
	c := make(Corpus, len(Categories))
	for _, cat := range Categories {
		values, err := src.Values(string(cat))
		if err != nil {
			return nil, fmt.Errorf("load %s samples: %w", cat, err)
		}
		c[cat] = values
	}
	return c, nil
}

// Balance truncates every category to the length of the shortest one and
// returns the flattened values with one label per value, in Categories
// order. perClass is the number of values kept for each category.
func Balance(c Corpus) (values []float64, labels []Category, perClass int, err error) {
	perClass = -1
	for _, cat := range Categories {
		n := len(c[cat])
		if n == 0 {
			return nil, nil, 0, fmt.Errorf("category %q has no samples", cat)
		}
		for i, v := range c[cat] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, 0, fmt.Errorf("category %q value %d: non-finite value %v", cat, i, v)
			}
		}
		if perClass < 0 || n < perClass {
			perClass = n
		}
	}

	values = make([]float64, 0, perClass*len(Categories))
	labels = make([]Category, 0, perClass*len(Categories))
	for _, cat := range Categories {
		values = append(values, c[cat][:perClass]...)
		for i := 0; i < perClass; i++ {
			labels = append(labels, cat)
		}
	}

	return values, labels, perClass, nil
}

// CSVSource reads training values from "<category>.csv" files in Dir.
type CSVSource struct {
	Dir string
}

// Values implements CorpusSource.
func (s CSVSource) Values(category string) ([]float64, error) {
	f, err := os.Open(filepath.Join(s.Dir, category+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadValues(f)
}

// ReadValues parses a training file: a header row followed by one value per
// row. Only the first column is used and empty rows are skipped.
func ReadValues(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var values []float64
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		line, _ := reader.FieldPos(0)
		v, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("line %d: non-finite value %q", line, record[0])
		}
		values = append(values, v)
	}

	return values, nil
}
