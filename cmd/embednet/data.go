package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/embednet/internal/tensor"
	"github.com/born-ml/embednet/internal/train"
)

// ratings is a parsed user,item,rating file.
type ratings struct {
	Dataset  *train.Dataset
	NumUsers int // max user id + 1
	NumItems int // max item id + 1
}

func readRatings(path string) (*ratings, error) {
	//nolint:gosec // G304: path comes from the config
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ratings: %w", err)
	}
	defer func() { _ = f.Close() }()
	return parseRatings(f)
}

// parseRatings reads CSV rows of user,item,rating with zero-based ids. A
// first row that does not parse as numbers is treated as a header.
func parseRatings(r io.Reader) (*ratings, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var users, items, values []float64
	out := &ratings{}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ratings: %w", err)
		}

		u, errU := strconv.Atoi(rec[0])
		i, errI := strconv.Atoi(rec[1])
		v, errV := strconv.ParseFloat(rec[2], 64)
		if line == 1 && (errU != nil || errI != nil || errV != nil) {
			continue
		}
		if err := errors.Join(errU, errI, errV); err != nil {
			return nil, fmt.Errorf("ratings line %d: %w", line, err)
		}
		if u < 0 || i < 0 {
			return nil, fmt.Errorf("ratings line %d: negative id", line)
		}

		users = append(users, float64(u))
		items = append(items, float64(i))
		values = append(values, v)
		out.NumUsers = max(out.NumUsers, u+1)
		out.NumItems = max(out.NumItems, i+1)
	}
	if len(values) == 0 {
		return nil, errors.New("ratings: no rows")
	}

	n := len(values)
	ds, err := train.NewDataset(
		[]*tensor.Tensor{
			tensor.MustFromSlice(users, tensor.Shape{n, 1}),
			tensor.MustFromSlice(items, tensor.Shape{n, 1}),
		},
		tensor.MustFromSlice(values, tensor.Shape{n, 1}),
	)
	if err != nil {
		return nil, err
	}
	out.Dataset = ds
	return out, nil
}

func readLabeledText(path string) ([]string, []float64, error) {
	//nolint:gosec // G304: path comes from the config
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open texts: %w", err)
	}
	defer func() { _ = f.Close() }()
	return parseLabeledText(f)
}

// parseLabeledText reads lines of "label<TAB>text" with label 0 or 1. Blank
// lines are skipped.
func parseLabeledText(r io.Reader) ([]string, []float64, error) {
	var texts []string
	var labels []float64

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		label, text, ok := strings.Cut(raw, "\t")
		if !ok {
			return nil, nil, fmt.Errorf("texts line %d: missing tab", line)
		}
		switch strings.TrimSpace(label) {
		case "0":
			labels = append(labels, 0)
		case "1":
			labels = append(labels, 1)
		default:
			return nil, nil, fmt.Errorf("texts line %d: label must be 0 or 1, got %q", line, label)
		}
		texts = append(texts, text)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if len(texts) == 0 {
		return nil, nil, errors.New("texts: no rows")
	}
	return texts, labels, nil
}

func newLabeledDataset(ids *tensor.Tensor, labels []float64) (*train.Dataset, error) {
	targets, err := tensor.FromSlice(labels, tensor.Shape{len(labels), 1})
	if err != nil {
		return nil, err
	}
	return train.NewDataset([]*tensor.Tensor{ids}, targets)
}
