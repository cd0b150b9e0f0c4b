package prepare

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// orderedWriter writes batches to a CSV file in index order, holding back batches that arrive early.
type orderedWriter struct {
	name    string
	file    *os.File
	csv     *csv.Writer
	next    int
	pending map[int]*mat.Dense
	record  []string
	closed  bool
}

func newOrderedWriter(name string, header []string) (*orderedWriter, error) {
	file, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create %s", name)
	}

	w := &orderedWriter{
		name:    name,
		file:    file,
		csv:     csv.NewWriter(file),
		pending: make(map[int]*mat.Dense),
		record:  make([]string, len(header)),
	}

	if err := w.csv.Write(header); err != nil {
		_ = file.Close()

		return nil, errors.Wrapf(err, "unable to write header of %s", name)
	}

	return w, nil
}

func (w *orderedWriter) write(index int, x *mat.Dense) error {
	if index < w.next {
		return errors.Errorf("batch %d of %s written twice", index, w.name)
	}

	w.pending[index] = x

	for {
		x, ok := w.pending[w.next]
		if !ok {
			return nil
		}

		delete(w.pending, w.next)
		w.next++

		if err := w.writeRows(x); err != nil {
			return err
		}
	}
}

func (w *orderedWriter) writeRows(x *mat.Dense) error {
	rows, cols := x.Dims()
	if cols != len(w.record) {
		return errors.Errorf("%s expects %d columns, got %d", w.name, len(w.record), cols)
	}

	for i := range rows {
		for j := range cols {
			w.record[j] = strconv.FormatFloat(x.At(i, j), 'g', -1, 64)
		}

		if err := w.csv.Write(w.record); err != nil {
			return errors.Wrapf(err, "unable to write %s", w.name)
		}
	}

	return nil
}

// flush fails when a batch is still waiting for an earlier one.
func (w *orderedWriter) flush() error {
	if len(w.pending) > 0 {
		return errors.Errorf("%s is missing batch %d", w.name, w.next)
	}

	w.csv.Flush()

	return errors.Wrapf(w.csv.Error(), "unable to flush %s", w.name)
}

func (w *orderedWriter) close() error {
	if w.closed {
		return nil
	}

	w.closed = true
	w.csv.Flush()

	if err := w.csv.Error(); err != nil {
		_ = w.file.Close()

		return errors.Wrapf(err, "unable to flush %s", w.name)
	}

	return errors.Wrapf(w.file.Close(), "unable to close %s", w.name)
}

// FeatureProfile sums up one output column of a split.
type FeatureProfile struct {
	Name string  `yaml:"name"`
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
}

// profile accumulates column sums over the batches of a split.
type profile struct {
	rows  int
	sum   []float64
	sumSq []float64
	sq    []float64
}

func newProfile(cols int) *profile {
	return &profile{
		sum:   make([]float64, cols),
		sumSq: make([]float64, cols),
		sq:    make([]float64, cols),
	}
}

func (p *profile) add(x *mat.Dense) {
	rows, _ := x.Dims()

	for i := range rows {
		row := x.RawRowView(i)
		floats.Add(p.sum, row)
		floats.MulTo(p.sq, row, row)
		floats.Add(p.sumSq, p.sq)
	}

	p.rows += rows
}

// features returns the population mean and standard deviation of each column.
func (p *profile) features(names []string) []FeatureProfile {
	out := make([]FeatureProfile, len(p.sum))

	for j := range p.sum {
		out[j].Name = names[j]

		if p.rows == 0 {
			continue
		}

		n := float64(p.rows)
		mean := p.sum[j] / n
		out[j].Mean = mean
		out[j].Std = math.Sqrt(math.Max(p.sumSq[j]/n-mean*mean, 0))
	}

	return out
}
