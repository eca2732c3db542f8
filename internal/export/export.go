// Package export writes analysis results as text files and JSON reports.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gel-analyzer/internal/cluster"
	"gel-analyzer/internal/phylo"

	"gonum.org/v1/gonum/mat"
)

// MatrixFormat selects how match matrix entries are written.
type MatrixFormat int

const (
	// ZeroOne writes 1 for presence and 0 for absence.
	ZeroOne MatrixFormat = iota
	// PlusMinus writes + for presence and - for absence.
	PlusMinus
)

// ParseMatrixFormat parses "01" or "zero-one" and "+-" or "plus-minus".
func ParseMatrixFormat(s string) (MatrixFormat, error) {
	switch strings.ToLower(s) {
	case "01", "zero-one", "binary":
		return ZeroOne, nil
	case "+-", "plus-minus", "pm":
		return PlusMinus, nil
	}
	return 0, fmt.Errorf("unknown matrix format %q", s)
}

// WriteMatchMatrix writes one line per cluster with space separated entries,
// or one line per lane when transposed.
func WriteMatchMatrix(w io.Writer, m *cluster.MatchMatrix, format MatrixFormat, transposed bool) error {
	rows, cols := m.Rows(), m.Cols()
	if m.Data == nil {
		rows = 0
	}
	at := m.At
	if transposed {
		rows, cols = cols, rows
		at = func(r, c int) int { return m.At(c, r) }
	}

	bw := bufio.NewWriter(w)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			v := at(r, c)
			switch format {
			case PlusMinus:
				if v != 0 {
					bw.WriteByte('+')
				} else {
					bw.WriteByte('-')
				}
			default:
				bw.WriteString(strconv.Itoa(v))
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteMatrix writes a real matrix with two decimals per entry, space
// separated, one row per line.
func WriteMatrix(w io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	bw := bufio.NewWriter(w)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%.2f", m.At(r, c))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteWeights writes the estimated weights, one lane per line.
func WriteWeights(w io.Writer, weights [][]int) error {
	bw := bufio.NewWriter(w)
	for _, lane := range weights {
		for k, v := range lane {
			if k > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.Itoa(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteNewick writes the tree in Newick format followed by a newline.
func WriteNewick(w io.Writer, t *phylo.Tree, labels []string) error {
	s, err := t.Newick(labels)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s+"\n")
	return err
}

// ReadMatchMatrix reads a match matrix written by WriteMatchMatrix in either
// format, one cluster per line. Blank lines are skipped.
func ReadMatchMatrix(r io.Reader) (*cluster.MatchMatrix, error) {
	var rows [][]float64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(rows) > 0 && len(fields) != len(rows[0]) {
			return nil, fmt.Errorf("line %d has %d entries, want %d", line, len(fields), len(rows[0]))
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			switch f {
			case "1", "+":
				row[i] = 1
			case "0", "-":
			default:
				return nil, fmt.Errorf("line %d: invalid entry %q", line, f)
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match matrix: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("match matrix is empty")
	}

	data := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}
	return cluster.NewMatchMatrix(data), nil
}
