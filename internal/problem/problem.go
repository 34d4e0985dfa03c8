// Package problem reads point sets and writes assembled tours in the plain text exchange format.
//
// Input: the first line holds the point count N, followed by N lines of "x y". Point ids are
// the line order starting at 0.
//
// Output: "<length> <optimal flag>" on the first line and the tour's ids, space separated,
// on the second.
package problem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"tour-stitcher/internal/models"
)

// ErrMalformedInput is returned for input that does not follow the exchange format
var ErrMalformedInput = errors.New("malformed problem input")

// maxPrealloc bounds the capacity reserved from an untrusted point count
const maxPrealloc = 1 << 16

// Parse reads a point set
func Parse(r io.Reader) ([]models.Point, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	next := func() (string, bool) {
		for scanner.Scan() {
			line++
			if text := strings.TrimSpace(scanner.Text()); text != "" {
				return text, true
			}
		}
		return "", false
	}

	header, ok := next()
	if !ok {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return nil, fmt.Errorf("%w: missing point count", ErrMalformedInput)
	}

	count, err := strconv.Atoi(header)
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: line %d: invalid point count %q", ErrMalformedInput, line, header)
	}

	points := make([]models.Point, 0, min(count, maxPrealloc))
	for len(points) < count {
		text, ok := next()
		if !ok {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read input: %w", err)
			}
			return nil, fmt.Errorf("%w: expected %d points, got %d", ErrMalformedInput, count, len(points))
		}

		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected \"x y\", got %q", ErrMalformedInput, line, text)
		}

		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid x %q", ErrMalformedInput, line, fields[0])
		}
		if !finite(x) {
			return nil, fmt.Errorf("%w: line %d: non-finite x %q", ErrMalformedInput, line, fields[0])
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid y %q", ErrMalformedInput, line, fields[1])
		}
		if !finite(y) {
			return nil, fmt.Errorf("%w: line %d: non-finite y %q", ErrMalformedInput, line, fields[1])
		}

		points = append(points, models.Point{ID: len(points), X: x, Y: y})
	}

	if text, ok := next(); ok {
		return nil, fmt.Errorf("%w: line %d: unexpected trailing data %q", ErrMalformedInput, line, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return points, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// WriteSolution writes result in the exchange format
func WriteSolution(w io.Writer, result *models.Result) error {
	bw := bufio.NewWriter(w)

	flag := 0
	if result.Optimal {
		flag = 1
	}
	fmt.Fprintf(bw, "%s %d\n", strconv.FormatFloat(result.Length, 'f', 2, 64), flag)

	for i, id := range result.Tour {
		if i > 0 {
			bw.WriteByte(' ')
		}
		bw.WriteString(strconv.Itoa(id))
	}
	bw.WriteByte('\n')

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write solution: %w", err)
	}
	return nil
}
