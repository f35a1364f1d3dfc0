// Package httprange parses single byte-range requests.
package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsatisfiable marks a Range header that cannot be served.
var ErrUnsatisfiable = errors.New("range not satisfiable")

const unit = "bytes="

// Range is an inclusive byte span within a resource of Size bytes.
type Range struct {
	Start int64
	End   int64
	Size  int64
}

// Length is the number of bytes the range covers.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value.
func (r Range) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

// Unsatisfied renders the Content-Range value sent with a 416.
func Unsatisfied(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// Parse interprets header against a resource of size bytes.
//
// It returns (nil, nil) when header is empty, meaning the whole resource.
// Accepted forms are "bytes=start-end", "bytes=start-" and "bytes=-suffix".
// The end is clamped to size-1. Multiple ranges, inverted bounds and starts
// at or past the end are rejected with ErrUnsatisfiable.
func Parse(header string, size int64) (*Range, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	if !strings.HasPrefix(strings.ToLower(header), unit) {
		return nil, fmt.Errorf("%w: unsupported unit", ErrUnsatisfiable)
	}
	rangeSet := strings.TrimSpace(header[len(unit):])
	if strings.Contains(rangeSet, ",") {
		return nil, fmt.Errorf("%w: multiple ranges", ErrUnsatisfiable)
	}
	rawStart, rawEnd, ok := strings.Cut(rangeSet, "-")
	if !ok {
		return nil, fmt.Errorf("%w: missing dash", ErrUnsatisfiable)
	}
	rawStart, rawEnd = strings.TrimSpace(rawStart), strings.TrimSpace(rawEnd)
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty resource", ErrUnsatisfiable)
	}

	var start, end int64
	switch {
	case rawStart == "" && rawEnd == "":
		return nil, fmt.Errorf("%w: empty range", ErrUnsatisfiable)
	case rawStart == "":
		suffix, err := parseOffset(rawEnd)
		if err != nil {
			return nil, err
		}
		if suffix == 0 {
			return nil, fmt.Errorf("%w: zero suffix", ErrUnsatisfiable)
		}
		if suffix > size {
			suffix = size
		}
		start, end = size-suffix, size-1
	default:
		var err error
		start, err = parseOffset(rawStart)
		if err != nil {
			return nil, err
		}
		end = size - 1
		if rawEnd != "" {
			end, err = parseOffset(rawEnd)
			if err != nil {
				return nil, err
			}
		}
	}

	if start >= size {
		return nil, fmt.Errorf("%w: start %d beyond size %d", ErrUnsatisfiable, start, size)
	}
	if end >= size {
		end = size - 1
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %d after end %d", ErrUnsatisfiable, start, end)
	}
	return &Range{Start: start, End: end, Size: size}, nil
}

func parseOffset(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: bad offset %q", ErrUnsatisfiable, raw)
	}
	return v, nil
}
