package httprange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		size   int64
		start  int64
		end    int64
	}{
		{"open ended", "bytes=500-", 1000, 500, 999},
		{"closed", "bytes=0-99", 1000, 0, 99},
		{"end clamped", "bytes=900-5000", 1000, 900, 999},
		{"suffix", "bytes=-100", 1000, 900, 999},
		{"suffix larger than file", "bytes=-5000", 1000, 0, 999},
		{"single byte", "bytes=999-999", 1000, 999, 999},
		{"whitespace and case", "  Bytes= 10 - 19 ", 1000, 10, 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.header, tt.size)
			require.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, tt.start, r.Start)
			assert.Equal(t, tt.end, r.End)
			assert.Equal(t, tt.size, r.Size)
		})
	}
}

func TestParseAbsentHeader(t *testing.T) {
	r, err := Parse("", 1000)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"start past end of file": "bytes=1000-",
		"inverted":               "bytes=600-500",
		"multi range":            "bytes=0-1,5-6",
		"garbage":                "bytes=abc-def",
		"wrong unit":             "items=0-1",
		"no dash":                "bytes=100",
		"empty range":            "bytes=-",
		"zero suffix":            "bytes=-0",
		"negative":               "bytes=--5",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(header, 1000)
			assert.ErrorIs(t, err, ErrUnsatisfiable)
		})
	}
}

func TestParseEmptyResource(t *testing.T) {
	_, err := Parse("bytes=0-", 0)
	assert.ErrorIs(t, err, ErrUnsatisfiable)
}

func TestRangeHeaders(t *testing.T) {
	r := Range{Start: 500, End: 999, Size: 1000}
	assert.Equal(t, int64(500), r.Length())
	assert.Equal(t, "bytes 500-999/1000", r.ContentRange())
	assert.Equal(t, "bytes */1000", Unsatisfied(1000))
}
