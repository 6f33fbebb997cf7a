package report

import (
	"encoding/json"
	"math"
	"strconv"
)

// list decodes a JSON array element by element and drops the elements that
// do not decode as T, so that one malformed entry cannot hide its siblings.
// Anything but an array decodes as an empty list.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(b, &elems); err != nil {
		*l = nil
		return nil
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		var v T
		if err := json.Unmarshal(e, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// scalar is a string field that also accepts numbers and booleans.
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	*s = scalar(asString(b))
	return nil
}

// maxCount bounds counters taken from tool output.
const maxCount = math.MaxInt32

// counter is a vulnerability counter given as a number or a numeric string.
type counter float64

func (c *counter) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(asString(b), 64)
	if err != nil {
		f = 0
	}
	*c = counter(f)
	return nil
}

// count rounds a positive counter up and clamps it to maxCount. Zero,
// negative and NaN counters yield 0.
func (c counter) count() int {
	f := float64(c)
	if !(f > 0) {
		return 0
	}
	if f >= maxCount {
		return maxCount
	}
	return int(math.Ceil(f))
}
