package scanerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", New(Timeout, "timed out after %s", "1s"), Timeout},
		{"wrapped", fmt.Errorf("scan: %w", New(MalformedOutput, "bad json")), MalformedOutput},
		{"foreign", base, UnexpectedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError(t *testing.T) {
	base := errors.New("exec format error")
	e := Wrap(UnexpectedError, base, "Unexpected error running %s: %v", "safety", base)
	assert.Equal(t, "Unexpected error running safety: exec format error", e.Error())
	assert.ErrorIs(t, e, base)

	e.Trace = "goroutine 1 [running]:"
	assert.Equal(t, "Unexpected error running safety: exec format error\ngoroutine 1 [running]:", e.Error())
}
