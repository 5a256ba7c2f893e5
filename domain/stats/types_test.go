package stats

import (
	"math"
	"testing"

	"rctstats/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleMean(t *testing.T) {
	m, err := Sample{1, 1, 1, 1, 1, 0, 0, 0, 0, 0}.Mean()
	require.NoError(t, err)
	assert.Equal(t, 0.5, m)

	_, err = Sample{}.Mean()
	assert.ErrorIs(t, err, core.ErrEmptySample)
}

func TestSampleValidate(t *testing.T) {
	tests := []struct {
		name      string
		sample    Sample
		wantInput bool
		wantNum   bool
	}{
		{name: "valid", sample: Sample{1, 2, 3}},
		{name: "empty", sample: Sample{}, wantInput: true},
		{name: "nil", sample: nil, wantInput: true},
		{name: "nan", sample: Sample{1, math.NaN()}, wantNum: true},
		{name: "positive inf", sample: Sample{math.Inf(1)}, wantNum: true},
		{name: "negative inf", sample: Sample{0, 0, math.Inf(-1)}, wantNum: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sample.Validate("sample1")
			switch {
			case tt.wantInput:
				assert.True(t, core.IsInvalidInputError(err), "got %v", err)
			case tt.wantNum:
				assert.True(t, core.IsNumericError(err), "got %v", err)
				assert.Contains(t, err.Error(), "sample1[")
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestPoolPreservesOrderWithoutAliasing(t *testing.T) {
	a := Sample{1, 2}
	b := Sample{3}
	pooled := Pool(a, b)

	assert.Equal(t, Sample{1, 2, 3}, pooled)

	pooled[0] = 99
	assert.Equal(t, 1.0, a[0], "pool must not alias its inputs")
}
