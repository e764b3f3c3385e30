package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalarInt(t *testing.T) {
	descs, err := Parse(Values, "%i", []any{42})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, 42, descs[0].Value)
	assert.Equal(t, CTypeInt, descs[0].CType)
}

func TestParseNarrowsCharToInt8(t *testing.T) {
	descs, err := Parse(Values, "%c", []any{65})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, int8(65), descs[0].Value)
}

func TestParseFixedArrayTooShortRejected(t *testing.T) {
	_, err := Parse(Values, "%1i", []any{1})
	require.Error(t, err)
	werr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "ArrayLength", werr.Reason)
}

func TestParseTooManyTermsRejected(t *testing.T) {
	format := ""
	args := make([]any, 0, MaxFormatLen+1)
	for i := 0; i <= MaxFormatLen; i++ {
		format += "%i"
		args = append(args, i)
	}
	_, err := Parse(Values, format, args)
	require.Error(t, err)
	assert.Equal(t, "FormatArgs", err.(*Error).Reason)
}

func TestParseArgCountMismatchRejected(t *testing.T) {
	_, err := Parse(Values, "%i%i", []any{1})
	require.Error(t, err)
	assert.Equal(t, "FormatArgs", err.(*Error).Reason)
}

func TestParseLocationsRejectsNonPointer(t *testing.T) {
	_, err := Parse(Locations, "%i", []any{7})
	require.Error(t, err)
	assert.Equal(t, "BogusPointerArg", err.(*Error).Reason)
}

func TestParseLocationsAcceptsPointer(t *testing.T) {
	var dst int
	descs, err := Parse(Locations, "%i", []any{&dst})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, &dst, descs[0].Value)
}

func TestParseStringValuesProducesTwoDescriptors(t *testing.T) {
	descs, err := Parse(Values, "%s", []any{"hi"})
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.True(t, descs[0].IsSendCount)
	assert.Equal(t, 3, descs[0].Value) // len("hi") + 1
	assert.Equal(t, "hi", descs[1].Value)
}

func TestParseVariableArrayRejectsReduceOp(t *testing.T) {
	_, err := Parse(Values, "%+/^i", []any{2, []int32{1, 2}})
	require.Error(t, err)
	assert.Equal(t, "OpInvalid", err.(*Error).Reason)
}

func TestSignatureMatchesForIdenticalFormats(t *testing.T) {
	a, err := Parse(Values, "%i%3f", []any{1, []float32{1, 2, 3}})
	require.NoError(t, err)
	var tgt int
	b, err := Parse(Locations, "%i%3f", []any{&tgt, make([]float32, 3)})
	require.NoError(t, err)
	assert.Equal(t, Signature(a), Signature(b))
}

func TestSignatureDiffersForDifferentShapes(t *testing.T) {
	a, err := Parse(Values, "%i", []any{1})
	require.NoError(t, err)
	b, err := Parse(Values, "%2i", []any{[]int32{1, 2}})
	require.NoError(t, err)
	assert.NotEqual(t, Signature(a), Signature(b))
}

func TestParseUnknownTypeRejected(t *testing.T) {
	_, err := Parse(Values, "%z", []any{1})
	require.Error(t, err)
	assert.Equal(t, "FormatInvalid", err.(*Error).Reason)
}
