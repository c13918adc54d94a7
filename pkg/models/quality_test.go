package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuality(t *testing.T) {
	for n := 0; n <= 5; n++ {
		q, err := ParseQuality(n)
		require.NoError(t, err)
		assert.Equal(t, Quality(n), q)
	}
	for _, n := range []int{-1, 6, 42} {
		_, err := ParseQuality(n)
		assert.ErrorIs(t, err, ErrInvalidQuality)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestParseQualityString(t *testing.T) {
	q, err := ParseQualityString(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, QualityCorrectHesitation, q)

	for _, s := range []string{"", "five", "3.5", "9"} {
		_, err := ParseQualityString(s)
		assert.ErrorIs(t, err, ErrInvalidQuality, "input %q", s)
	}
}

func TestQualityIsLapse(t *testing.T) {
	assert.True(t, QualityBlackout.IsLapse())
	assert.True(t, QualityIncorrectFamiliar.IsLapse())
	assert.False(t, QualityCorrectDifficult.IsLapse())
	assert.False(t, QualityPerfect.IsLapse())
}

func TestQualityString(t *testing.T) {
	assert.Equal(t, "perfect", QualityPerfect.String())
	assert.Equal(t, "Quality(9)", Quality(9).String())
}
