package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodesFormats(t *testing.T) {
	cases := []struct {
		format  string
		charset string
	}{
		{FormatNumeric, numericCharset},
		{"", numericCharset},
		{FormatAlphanumeric, alphanumericCharset},
		{FormatHex, hexCharset},
		{" HEX ", hexCharset},
	}
	for _, tc := range cases {
		codes, err := GenerateCodes(50, 12, tc.format)
		require.NoError(t, err, tc.format)
		require.Len(t, codes, 50)
		seen := map[string]bool{}
		for _, c := range codes {
			assert.Len(t, c, 12)
			for _, r := range c {
				assert.True(t, strings.ContainsRune(tc.charset, r), "%q not in %s charset", r, tc.format)
			}
			assert.False(t, seen[c], "duplicate %s", c)
			seen[c] = true
		}
	}
}

func TestGenerateCodesExhaustsSmallSpace(t *testing.T) {
	codes, err := GenerateCodes(16, 1, FormatHex)
	require.NoError(t, err)
	assert.Len(t, codes, 16)

	_, err = GenerateCodes(17, 1, FormatHex)
	assert.ErrorIs(t, err, ErrCodeSpace)
}

func TestGenerateCodesRejectsBadInput(t *testing.T) {
	_, err := GenerateCodes(1, 8, "base32")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = GenerateCodes(0, 8, FormatNumeric)
	assert.Error(t, err)
	_, err = GenerateCodes(1, 0, FormatNumeric)
	assert.Error(t, err)
	_, err = GenerateCodes(1, MaxCodeLength+1, FormatNumeric)
	assert.Error(t, err)
}

func TestValidateCodes(t *testing.T) {
	got, err := ValidateCodes([]string{" A-1 ", "b_2", "A-1", "7741552201"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1", "b_2", "7741552201"}, got)

	for _, bad := range []string{"", "   ", "has space", "semi;colon", "ünïcode", strings.Repeat("x", MaxCodeLength+1)} {
		_, err := ValidateCodes([]string{"ok", bad})
		assert.ErrorIs(t, err, ErrInvalidCode, "%q", bad)
	}
	assert.NoError(t, ValidateCode(strings.Repeat("x", MaxCodeLength)))
}

func TestNewPublicID(t *testing.T) {
	id, err := NewPublicID(8)
	require.NoError(t, err)
	assert.Len(t, id, 8)
	assert.Equal(t, strings.ToUpper(id), id)
	assert.NotContains(t, id, "0")
	assert.NotContains(t, id, "O")
	assert.NotContains(t, id, "1")
	assert.NotContains(t, id, "I")

	_, err = NewPublicID(0)
	assert.Error(t, err)
}
