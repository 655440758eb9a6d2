package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSupplierName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Joe's Towing", "Joe's Towing"},
		{"Joe’s Towing", "Joe's Towing"},      // smart apostrophe
		{"  XYZ  &   Sons ", "XYZ & Sons"},    // whitespace collapse
		{"Tow<script>me", "Towscriptme"},      // disallowed chars stripped
		{"A–B Towing — Ltd", "A-B Towing - Ltd"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeSupplierName(tc.in), "input %q", tc.in)
	}
}

func TestSanitizeSupplierNameIdempotent(t *testing.T) {
	inputs := []string{"Joe’s Towing", "XYZ & Sons Towing", "Āuto Tow 24/7"}
	for _, in := range inputs {
		once := SanitizeSupplierName(in)
		assert.Equal(t, once, SanitizeSupplierName(once))
	}
}

func TestSmartQuoteVariantsCollapseToSameKey(t *testing.T) {
	assert.Equal(t, SanitizeSupplierName("Joe's Towing"), SanitizeSupplierName("Joe’s Towing"))
}

func TestGeneratePortalCode(t *testing.T) {
	code, err := GeneratePortalCode(12)
	require.NoError(t, err)
	assert.Len(t, code, 12)

	for _, r := range code {
		assert.Contains(t, portalAlphabet, string(r))
	}

	// No confusable characters ever.
	for _, bad := range []string{"i", "l", "o", "0", "1"} {
		assert.NotContains(t, code, bad)
	}

	other, err := GeneratePortalCode(12)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestNewBookingID(t *testing.T) {
	id := NewBookingID()
	assert.True(t, strings.HasPrefix(id, "HT-"))
	assert.Greater(t, len(id), 8)
	assert.NotEqual(t, id, NewBookingID())
}

func TestNormalizeMobile(t *testing.T) {
	cases := []struct {
		in, cc, want string
	}{
		{"021234567", "64", "6421234567"},
		{"+64 21 234 567", "64", "6421234567"},
		{"64-21-234-567", "64", "6421234567"},
		{"(09) 300 1234", "64", "6493001234"},
		// Empty country code defaults to NZ.
		{"021234567", "", "6421234567"},
		{"0412 345 678", "61", "61412345678"},
	}
	for _, tc := range cases {
		got, err := NormalizeMobile(tc.in, tc.cc)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := NormalizeMobile("", "64")
	assert.Error(t, err)
	_, err = NormalizeMobile("not a phone", "64")
	assert.Error(t, err)
}

func TestSanitizeGSM(t *testing.T) {
	assert.Equal(t, "Driver 'Joe' - ETA 40min...", SanitizeGSM("Driver ‘Joe’ — ETA 40min…"))
	assert.Equal(t, "tow truck", SanitizeGSM("tow truck 🚛"))
	assert.Equal(t, "line1\nline2", SanitizeGSM("line1\nline2"))
}
