package observation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNumeric_SentinelVocabularyIsRejected(t *testing.T) {
	for _, s := range []string{
		"other", "OTHER", "n/a", "N/A", "na", "Na", "null", "NULL", "none", "None",
		"unknown", "Unknown", "not available", "Not Available", "not applicable", "  n/a  ",
	} {
		assert.False(t, IsNumeric(s), "%q", s)
		_, r := Classify(s)
		assert.Equal(t, RejectSentinel, r, "%q", s)
	}
}

func TestIsNumeric_FloatStringsAreAccepted(t *testing.T) {
	for _, s := range []string{"0", "2.5", "-3.75", " 42 ", "1e3", "-1.5E-2", "+7", ".5"} {
		assert.True(t, IsNumeric(s), "%q", s)
	}
}

func TestClassify_RejectionReasons(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Rejection
	}{
		{"nil", nil, RejectNull},
		{"empty", "", RejectEmpty},
		{"whitespace", "   ", RejectEmpty},
		{"free text label", "Germany", RejectAlphabetic},
		{"nan text", "NaN", RejectAlphabetic},
		{"inf text", "inf", RejectAlphabetic},
		{"mixed text", "12 percent", RejectUnparseable},
		{"thousands separator", "1,234", RejectUnparseable},
		{"nan float", math.NaN(), RejectNonFinite},
		{"inf float", math.Inf(1), RejectNonFinite},
		{"bool", true, RejectAlphabetic},
		{"slice", []int{1}, RejectUnsupported},
		{"float", 2.5, RejectNone},
		{"int", 7, RejectNone},
		{"uint8", uint8(3), RejectNone},
		{"json number", json.Number("4.25"), RejectNone},
		{"bytes", []byte("1.5"), RejectNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Classify(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 2.5, ToFloat("2.5", 0))
	assert.Equal(t, 3.0, ToFloat(3, 0))
	assert.Equal(t, -1.0, ToFloat("n/a", -1))
	assert.Equal(t, 0.0, ToFloat(nil, 0))
	assert.Equal(t, 9.0, ToFloat(math.Inf(-1), 9))
}

func TestRejection_String(t *testing.T) {
	assert.Equal(t, "sentinel", RejectSentinel.String())
	assert.Equal(t, "missing_key", RejectMissingKey.String())
	assert.Equal(t, "unknown", Rejection(99).String())
}

//Personal.AI order the ending
