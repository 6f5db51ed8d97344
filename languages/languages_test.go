package languages_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzalendo/lingopref/languages"
)

func TestSupportedIsSortedAndStable(t *testing.T) {
	all := languages.Supported()
	require.NotEmpty(t, all)

	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Code, all[i].Code)
	}

	// Mutating the returned slice must not leak into the registry.
	all[0].Code = "zz"
	assert.NotEqual(t, "zz", languages.Supported()[0].Code)
}

func TestIsSupported(t *testing.T) {
	testCases := []struct {
		code string
		want bool
	}{
		{code: "en", want: true},
		{code: "sw", want: true},
		{code: "hi", want: true},
		{code: "xx", want: false},
		{code: "", want: false},
		{code: "EN", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.want, languages.IsSupported(tc.code))
		})
	}
}

func TestEligibleExcluding(t *testing.T) {
	full := languages.Supported()

	excluded := languages.EligibleExcluding("en")
	assert.Len(t, excluded, len(full)-1)
	for _, l := range excluded {
		assert.NotEqual(t, "en", l.Code)
	}

	assert.Len(t, languages.EligibleExcluding(""), len(full))
	assert.Len(t, languages.EligibleExcluding("not-a-code"), len(full))
}

func TestEligibleForAudio(t *testing.T) {
	for _, l := range languages.EligibleForAudio() {
		assert.True(t, l.SupportsAudio, "language %s should support audio", l.Code)
	}

	de, ok := languages.Get("de")
	require.True(t, ok)
	require.False(t, de.SupportsAudio)

	for _, l := range languages.EligibleForAudio() {
		assert.NotEqual(t, "de", l.Code)
	}
}
