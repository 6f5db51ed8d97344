// Package languages holds the registry of languages a contributor can
// translate or record voiceovers in.
package languages

import (
	"sort"

	"golang.org/x/text/language"
)

// Language describes one selectable target language.
type Language struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	SupportsAudio bool   `json:"supports_audio"`
}

// supported is the fixed registry. Codes follow the ISO-639 style tags the
// content pipeline uses; SupportsAudio marks languages with an active
// voiceover workflow.
var supported = []Language{
	{Code: "ar", Name: "Arabic", SupportsAudio: true},
	{Code: "bn", Name: "Bangla", SupportsAudio: true},
	{Code: "de", Name: "German", SupportsAudio: false},
	{Code: "en", Name: "English", SupportsAudio: true},
	{Code: "es", Name: "Spanish", SupportsAudio: true},
	{Code: "fr", Name: "French", SupportsAudio: true},
	{Code: "hi", Name: "Hindi", SupportsAudio: true},
	{Code: "id", Name: "Indonesian", SupportsAudio: false},
	{Code: "it", Name: "Italian", SupportsAudio: false},
	{Code: "ja", Name: "Japanese", SupportsAudio: false},
	{Code: "pt", Name: "Portuguese", SupportsAudio: true},
	{Code: "ru", Name: "Russian", SupportsAudio: false},
	{Code: "sw", Name: "Swahili", SupportsAudio: true},
	{Code: "zh", Name: "Chinese", SupportsAudio: true},
}

var supportedByCode = func() map[string]Language {
	m := make(map[string]Language, len(supported))
	for _, l := range supported {
		// A registry entry that does not parse as a BCP 47 tag is a
		// programming error, caught at startup.
		language.MustParse(l.Code)
		m[l.Code] = l
	}
	return m
}()

// Supported returns all registered languages sorted by code.
func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// IsSupported reports whether code is in the registry.
func IsSupported(code string) bool {
	_, ok := supportedByCode[code]
	return ok
}

// Get looks up a language by its code.
func Get(code string) (Language, bool) {
	l, ok := supportedByCode[code]
	return l, ok
}

// EligibleExcluding returns the supported set minus the given code. An empty
// exclude returns the full set. Used by the selector to drop an
// exploration's own display language while in translation mode.
func EligibleExcluding(exclude string) []Language {
	all := Supported()
	if exclude == "" {
		return all
	}

	out := all[:0]
	for _, l := range all {
		if l.Code != exclude {
			out = append(out, l)
		}
	}
	return out
}

// EligibleForAudio returns the supported languages with an active voiceover
// workflow.
func EligibleForAudio() []Language {
	var out []Language
	for _, l := range Supported() {
		if l.SupportsAudio {
			out = append(out, l)
		}
	}
	return out
}
