package sarvam

import "unicode"

// Languages AgriBot can translate to and synthesize speech in, as
// Sarvam language codes.
const (
	LangEnglish   = "en-IN"
	LangHindi     = "hi-IN"
	LangBengali   = "bn-IN"
	LangGujarati  = "gu-IN"
	LangKannada   = "kn-IN"
	LangMalayalam = "ml-IN"
	LangMarathi   = "mr-IN"
	LangOdia      = "od-IN"
	LangPunjabi   = "pa-IN"
	LangTamil     = "ta-IN"
	LangTelugu    = "te-IN"
)

// scriptLangs maps Indic scripts to the Sarvam code of their dominant
// language. Devanagari is ambiguous (Hindi/Marathi); Hindi wins as the
// far more common case on this channel.
var scriptLangs = []struct {
	ranges *unicode.RangeTable
	code   string
}{
	{unicode.Devanagari, LangHindi},
	{unicode.Bengali, LangBengali},
	{unicode.Gujarati, LangGujarati},
	{unicode.Kannada, LangKannada},
	{unicode.Malayalam, LangMalayalam},
	{unicode.Oriya, LangOdia},
	{unicode.Gurmukhi, LangPunjabi},
	{unicode.Tamil, LangTamil},
	{unicode.Telugu, LangTelugu},
}

// detectByScript guesses the language from the dominant Indic script in
// the text. Latin-script (or empty) text maps to English. This is the
// offline fallback when the detect-language API is unavailable.
func detectByScript(text string) string {
	counts := make(map[string]int, len(scriptLangs))
	best, bestCount := LangEnglish, 0

	for _, r := range text {
		for _, s := range scriptLangs {
			if unicode.Is(s.ranges, r) {
				counts[s.code]++
				if counts[s.code] > bestCount {
					best, bestCount = s.code, counts[s.code]
				}
				break
			}
		}
	}

	return best
}
