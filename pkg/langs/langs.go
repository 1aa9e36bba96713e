// Package langs normalizes target-language input for prompts. Users and
// front-ends send languages in many shapes ("es", "ES", "español",
// "pt-BR"); prompts want one canonical English name per language so the
// model receives a consistent instruction.
package langs

import "strings"

// DefaultLanguage is used when a request omits the target language.
const DefaultLanguage = "English"

// Common language aliases and ISO codes mapped to canonical English names.
var languageAliases = map[string]string{
	"en":         "English",
	"en-us":      "English",
	"en-gb":      "English",
	"english":    "English",
	"es":         "Spanish",
	"spanish":    "Spanish",
	"español":    "Spanish",
	"espanol":    "Spanish",
	"fr":         "French",
	"french":     "French",
	"français":   "French",
	"francais":   "French",
	"de":         "German",
	"german":     "German",
	"deutsch":    "German",
	"it":         "Italian",
	"italian":    "Italian",
	"italiano":   "Italian",
	"pt":         "Portuguese",
	"portuguese": "Portuguese",
	"português":  "Portuguese",
	"portugues":  "Portuguese",
	"pt-br":      "Brazilian Portuguese",
	"nl":         "Dutch",
	"dutch":      "Dutch",
	"pl":         "Polish",
	"polish":     "Polish",
	"ru":         "Russian",
	"russian":    "Russian",
	"uk":         "Ukrainian",
	"ukrainian":  "Ukrainian",
	"tr":         "Turkish",
	"turkish":    "Turkish",
	"ar":         "Arabic",
	"arabic":     "Arabic",
	"he":         "Hebrew",
	"hebrew":     "Hebrew",
	"hi":         "Hindi",
	"hindi":      "Hindi",
	"bn":         "Bengali",
	"bengali":    "Bengali",
	"ta":         "Tamil",
	"tamil":      "Tamil",
	"zh":         "Chinese",
	"zh-cn":      "Simplified Chinese",
	"zh-tw":      "Traditional Chinese",
	"chinese":    "Chinese",
	"ja":         "Japanese",
	"japanese":   "Japanese",
	"ko":         "Korean",
	"korean":     "Korean",
	"vi":         "Vietnamese",
	"vietnamese": "Vietnamese",
	"th":         "Thai",
	"thai":       "Thai",
	"id":         "Indonesian",
	"indonesian": "Indonesian",
	"sv":         "Swedish",
	"swedish":    "Swedish",
	"no":         "Norwegian",
	"norwegian":  "Norwegian",
	"da":         "Danish",
	"danish":     "Danish",
	"fi":         "Finnish",
	"finnish":    "Finnish",
	"el":         "Greek",
	"greek":      "Greek",
	"cs":         "Czech",
	"czech":      "Czech",
	"ro":         "Romanian",
	"romanian":   "Romanian",
	"hu":         "Hungarian",
	"hungarian":  "Hungarian",
	"fa":         "Persian",
	"persian":    "Persian",
	"farsi":      "Persian",
	"ur":         "Urdu",
	"urdu":       "Urdu",
	"sw":         "Swahili",
	"swahili":    "Swahili",
}

// Normalize resolves a language alias or ISO code to its canonical English
// name. Unknown input is returned title-cased so the model still gets a
// usable instruction; empty input falls back to DefaultLanguage.
func Normalize(lang string) string {
	trimmed := strings.TrimSpace(lang)
	if trimmed == "" {
		return DefaultLanguage
	}
	if canonical, ok := languageAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return titleCase(trimmed)
}

// IsEnglish reports whether the (possibly aliased) language resolves to
// English. Translation requests into English are a no-op for the tone
// classification rule but still go through the model for the prose.
func IsEnglish(lang string) bool {
	return Normalize(lang) == "English"
}

// titleCase uppercases the first letter of each space-separated word.
// ASCII-only on purpose: canonical names are English.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
