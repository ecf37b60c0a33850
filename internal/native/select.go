package native

import (
	"strings"

	"github.com/dgnsrekt/chatvoice/internal/voice"
	"golang.org/x/text/language"
)

// Host voice catalogs differ wildly, so name keywords are only a hint.
var genderKeywords = map[string][]string{
	"female": {"female", "woman", "samantha", "victoria", "karen", "moira", "tessa", "zira", "fiona", "susan", "allison", "ava", "kathy"},
	"male":   {"male", "man", "daniel", "alex", "fred", "david", "mark", "thomas", "oliver", "tom", "bruce", "ralph"},
}

// SelectVoice picks the host voice closest to a profile. The ranking is a
// heuristic, not an exact mapping:
//
//  1. a voice whose name or ID contains the profile ID
//  2. a voice of the profile's gender, preferring the user's language
//  3. the first voice in the user's language
//
// ok is false when nothing matches and the engine default should be used.
func SelectVoice(voices []Voice, p voice.Profile, userLang string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	id := strings.ToLower(p.ID)
	if id != "" && id != voice.DefaultID {
		for _, v := range voices {
			if strings.Contains(strings.ToLower(v.Name), id) || strings.Contains(strings.ToLower(v.ID), id) {
				return v, true
			}
		}
	}

	base, haveLang := baseLanguage(userLang)
	inLang := func(v Voice) bool {
		if !haveLang {
			return true
		}
		b, ok := baseLanguage(v.Language)
		return ok && b == base
	}

	if gender := strings.ToLower(p.Gender); gender == "male" || gender == "female" {
		var first *Voice
		for i, v := range voices {
			if !matchesGender(v, gender) {
				continue
			}
			if inLang(v) {
				return v, true
			}
			if first == nil {
				first = &voices[i]
			}
		}
		if first != nil {
			return *first, true
		}
	}

	if haveLang {
		for _, v := range voices {
			if inLang(v) {
				return v, true
			}
		}
	}
	return Voice{}, false
}

func matchesGender(v Voice, gender string) bool {
	if v.Gender != "" {
		return v.Gender == gender
	}
	for _, word := range strings.FieldsFunc(strings.ToLower(v.Name), isNameSeparator) {
		for _, kw := range genderKeywords[gender] {
			if word == kw {
				return true
			}
		}
	}
	return false
}

func isNameSeparator(r rune) bool {
	return r == ' ' || r == '_' || r == '-' || r == '(' || r == ')' || r == '+'
}

func baseLanguage(tag string) (language.Base, bool) {
	if tag == "" {
		return language.Base{}, false
	}
	t, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return language.Base{}, false
	}
	b, conf := t.Base()
	return b, conf != language.No
}
