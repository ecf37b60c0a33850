package cache

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	keyVersion = "v2"
	prefixLen  = 20
)

// Key returns the content-addressed key for a clip. It combines the voice,
// the rate at two decimals, the sample rate the clip was rendered at, a
// 64-bit hash of the full text and a readable prefix of the text.
func Key(voice, text string, rate float64, sampleRate int) string {
	return fmt.Sprintf("%s:%s:%.2f:%d:%016x:%s",
		keyVersion,
		strings.ToLower(strings.TrimSpace(voice)),
		rate,
		sampleRate,
		xxhash.Sum64String(text),
		prefix(text))
}

// prefix keeps the first prefixLen runes with anything other than letters
// and digits replaced by '_'.
func prefix(text string) string {
	var b strings.Builder
	n := 0
	for _, r := range text {
		if n == prefixLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}
