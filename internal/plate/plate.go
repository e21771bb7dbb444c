// Package plate canonicalizes license-plate strings for storage and lookup.
package plate

import (
	"strings"
	"unicode"
)

// homoglyphs folds the Cyrillic letters that render identically to Latin
// ones onto their Latin counterparts. Existing CAR: keys were produced with
// exactly these 13 substitutions; the table must not change.
var homoglyphs = strings.NewReplacer(
	"А", "A",
	"В", "B",
	"Е", "E",
	"К", "K",
	"М", "M",
	"І", "I",
	"Н", "H",
	"О", "O",
	"Р", "P",
	"С", "C",
	"Т", "T",
	"У", "Y",
	"Х", "X",
)

// Normalize converts a raw plate into its canonical lookup form: uppercase,
// Cyrillic homoglyphs folded to Latin, every rune that is not a letter or a
// digit removed. Same input always yields the same output.
func Normalize(raw string) string {
	folded := homoglyphs.Replace(strings.ToUpper(raw))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
