package record

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"platewatch/internal/plate"
)

// Placeholder marks an absent field in rendered text.
const Placeholder = "?"

// Line labels, in render order. Both Render and the parse grammar are built
// from this table, so a rendered record is always valid parser input and an
// administrator can copy a lookup reply, edit it, and send it back.
const (
	labelPlate     = "Номерний знак"
	labelBrand     = "Авто"
	labelColor     = "Колір авто"
	labelComment   = "Особливості"
	labelOccupants = "Чисельність ДРГ"
	labelCity      = "Місто де вперше було зафіксовано"
)

// ErrNoMatch indicates the text does not follow the six-line record form.
var ErrNoMatch = errors.New("text does not match the record form")

var grammar = buildGrammar()

func buildGrammar() *regexp.Regexp {
	lines := []struct {
		label   string
		name    string
		capture string
	}{
		{labelPlate, "plate", `[^\n]+`},
		{labelBrand, "brand", `[^\n]+`},
		{labelColor, "color", `[^\n]+`},
		{labelComment, "comment", `[^\n]+`},
		{labelOccupants, "occupants", `\d+|\?`},
		{labelCity, "city", `[^\n]+`},
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString(`\s+`)
		}
		b.WriteString(regexp.QuoteMeta(line.label + ": "))
		fmt.Fprintf(&b, `(?P<%s>%s)`, line.name, line.capture)
	}
	return regexp.MustCompile(b.String())
}

// Render produces the six-line display form of a record under the given
// plate text. Absent fields render as the placeholder.
func Render(rec Record, plateText string) string {
	return strings.Join([]string{
		labelPlate + ": " + plateText,
		labelBrand + ": " + valueOrPlaceholder(rec.Brand),
		labelColor + ": " + valueOrPlaceholder(rec.Color),
		labelComment + ": " + valueOrPlaceholder(rec.Comment),
		labelOccupants + ": " + occupantsText(rec.OccupantCount),
		labelCity + ": " + valueOrPlaceholder(rec.ReportedInCity),
	}, "\n")
}

// Parse matches text against the record grammar and decodes the captures.
// The plate capture is returned in normalized form. A grammar mismatch
// yields ErrNoMatch; occupant-count digits outside the 8-bit range yield a
// distinct error and no record.
func Parse(text string) (string, Record, error) {
	m := grammar.FindStringSubmatch(text)
	if m == nil {
		return "", Record{}, ErrNoMatch
	}
	capture := func(name string) string {
		return m[grammar.SubexpIndex(name)]
	}
	rec := Record{
		Brand:          fieldValue(capture("brand")),
		Color:          fieldValue(capture("color")),
		Comment:        fieldValue(capture("comment")),
		ReportedInCity: fieldValue(capture("city")),
	}
	if occ := capture("occupants"); occ != Placeholder {
		n, err := strconv.ParseUint(occ, 10, 8)
		if err != nil {
			return "", Record{}, fmt.Errorf("occupant count %q: %w", occ, err)
		}
		v := uint8(n)
		rec.OccupantCount = &v
	}
	return plate.Normalize(capture("plate")), rec, nil
}

func valueOrPlaceholder(s *string) string {
	if s == nil {
		return Placeholder
	}
	return *s
}

func occupantsText(n *uint8) string {
	if n == nil {
		return Placeholder
	}
	return strconv.Itoa(int(*n))
}

func fieldValue(s string) *string {
	if s == Placeholder {
		return nil
	}
	return &s
}
