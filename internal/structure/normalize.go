package structure

import (
	"regexp"
	"strings"
)

var (
	pageNumberLine = regexp.MustCompile(`^\d{1,4}$`)
	romanLine      = regexp.MustCompile(`^[ivxlcdmIVXLCDM]{1,7}$`)
	tocFiller      = regexp.MustCompile(`\.{2,}\s*\d{1,4}`)
	dotRun         = regexp.MustCompile(`\.{2,}`)
	gluedNumber    = regexp.MustCompile(`(\d)([A-Za-z])`)
	spaceRun       = regexp.MustCompile(`\s+`)
)

// Normalize strips extraction noise from page text. It is pure and
// idempotent; the rules run in a fixed order because later ones assume the
// earlier cleanup already happened:
//
//  1. drop non-ASCII characters
//  2. drop lines that are only a page number or a roman-numeral page marker
//  3. remove TOC filler ("..... 520")
//  4. collapse remaining dot runs to a space (single dots, as in "v4.0.1",
//     are left alone)
//  5. put a space between a digit glued to a letter ("17.2.100Install")
//  6. flatten all whitespace to single spaces
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var ascii strings.Builder
	ascii.Grow(len(text))
	for _, r := range text {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}
	text = ascii.String()

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if pageNumberLine.MatchString(stripped) || romanLine.MatchString(stripped) {
			continue
		}
		kept = append(kept, line)
	}
	text = strings.Join(kept, "\n")

	text = tocFiller.ReplaceAllString(text, "")
	text = dotRun.ReplaceAllString(text, " ")
	text = gluedNumber.ReplaceAllString(text, "$1 $2")

	text = strings.NewReplacer("\r", " ", "\t", " ", "\n", " ").Replace(text)
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}
