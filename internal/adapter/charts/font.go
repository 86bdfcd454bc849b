package charts

import (
	"fmt"
	"slices"
	"sync"
	"unicode"

	"github.com/go-fonts/dejavu/dejavusans"
	"github.com/golang/freetype/truetype"
)

var (
	fontOnce   sync.Once
	parsedFont *truetype.Font
	fontErr    error
)

// Font returns the chart font. DejaVu Sans carries the Arabic presentation
// forms that label shapes Persian text into.
func Font() (*truetype.Font, error) {
	fontOnce.Do(func() {
		parsedFont, fontErr = truetype.Parse(dejavusans.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("parse chart font: %w", fontErr)
		}
	})
	return parsedFont, fontErr
}

// forms holds isolated, final, initial and medial presentation forms.
// Right-joining letters have no initial or medial form.
var forms = map[rune][4]rune{
	'ء': {0xFE80, 0, 0, 0},
	'آ': {0xFE81, 0xFE82, 0, 0},
	'أ': {0xFE83, 0xFE84, 0, 0},
	'ؤ': {0xFE85, 0xFE86, 0, 0},
	'إ': {0xFE87, 0xFE88, 0, 0},
	'ئ': {0xFE89, 0xFE8A, 0xFE8B, 0xFE8C},
	'ا': {0xFE8D, 0xFE8E, 0, 0},
	'ب': {0xFE8F, 0xFE90, 0xFE91, 0xFE92},
	'ة': {0xFE93, 0xFE94, 0, 0},
	'ت': {0xFE95, 0xFE96, 0xFE97, 0xFE98},
	'ث': {0xFE99, 0xFE9A, 0xFE9B, 0xFE9C},
	'ج': {0xFE9D, 0xFE9E, 0xFE9F, 0xFEA0},
	'ح': {0xFEA1, 0xFEA2, 0xFEA3, 0xFEA4},
	'خ': {0xFEA5, 0xFEA6, 0xFEA7, 0xFEA8},
	'د': {0xFEA9, 0xFEAA, 0, 0},
	'ذ': {0xFEAB, 0xFEAC, 0, 0},
	'ر': {0xFEAD, 0xFEAE, 0, 0},
	'ز': {0xFEAF, 0xFEB0, 0, 0},
	'س': {0xFEB1, 0xFEB2, 0xFEB3, 0xFEB4},
	'ش': {0xFEB5, 0xFEB6, 0xFEB7, 0xFEB8},
	'ص': {0xFEB9, 0xFEBA, 0xFEBB, 0xFEBC},
	'ض': {0xFEBD, 0xFEBE, 0xFEBF, 0xFEC0},
	'ط': {0xFEC1, 0xFEC2, 0xFEC3, 0xFEC4},
	'ظ': {0xFEC5, 0xFEC6, 0xFEC7, 0xFEC8},
	'ع': {0xFEC9, 0xFECA, 0xFECB, 0xFECC},
	'غ': {0xFECD, 0xFECE, 0xFECF, 0xFED0},
	'ف': {0xFED1, 0xFED2, 0xFED3, 0xFED4},
	'ق': {0xFED5, 0xFED6, 0xFED7, 0xFED8},
	'ك': {0xFED9, 0xFEDA, 0xFEDB, 0xFEDC},
	'ل': {0xFEDD, 0xFEDE, 0xFEDF, 0xFEE0},
	'م': {0xFEE1, 0xFEE2, 0xFEE3, 0xFEE4},
	'ن': {0xFEE5, 0xFEE6, 0xFEE7, 0xFEE8},
	'ه': {0xFEE9, 0xFEEA, 0xFEEB, 0xFEEC},
	'و': {0xFEED, 0xFEEE, 0, 0},
	'ى': {0xFEEF, 0xFEF0, 0, 0},
	'ي': {0xFEF1, 0xFEF2, 0xFEF3, 0xFEF4},
	'پ': {0xFB56, 0xFB57, 0xFB58, 0xFB59},
	'چ': {0xFB7A, 0xFB7B, 0xFB7C, 0xFB7D},
	'ژ': {0xFB8A, 0xFB8B, 0, 0},
	'ک': {0xFB8E, 0xFB8F, 0xFB90, 0xFB91},
	'گ': {0xFB92, 0xFB93, 0xFB94, 0xFB95},
	'ی': {0xFBFC, 0xFBFD, 0xFBFE, 0xFBFF},
}

const zwnj = '\u200c'

func joinsBoth(r rune) bool {
	f, ok := forms[r]
	return ok && f[2] != 0
}

func joinsPrev(r rune) bool {
	f, ok := forms[r]
	return ok && f[1] != 0
}

// shape replaces Arabic-script letters with their contextual presentation
// forms and drops zero-width non-joiners.
func shape(runes []rune) []rune {
	out := make([]rune, 0, len(runes))
	for i, r := range runes {
		if r == zwnj {
			continue
		}
		f, ok := forms[r]
		if !ok {
			out = append(out, r)
			continue
		}
		prev := i > 0 && joinsBoth(runes[i-1]) && joinsPrev(r)
		next := i+1 < len(runes) && joinsBoth(r) && joinsPrev(runes[i+1])
		switch {
		case prev && next:
			out = append(out, f[3])
		case next:
			out = append(out, f[2])
		case prev:
			out = append(out, f[1])
		default:
			out = append(out, f[0])
		}
	}
	return out
}

func isArabic(r rune) bool {
	return unicode.Is(unicode.Arabic, r) && !unicode.IsDigit(r)
}

func isLTR(r rune) bool {
	return unicode.IsDigit(r) || (r < unicode.MaxASCII && unicode.IsLetter(r))
}

// Label turns a logical-order string into the left-to-right glyph order
// the chart renderer draws. Strings without Arabic-script letters are
// returned unchanged; otherwise runs of Latin letters and digits keep
// their order and everything else is reversed.
func Label(s string) string {
	runes := []rune(s)
	if !slices.ContainsFunc(runes, isArabic) {
		return s
	}
	runes = shape(runes)

	var segments [][]rune
	for i := 0; i < len(runes); i++ {
		if !isLTR(runes[i]) {
			segments = append(segments, runes[i:i+1])
			continue
		}
		j := i + 1
		for j < len(runes) {
			if isLTR(runes[j]) {
				j++
				continue
			}
			// Separators inside numbers such as 1400-1401 or 12.5.
			if j+1 < len(runes) && isLTR(runes[j+1]) && (runes[j] == '-' || runes[j] == '.' || runes[j] == '/' || runes[j] == ':') {
				j += 2
				continue
			}
			break
		}
		segments = append(segments, runes[i:j])
		i = j - 1
	}
	slices.Reverse(segments)

	out := make([]rune, 0, len(runes))
	for _, seg := range segments {
		out = append(out, seg...)
	}
	return string(out)
}
