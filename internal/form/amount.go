package form

import "strings"

// SanitizeAmount strips everything but digits and decimal points from a
// keystroke result. It reports false when the text would hold more than one
// decimal point, in which case the keystroke must be ignored.
func SanitizeAmount(text string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, text)
	if strings.Count(cleaned, ".") > 1 {
		return "", false
	}
	return cleaned, true
}

// ApplyAmountInput updates the amount field with typed text, leaving it
// untouched when the keystroke is rejected.
func (f *Form) ApplyAmountInput(text string) bool {
	cleaned, ok := SanitizeAmount(text)
	if !ok {
		return false
	}
	f.Amount = cleaned
	return true
}
