package pii

import (
	"strings"
	"unicode"
)

// addressKeywords are street-level words that mark a value as a postal address.
var addressKeywords = map[string]struct{}{
	"street": {}, "st": {}, "road": {}, "rd": {}, "lane": {}, "ln": {},
	"avenue": {}, "ave": {}, "block": {}, "sector": {}, "phase": {},
	"layout": {}, "plot": {}, "house": {}, "hno": {}, "apartment": {},
	"apt": {}, "society": {}, "near": {}, "behind": {}, "opp": {},
	"village": {}, "taluk": {}, "district": {},
}

// IsFullName reports whether s has at least two tokens containing a letter.
// Tokens are separated by whitespace or commas.
func IsFullName(s string) bool {
	tokens := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	n := 0
	for _, t := range tokens {
		if strings.IndexFunc(t, unicode.IsLetter) >= 0 {
			n++
			if n >= 2 {
				return true
			}
		}
	}
	return false
}

// LooksLikeAddress reports whether s contains an address keyword as a whole
// word, or a 6-digit postal code.
//
// Each whitespace chunk is checked both split on punctuation ("Sector-21"
// yields "sector") and with punctuation removed ("H.No." yields "hno").
func LooksLikeAddress(s string) bool {
	for _, chunk := range strings.Fields(strings.ToLower(s)) {
		compact := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, chunk)
		if isAddressKeyword(compact) {
			return true
		}
		for _, word := range strings.FieldsFunc(chunk, notAlnum) {
			if isAddressKeyword(word) {
				return true
			}
		}
	}
	return len(PostalCodeMatcher().FindAll(s)) > 0
}

func isAddressKeyword(w string) bool {
	_, ok := addressKeywords[w]
	return ok
}

func notAlnum(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }

// MinDeviceIDLength is the number of word characters a device identifier needs.
const MinDeviceIDLength = 12

// IsDeviceID reports whether s has at least MinDeviceIDLength letters, digits
// or underscores.
func IsDeviceID(s string) bool {
	n := 0
	for _, r := range s {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
			if n >= MinDeviceIDLength {
				return true
			}
		}
	}
	return false
}
