package pii

import (
	"regexp"
)

// Matcher finds every non-overlapping occurrence of one identifier format,
// scanning left to right.
type Matcher interface {
	Type() PIIType
	FindAll(s string) []Match
}

// regexMatcher covers formats that need only ASCII word boundaries.
type regexMatcher struct {
	typ     PIIType
	pattern *regexp.Regexp
}

func (m regexMatcher) Type() PIIType { return m.typ }

func (m regexMatcher) FindAll(s string) []Match {
	locs := m.pattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		text := s[loc[0]:loc[1]]
		out = append(out, Match{Type: m.typ, Start: loc[0], End: loc[1], Text: text, Payload: text})
	}
	return out
}

var (
	// Passport: Q, X and Z are never issued as the leading letter.
	passportPattern = regexp.MustCompile(`\b[A-PR-WYa-pr-wy][0-9]{7}\b`)

	paymentHandlePattern = regexp.MustCompile(`\b[a-zA-Z0-9._-]{2,}@[a-z]{2,20}\b`)

	emailPattern = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[A-Za-z]{2,}\b`)

	ipv4Pattern = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9]?[0-9])\b`)
)

// PassportMatcher matches a letter followed by exactly 7 digits as a whole token.
func PassportMatcher() Matcher { return regexMatcher{typ: PIITypePassport, pattern: passportPattern} }

// PaymentHandleMatcher matches local@handle with a 2-20 letter lowercase handle.
func PaymentHandleMatcher() Matcher {
	return regexMatcher{typ: PIITypePaymentHandle, pattern: paymentHandlePattern}
}

// EmailMatcher matches local@domain.tld.
func EmailMatcher() Matcher { return regexMatcher{typ: PIITypeEmail, pattern: emailPattern} }

// IPv4Matcher matches dotted quads whose octets are all in 0-255.
func IPv4Matcher() Matcher { return regexMatcher{typ: PIITypeIPAddress, pattern: ipv4Pattern} }

// digitScanner covers the formats whose boundary rule is "no digit directly
// before or after", which RE2 cannot express without lookaround.
type digitScanner struct {
	typ PIIType
	// at reports whether a match starts at i and returns its end and the
	// offset where the payload starts.
	at func(s string, i int) (end, payloadStart int, ok bool)
}

func (m digitScanner) Type() PIIType { return m.typ }

func (m digitScanner) FindAll(s string) []Match {
	var out []Match
	for i := 0; i < len(s); {
		if i > 0 && isDigit(s[i-1]) {
			i++
			continue
		}
		end, payload, ok := m.at(s, i)
		if !ok {
			i++
			continue
		}
		out = append(out, Match{Type: m.typ, Start: i, End: end, Text: s[i:end], Payload: s[payload:end]})
		i = end
	}
	return out
}

// PhoneMatcher matches an optional +91 / 91 prefix (any dashes or spaces may
// follow it) and then exactly 10 digits. The payload is the 10 digits.
func PhoneMatcher() Matcher { return digitScanner{typ: PIITypePhone, at: phoneAt} }

func phoneAt(s string, i int) (int, int, bool) {
	j := i
	if j < len(s) && s[j] == '+' {
		j++
	}
	if j+1 < len(s) && s[j] == '9' && s[j+1] == '1' {
		k := j + 2
		for k < len(s) && (s[k] == '-' || isSpace(s[k])) {
			k++
		}
		if end, ok := exactDigits(s, k, 10); ok {
			return end, k, true
		}
	}
	if end, ok := exactDigits(s, i, 10); ok {
		return end, i, true
	}
	return 0, 0, false
}

// NationalIDMatcher matches 12 digits, optionally grouped 4-4-4 by single
// whitespace characters.
func NationalIDMatcher() Matcher { return digitScanner{typ: PIITypeNationalID, at: nationalIDAt} }

func nationalIDAt(s string, i int) (int, int, bool) {
	k := i
	for group := 0; group < 3; group++ {
		if group > 0 && k < len(s) && isSpace(s[k]) {
			k++
		}
		for n := 0; n < 4; n++ {
			if k >= len(s) || !isDigit(s[k]) {
				return 0, 0, false
			}
			k++
		}
	}
	if k < len(s) && isDigit(s[k]) {
		return 0, 0, false
	}
	return k, i, true
}

// PostalCodeMatcher matches a run of exactly 6 digits.
func PostalCodeMatcher() Matcher { return digitScanner{typ: PIITypePostalCode, at: postalCodeAt} }

func postalCodeAt(s string, i int) (int, int, bool) {
	end, ok := exactDigits(s, i, 6)
	return end, i, ok
}

// exactDigits reports whether s[k:k+n] is all digits and is not followed by
// another digit.
func exactDigits(s string, k, n int) (int, bool) {
	if k+n > len(s) {
		return 0, false
	}
	for p := k; p < k+n; p++ {
		if !isDigit(s[p]) {
			return 0, false
		}
	}
	if k+n < len(s) && isDigit(s[k+n]) {
		return 0, false
	}
	return k + n, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
