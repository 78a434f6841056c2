package pii

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaskChar is the substitution character used by every mask.
const MaskChar = "X"

// MaskFunc turns a detected value into its masked form.
type MaskFunc func(string) string

// MaskPhone keeps the first two and last two digits of a 10-digit number.
func MaskPhone(digits string) string {
	rs := []rune(digits)
	if len(rs) < 4 {
		return strings.Repeat(MaskChar, len(rs))
	}
	return string(rs[:2]) + strings.Repeat(MaskChar, 6) + string(rs[len(rs)-2:])
}

// MaskNationalID keeps the first four digits and masks the rest in 4-4-4
// groups, whatever spacing the input used.
func MaskNationalID(s string) string {
	var digits strings.Builder
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			digits.WriteByte(s[i])
		}
	}
	d := digits.String()
	if len(d) > 4 {
		d = d[:4]
	}
	return d + " XXXX XXXX"
}

// MaskPassport keeps the leading letter and masks all 7 digits.
func MaskPassport(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return ""
	}
	return string(r) + strings.Repeat(MaskChar, 7)
}

// MaskHandle masks the part before the first '@' and keeps the rest. It
// serves both payment handles and email addresses.
func MaskHandle(s string) string {
	local, rest, ok := strings.Cut(s, "@")
	if !ok {
		return maskLocal(s)
	}
	return maskLocal(local) + "@" + rest
}

func maskLocal(local string) string {
	rs := []rune(local)
	if len(rs) <= 2 {
		return strings.Repeat(MaskChar, 2)
	}
	return string(rs[0]) + strings.Repeat(MaskChar, len(rs)-2) + string(rs[len(rs)-1])
}

// MaskedIPFallback replaces values that are not a parseable IPv4 address.
const MaskedIPFallback = "0.0.0.0"

// maskedOctet stands in for each of the two hidden octets.
const maskedOctet = "XXX"

// MaskIP keeps the network half of an IPv4 address. Anything other than four
// valid octets becomes MaskedIPFallback. The host octets may already be
// maskedOctet, and the fallback itself is returned as is, so MaskIP is
// idempotent.
func MaskIP(s string) string {
	s = strings.TrimSpace(s)
	if s == MaskedIPFallback {
		return s
	}
	parts := strings.Split(s, ".")
	if len(parts) != 4 || !validOctet(parts[0]) || !validOctet(parts[1]) ||
		!hostOctet(parts[2]) || !hostOctet(parts[3]) {
		return MaskedIPFallback
	}
	return parts[0] + "." + parts[1] + "." + maskedOctet + "." + maskedOctet
}

func hostOctet(p string) bool {
	return p == maskedOctet || validOctet(p)
}

func validOctet(p string) bool {
	if p == "" || len(p) > 3 {
		return false
	}
	n := 0
	for i := 0; i < len(p); i++ {
		if !isDigit(p[i]) {
			return false
		}
		n = n*10 + int(p[i]-'0')
	}
	return n <= 255
}

// MaskName masks every whitespace-separated token, keeping its first letter.
func MaskName(s string) string {
	tokens := strings.Fields(s)
	for i, t := range tokens {
		tokens[i] = MaskToken(t)
	}
	return strings.Join(tokens, " ")
}

// MaskToken keeps the first character and masks the rest. A single character
// becomes a lone mask character.
func MaskToken(s string) string {
	n := utf8.RuneCountInString(s)
	switch n {
	case 0:
		return ""
	case 1:
		return MaskChar
	}
	r, _ := utf8.DecodeRuneInString(s)
	return string(r) + strings.Repeat(MaskChar, n-1)
}

// MaskNamePart keeps the first character of a first or last name and masks
// the rest. Unlike MaskToken, a single character is kept as is.
func MaskNamePart(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return ""
	}
	return string(r) + strings.Repeat(MaskChar, utf8.RuneCountInString(s)-1)
}

// MaskDigits replaces every digit with the mask character and keeps all other
// characters. Used for addresses and device identifiers.
func MaskDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return 'X'
		}
		return r
	}, s)
}
