package pii

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMasks(t *testing.T) {
	tests := []struct {
		name  string
		mask  MaskFunc
		input string
		want  string
	}{
		{"phone", MaskPhone, "9876543210", "98XXXXXX10"},
		{"national id contiguous", MaskNationalID, "123456789012", "1234 XXXX XXXX"},
		{"national id grouped", MaskNationalID, "1234 5678 9012", "1234 XXXX XXXX"},
		{"passport", MaskPassport, "A1234567", "AXXXXXXX"},
		{"handle", MaskHandle, "user@ybl", "uXXr@ybl"},
		{"email", MaskHandle, "john.doe@example.com", "jXXXXXXe@example.com"},
		{"email two char local", MaskHandle, "ab@x.com", "XX@x.com"},
		{"email one char local", MaskHandle, "a@x.com", "XX@x.com"},
		{"ip", MaskIP, "192.168.1.10", "192.168.XXX.XXX"},
		{"ip three parts", MaskIP, "1.2.3", MaskedIPFallback},
		{"ip bad octet", MaskIP, "300.1.2.3", MaskedIPFallback},
		{"ip five parts", MaskIP, "10.0.0.1.5", MaskedIPFallback},
		{"ip letters in host octets", MaskIP, "1.2.a.b", MaskedIPFallback},
		{"ip bad host octet", MaskIP, "1.2.3.999", MaskedIPFallback},
		{"ip already masked", MaskIP, "1.2.XXX.XXX", "1.2.XXX.XXX"},
		{"ip fallback", MaskIP, MaskedIPFallback, MaskedIPFallback},
		{"name", MaskName, "Jane Smith", "JXXX SXXXX"},
		{"name single letters", MaskName, "A B", "X X"},
		{"name collapses whitespace", MaskName, "  Jane   Smith ", "JXXX SXXXX"},
		{"token", MaskToken, "Jane", "JXXX"},
		{"token single char", MaskToken, "J", "X"},
		{"token non ascii", MaskToken, "Ñandú", "ÑXXXX"},
		{"name part", MaskNamePart, "Smith", "SXXXX"},
		{"name part single char", MaskNamePart, "J", "J"},
		{"name part empty", MaskNamePart, "", ""},
		{"digits", MaskDigits, "12 Oak Street, 560001", "XX Oak Street, XXXXXX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mask(tt.input))
		})
	}
}

func TestMaskPhone_KeepsEdges(t *testing.T) {
	for _, in := range []string{"9876543210", "0000000000", "1234567890"} {
		got := MaskPhone(in)
		assert.Equal(t, in[:2], got[:2])
		assert.Equal(t, in[8:], got[8:])
		assert.Equal(t, 6, strings.Count(got[2:8], MaskChar))
	}
}

func TestMasks_Idempotent(t *testing.T) {
	tests := []struct {
		name  string
		mask  MaskFunc
		input string
	}{
		{"phone", MaskPhone, "9876543210"},
		{"national id", MaskNationalID, "1234 5678 9012"},
		{"passport", MaskPassport, "A1234567"},
		{"handle", MaskHandle, "user@ybl"},
		{"email", MaskHandle, "ab@x.com"},
		{"ip", MaskIP, "192.168.1.10"},
		{"ip malformed", MaskIP, "1.2.a.b"},
		{"name", MaskName, "Jane Smith"},
		{"name part", MaskNamePart, "Jane"},
		{"token", MaskToken, "J"},
		{"digits", MaskDigits, "Plot 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := tt.mask(tt.input)
			assert.Equal(t, once, tt.mask(once))
		})
	}
}
