package pii

import (
	"strings"
)

// Category is a field-name classification policy.
type Category string

const (
	CategoryPhone         Category = "phone"
	CategoryNationalID    Category = "national_id"
	CategoryPassport      Category = "passport"
	CategoryPaymentHandle Category = "payment_handle"
	CategoryEmail         Category = "email"
	CategoryFullName      Category = "full_name"
	CategoryFirstName     Category = "first_name"
	CategoryLastName      Category = "last_name"
	CategoryAddress       Category = "address"
	CategoryIPAddress     Category = "ip_address"
	CategoryDeviceID      Category = "device_id"
)

// DefaultRoutes returns the built-in field-name table. Names are matched
// exactly and case-sensitively.
func DefaultRoutes() map[string]Category {
	return map[string]Category{
		"phone":         CategoryPhone,
		"contact":       CategoryPhone,
		"aadhar":        CategoryNationalID,
		"passport":      CategoryPassport,
		"upi_id":        CategoryPaymentHandle,
		"upi":           CategoryPaymentHandle,
		"email":         CategoryEmail,
		"username":      CategoryEmail,
		"name":          CategoryFullName,
		"full_name":     CategoryFullName,
		"first_name":    CategoryFirstName,
		"last_name":     CategoryLastName,
		"address":       CategoryAddress,
		"address_proof": CategoryAddress,
		"ip_address":    CategoryIPAddress,
		"device_id":     CategoryDeviceID,
	}
}

type handlerKind int

const (
	kindStrong handlerKind = iota
	kindWeak
)

// handler is what a routed field runs. apply returns the masked value and the
// number of detections; zero means the handler did not fire.
type handler struct {
	kind   handlerKind
	typ    PIIType
	signal Signal
	apply  func(string) (string, int)
}

func defaultHandlers() map[Category]handler {
	return map[Category]handler{
		CategoryPhone:         strong(Detector{PhoneMatcher(), MaskPhone}),
		CategoryNationalID:    strong(Detector{NationalIDMatcher(), MaskNationalID}),
		CategoryPassport:      strong(Detector{PassportMatcher(), MaskPassport}),
		CategoryPaymentHandle: strong(Detector{PaymentHandleMatcher(), MaskHandle}),
		CategoryEmail:         weakSpans(SignalEmail, Detector{EmailMatcher(), MaskHandle}),
		CategoryIPAddress:     weakWhole(PIITypeIPAddress, SignalDeviceOrIP, matchedBy(IPv4Matcher()), MaskIP),
		CategoryFullName:      weakWhole(PIITypeFullName, SignalFullName, IsFullName, MaskName),
		CategoryFirstName:     weakWhole(PIITypeNamePart, signalFirstName, nonEmpty, MaskNamePart),
		CategoryLastName:      weakWhole(PIITypeNamePart, signalLastName, nonEmpty, MaskNamePart),
		CategoryAddress:       weakWhole(PIITypeAddress, SignalAddress, LooksLikeAddress, MaskDigits),
		CategoryDeviceID:      weakWhole(PIITypeDeviceID, SignalDeviceOrIP, IsDeviceID, MaskDigits),
	}
}

func strong(d Detector) handler {
	return handler{kind: kindStrong, typ: d.Type(), apply: d.Redact}
}

func weakSpans(sig Signal, d Detector) handler {
	return handler{kind: kindWeak, typ: d.Type(), signal: sig, apply: d.Redact}
}

func weakWhole(typ PIIType, sig Signal, test func(string) bool, mask MaskFunc) handler {
	return handler{
		kind:   kindWeak,
		typ:    typ,
		signal: sig,
		apply: func(s string) (string, int) {
			if !test(s) {
				return s, 0
			}
			return mask(s), 1
		},
	}
}

func nonEmpty(s string) bool { return s != "" }

// matchedBy gates a whole-value mask on m finding something in the value.
func matchedBy(m Matcher) func(string) bool {
	return func(s string) bool { return len(m.FindAll(s)) > 0 }
}

// Detector pairs a matcher with the mask applied to each of its matches.
type Detector struct {
	Matcher
	Mask MaskFunc
}

// Redact masks every match in s, leaving the text between matches untouched.
func (d Detector) Redact(s string) (string, int) {
	matches := d.FindAll(s)
	if len(matches) == 0 {
		return s, 0
	}
	var b strings.Builder
	b.Grow(len(s))
	prev := 0
	for _, m := range matches {
		b.WriteString(s[prev:m.Start])
		b.WriteString(d.Mask(m.Payload))
		prev = m.End
	}
	b.WriteString(s[prev:])
	return b.String(), len(matches)
}

// FreeTextDetectors returns the strong-identifier detectors in the order they
// are applied to unrouted fields. Each runs on the output of the previous one.
func FreeTextDetectors() []Detector {
	return []Detector{
		{PhoneMatcher(), MaskPhone},
		{NationalIDMatcher(), MaskNationalID},
		{PassportMatcher(), MaskPassport},
		{PaymentHandleMatcher(), MaskHandle},
		{EmailMatcher(), MaskHandle},
	}
}
