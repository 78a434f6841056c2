// Package pii classifies flat records for personally identifiable information
// and masks the sensitive values it finds.
//
// Classification is routed by field name: strong identifier fields (phone,
// national ID, passport, payment handle) flag a record on their own, weak
// signal fields (name, email, address, device/IP) flag it only when two
// different categories co-occur, and every other string field is scanned as
// free text for embedded strong identifiers.
package pii

// PIIType labels what kind of sensitive value a detection found.
type PIIType string

const (
	PIITypePhone         PIIType = "phone"
	PIITypeNationalID    PIIType = "national_id"
	PIITypePassport      PIIType = "passport"
	PIITypePaymentHandle PIIType = "payment_handle"
	PIITypeEmail         PIIType = "email"
	PIITypeIPAddress     PIIType = "ip_address"
	PIITypePostalCode    PIIType = "postal_code"
	PIITypeFullName      PIIType = "full_name"
	PIITypeNamePart      PIIType = "name_part"
	PIITypeAddress       PIIType = "address"
	PIITypeDeviceID      PIIType = "device_id"
)

// Match is one occurrence of a pattern inside a string.
type Match struct {
	Type  PIIType
	Start int // byte offset of the first matched byte
	End   int // byte offset one past the last matched byte
	Text  string
	// Payload is the part of Text that the mask is computed from. It equals
	// Text except for phone numbers, where it is the bare 10-digit number.
	Payload string
}

// Signal is one of the weak-signal categories tallied per record.
type Signal string

const (
	SignalFullName   Signal = "full_name"
	SignalEmail      Signal = "email"
	SignalAddress    Signal = "address"
	SignalDeviceOrIP Signal = "device_or_ip"

	// first_name and last_name feed SignalFullName once both have fired.
	signalFirstName Signal = "first_name"
	signalLastName  Signal = "last_name"
)

// Tally records which weak-signal categories fired while processing one record.
//
// A first_name or last_name field on its own is a single token and does not
// identify anyone, so the two together count as one FullName signal and
// neither counts alone.
type Tally struct {
	FullName   bool
	Email      bool
	Address    bool
	DeviceOrIP bool

	firstName bool
	lastName  bool
}

// Mark sets the slot for s.
func (t *Tally) Mark(s Signal) {
	switch s {
	case SignalFullName:
		t.FullName = true
	case SignalEmail:
		t.Email = true
	case SignalAddress:
		t.Address = true
	case SignalDeviceOrIP:
		t.DeviceOrIP = true
	case signalFirstName:
		t.firstName = true
		t.FullName = t.FullName || t.lastName
	case signalLastName:
		t.lastName = true
		t.FullName = t.FullName || t.firstName
	}
}

// Count returns how many distinct weak-signal categories fired.
func (t Tally) Count() int {
	n := 0
	for _, b := range []bool{t.FullName, t.Email, t.Address, t.DeviceOrIP} {
		if b {
			n++
		}
	}
	return n
}

// Signals lists the categories that fired, in a fixed order.
func (t Tally) Signals() []Signal {
	var out []Signal
	if t.FullName {
		out = append(out, SignalFullName)
	}
	if t.Email {
		out = append(out, SignalEmail)
	}
	if t.Address {
		out = append(out, SignalAddress)
	}
	if t.DeviceOrIP {
		out = append(out, SignalDeviceOrIP)
	}
	return out
}

// MinWeakSignals is the number of distinct weak categories that flag a record.
const MinWeakSignals = 2

// Verdict applies the combinatorial rule.
func Verdict(strong bool, t Tally) bool {
	return strong || t.Count() >= MinWeakSignals
}
