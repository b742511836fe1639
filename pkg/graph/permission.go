package graph

import "time"

// Verb is the HTTP-shaped verb a Permission applies to (spec §3).
type Verb int

const (
	VerbAny Verb = iota
	VerbGET
	VerbPOST
	VerbPUT
	VerbDELETE
	VerbPATCH
	VerbHEAD
	VerbOPTIONS
)

func (v Verb) String() string {
	switch v {
	case VerbAny:
		return "*"
	case VerbGET:
		return "GET"
	case VerbPOST:
		return "POST"
	case VerbPUT:
		return "PUT"
	case VerbDELETE:
		return "DELETE"
	case VerbPATCH:
		return "PATCH"
	case VerbHEAD:
		return "HEAD"
	case VerbOPTIONS:
		return "OPTIONS"
	default:
		return "UNKNOWN"
	}
}

// ParseVerb maps a wire/REST verb string to a Verb, defaulting to
// VerbAny for "*" or "".
func ParseVerb(s string) (Verb, bool) {
	switch s {
	case "", "*":
		return VerbAny, true
	case "GET":
		return VerbGET, true
	case "POST":
		return VerbPOST, true
	case "PUT":
		return VerbPUT, true
	case "DELETE":
		return VerbDELETE, true
	case "PATCH":
		return VerbPATCH, true
	case "HEAD":
		return VerbHEAD, true
	case "OPTIONS":
		return VerbOPTIONS, true
	default:
		return VerbAny, false
	}
}

// Polarity is mutually exclusive: a Permission either grants or denies.
type Polarity int

const (
	Grant Polarity = iota
	Deny
)

func (p Polarity) String() string {
	if p == Deny {
		return "Deny"
	}
	return "Grant"
}

// Scheme classifies a permission's origin. Inheritance is computed by
// the resolver's ancestor walk, so this package never creates an
// Inherited or Pattern permission itself. AttachPermission does not
// reject those values either: a permission keeps whatever Scheme its
// caller set, and only Explicit permissions take part in the
// ConflictingPolarity check.
type Scheme int

const (
	Explicit Scheme = iota
	Inherited
	Pattern
)

func (s Scheme) String() string {
	switch s {
	case Explicit:
		return "Explicit"
	case Inherited:
		return "Inherited"
	case Pattern:
		return "Pattern"
	default:
		return "Unknown"
	}
}

// Permission is attached to exactly one Entity (spec §3).
type Permission struct {
	ID       int
	EntityID int
	URI      string
	Verb     Verb
	Polarity Polarity
	Scheme   Scheme
	Expiry   *time.Time
}

// Expired reports whether p has an expiry set in the past relative to
// now.
func (p *Permission) Expired(now time.Time) bool {
	return p.Expiry != nil && p.Expiry.Before(now)
}
