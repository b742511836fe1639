package resolver

import "strings"

// matchScore weights per spec §4.3's specificity ordering: exact
// literal segments outrank everything else, {param} placeholders rank
// below literal (DESIGN.md #3), a single-segment wildcard ranks below
// that, and a tail wildcard contributes nothing — so "exact > longer
// prefix > shorter prefix > wildcard only" falls out of simple
// summation, and literal-segment count naturally breaks ties between
// two prefix matches of different length.
const (
	weightLiteral = 1000
	weightParam   = 10
	weightStar    = 1
	weightTail    = 0
)

// matchPattern reports whether pattern matches uri, per spec §4.3:
// segments split on '/'; a literal segment matches its exact string
// case-sensitively; '*' matches any single segment; '**' matches one or
// more trailing segments and must be the final pattern segment;
// '{name}' matches any single segment and binds it. On a match it
// returns a specificity score (higher is more specific) and the
// {name}->segment bindings.
func matchPattern(pattern, uri string) (matched bool, specificity int, bindings map[string]string) {
	pSeg := splitURI(pattern)
	uSeg := splitURI(uri)
	bindings = map[string]string{}

	for i, seg := range pSeg {
		if seg == "**" {
			if i != len(pSeg)-1 {
				return false, 0, nil // '**' only valid as the final segment
			}
			if len(uSeg)-i < 1 {
				return false, 0, nil // must match >=1 trailing segment
			}
			return true, specificity, bindings
		}

		if i >= len(uSeg) {
			return false, 0, nil
		}
		u := uSeg[i]

		switch {
		case seg == "*":
			specificity += weightStar
		case isParam(seg):
			bindings[paramName(seg)] = u
			specificity += weightParam
		default:
			if seg != u {
				return false, 0, nil
			}
			specificity += weightLiteral
		}
	}

	if len(pSeg) != len(uSeg) {
		return false, 0, nil
	}
	return true, specificity, bindings
}

func isParam(seg string) bool {
	return len(seg) >= 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func paramName(seg string) string {
	return seg[1 : len(seg)-1]
}

func splitURI(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}
