package errtypes

import "strings"

type joinErrors []error

// Join returns an error representing a list of errors, used by bulk
// operations to report every failed op without swallowing detail.
func Join(err ...error) error {
	return joinErrors(err)
}

func (e joinErrors) Error() string {
	var b strings.Builder
	for i, err := range e {
		b.WriteString(err.Error())
		if i != len(e)-1 {
			b.WriteString(", ")
		}
	}
	return b.String()
}
