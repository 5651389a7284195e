package report

import (
	"fmt"
	"strings"
)

// Rejection is one asset left out of a report.
type Rejection struct {
	Code string
	Err  error
}

// RejectionError lists the assets a report had to skip. The rows of every
// other asset are still returned alongside it.
type RejectionError struct {
	Rejections []Rejection
}

func (e *RejectionError) Error() string {
	parts := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		parts = append(parts, r.Err.Error())
	}
	return fmt.Sprintf("%d asset(s) rejected: %s", len(e.Rejections), strings.Join(parts, "; "))
}

// Unwrap exposes every rejection to errors.Is and errors.As.
func (e *RejectionError) Unwrap() []error {
	errs := make([]error, len(e.Rejections))
	for i, r := range e.Rejections {
		errs[i] = r.Err
	}
	return errs
}

// Codes returns the codes of the rejected assets.
func (e *RejectionError) Codes() []string {
	codes := make([]string, len(e.Rejections))
	for i, r := range e.Rejections {
		codes[i] = r.Code
	}
	return codes
}
