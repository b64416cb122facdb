package domain

import "fmt"

// Problem is the uniform error shape returned by the API and produced for
// every transport failure on the client side.
type Problem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (p *Problem) Error() string {
	if p.Status == 0 {
		return fmt.Sprintf("%s: %s", p.ID, p.Detail)
	}
	return fmt.Sprintf("%s (%d): %s", p.ID, p.Status, p.Detail)
}

// ServerSide reports whether the problem should be shown with error severity.
func (p *Problem) ServerSide() bool {
	return p.Status >= 500
}

// Well-known problem identifiers produced on the client side.
const (
	ProblemTimeout    = "TimeoutExceeded"
	ProblemUnknown    = "unknown"
	ProblemValidation = "Validation"
)
