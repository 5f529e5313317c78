package inputs

import "fmt"

// MalformedInputError reports a structured input file whose content does not
// parse under the format implied by its extension.
type MalformedInputError struct {
	Path   string
	Format string
	Err    error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s input %s: %v", e.Format, e.Path, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}
