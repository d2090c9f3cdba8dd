package tiler

import "fmt"

// ValidationError reports a missing or unreadable input before any output
// has been produced.
type ValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExternalToolError reports a raster engine subprocess exiting non-zero.
type ExternalToolError struct {
	Stage    string
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s: %s exited with code %d: %s", e.Stage, e.Tool, e.ExitCode, firstLine(e.Stderr))
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// ParseError reports engine output that could not be interpreted.
type ParseError struct {
	Stage  string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse %q: %s", e.Stage, firstLine(e.Input), e.Reason)
}

// IOError reports a filesystem failure outside the tolerated cleanup paths.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
