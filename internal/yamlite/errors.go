package yamlite

import "fmt"

// ErrorKind classifies a parse failure
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota + 1
	ErrIndentation
	ErrTab
	ErrUnterminated
	ErrDuplicateKey
	ErrMultipleDocuments
	ErrAnchor
	ErrAlias
	ErrTag
	ErrMergeKey
)

var errorKindNames = map[ErrorKind]string{
	ErrSyntax:            "syntax",
	ErrIndentation:       "indentation",
	ErrTab:               "tab",
	ErrUnterminated:      "unterminated",
	ErrDuplicateKey:      "duplicate-key",
	ErrMultipleDocuments: "multiple-documents",
	ErrAnchor:            "anchor",
	ErrAlias:             "alias",
	ErrTag:               "tag",
	ErrMergeKey:          "merge-key",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Unsupported reports whether the kind is a valid YAML construct that the
// subset refuses to interpret.
func (k ErrorKind) Unsupported() bool {
	switch k {
	case ErrAnchor, ErrAlias, ErrTag, ErrMergeKey:
		return true
	}
	return false
}

// ParseError is returned for every parse failure
type ParseError struct {
	Kind   ErrorKind
	Source string // file name, empty for in-memory input
	Line   int    // 1-based
	Column int    // 1-based, 0 when unknown
	Msg    string
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.Column > 0 {
		loc = fmt.Sprintf("line %d, column %d", e.Line, e.Column)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s", e.Source, loc, e.Msg)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

func newError(kind ErrorKind, line, col int, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:   kind,
		Line:   line,
		Column: col,
		Msg:    fmt.Sprintf(format, args...),
	}
}
