package latex

import "fmt"

// StructureError reports a document whose body markers are missing or out of
// order. Nothing can be split without a body region.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return "latex structure: " + e.Reason
}

// ParseError reports a math delimiter or brace group still open at end of
// input.
type ParseError struct {
	Offset    int
	Line      int
	Construct string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("latex parse: unterminated %s opened at line %d (offset %d)", e.Construct, e.Line, e.Offset)
}

func newParseError(src string, offset int, construct string) *ParseError {
	return &ParseError{Offset: offset, Line: lineOf(src, offset), Construct: construct}
}

// lineOf returns the 1-based line number containing byte offset.
func lineOf(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	line := 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
		}
	}
	return line
}

// Within returns a copy of e with Offset shifted by base and Line recounted
// against src, for errors raised while parsing a fragment of src that starts
// at byte base.
func (e *ParseError) Within(src string, base int) *ParseError {
	return newParseError(src, e.Offset+base, e.Construct)
}
