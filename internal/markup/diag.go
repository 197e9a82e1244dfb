package markup

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// contextRadius is the number of lines shown on each side of the failing line.
const contextRadius = 5

// ContextLine is one line of the sanitized input around a parse failure.
type ContextLine struct {
	Number  int    `json:"number"`
	Text    string `json:"text"`
	Failing bool   `json:"failing,omitempty"`
}

// ParseError describes where the recovery parser gave up.
type ParseError struct {
	Offset  int64         `json:"offset"`
	Line    int           `json:"line"`
	Column  int           `json:"column"`
	Message string        `json:"message"`
	Context []ContextLine `json:"context"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse markup: line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Is lets errors.Is(err, ErrRecoveryParseFailed) match any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrRecoveryParseFailed
}

// Diagnostic renders the context window with the failing line marked and a
// caret under the failing column.
func (e *ParseError) Diagnostic() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", e.Error())
	for _, l := range e.Context {
		marker := "   "
		if l.Failing {
			marker = ">>>"
		}
		prefix := fmt.Sprintf("%s %5d: ", marker, l.Number)
		fmt.Fprintf(&b, "%s%s\n", prefix, l.Text)
		if l.Failing {
			b.WriteString(strings.Repeat(" ", len(prefix)+caretOffset(l.Text, e.Column)))
			b.WriteString("^\n")
		}
	}
	return b.String()
}

// caretOffset converts a 1-based byte column into a display offset, counting
// tabs as four cells.
func caretOffset(line string, column int) int {
	n := column - 1
	if n < 0 {
		n = 0
	}
	if n > len(line) {
		n = len(line)
	}
	head := line[:n]
	return utf8.RuneCountInString(head) + 3*strings.Count(head, "\t")
}

func newParseError(text string, offset int64, line, column int, msg string) *ParseError {
	lines := strings.Split(text, "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	lo := max(1, line-contextRadius)
	hi := min(len(lines), line+contextRadius)

	ctx := make([]ContextLine, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		ctx = append(ctx, ContextLine{
			Number:  n,
			Text:    strings.TrimRight(lines[n-1], "\r"),
			Failing: n == line,
		})
	}
	return &ParseError{
		Offset:  offset,
		Line:    line,
		Column:  column,
		Message: msg,
		Context: ctx,
	}
}
