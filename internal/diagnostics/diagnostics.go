package diagnostics

import (
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

// Weaving diagnostics. Reported as errors they exclude the declaration they
// are attached to; W005 and W010 are reported as warnings.
const (
	ErrW001 ErrorCode = "W001" // Cyclic layer ordering constraints
	ErrW002 ErrorCode = "W002" // Ambiguous invocation target
	ErrW003 ErrorCode = "W003" // Unresolvable base target
	ErrW004 ErrorCode = "W004" // Template authored for another accessor kind
	ErrW005 ErrorCode = "W005" // Template expansion failure
	ErrW006 ErrorCode = "W006" // Conflicting introduction
	ErrW007 ErrorCode = "W007" // Transformation inner to the layer that introduces the member
	ErrW008 ErrorCode = "W008" // Duplicate transformation for (layer, accessor)
	ErrW009 ErrorCode = "W009" // Unknown declaration or type
	ErrW010 ErrorCode = "W010" // Unreachable link dropped
	ErrW011 ErrorCode = "W011" // Invalid proceed request
	ErrW012 ErrorCode = "W012" // Unresolved invoke request left in output
	ErrW013 ErrorCode = "W013" // Emitted member collides with another member of its type
)

// Body parsing and model loading diagnostics. These are always errors.
const (
	ErrP001 ErrorCode = "P001" // Unexpected token
	ErrP002 ErrorCode = "P002" // Invalid assignment target
	ErrP003 ErrorCode = "P003" // Unknown invoke target
	ErrP004 ErrorCode = "P004" // Illegal character or unterminated literal
	ErrM001 ErrorCode = "M001" // Invalid model
)

var errorNames = map[ErrorCode]string{
	ErrW001: "OrderingConflict",
	ErrW002: "AmbiguousInvocationTarget",
	ErrW003: "UnresolvableBaseTarget",
	ErrW004: "IncompatibleAccessorTemplate",
	ErrW005: "TemplateExpansionFailure",
	ErrW006: "IntroductionConflict",
	ErrW007: "TransformationBeforeIntroduction",
	ErrW008: "DuplicateTransformation",
	ErrW009: "UnknownDeclaration",
	ErrW010: "UnreachableLink",
	ErrW011: "InvalidProceed",
	ErrW012: "DanglingInvokeRequest",
	ErrW013: "MemberCollision",
	ErrP001: "UnexpectedToken",
	ErrP002: "InvalidAssignmentTarget",
	ErrP003: "UnknownInvokeTarget",
	ErrP004: "IllegalToken",
	ErrM001: "InvalidModel",
}

// Name returns the descriptive name of the code, e.g. "OrderingConflict".
func (c ErrorCode) Name() string {
	if n, ok := errorNames[c]; ok {
		return n
	}
	return string(c)
}

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// DiagnosticError is a weaving diagnostic attached to a declaration and,
// when known, to the layer whose contribution caused it.
type DiagnosticError struct {
	Code        ErrorCode
	Severity    Severity
	Declaration string // Qualified declaration name, e.g. "Shop.Checkout"
	Layer       string // Layer key, empty when the diagnostic is not layer specific
	Line        int    // Source position for parse diagnostics, 0 otherwise
	Column      int
	Message     string
}

func (e *DiagnosticError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Severity.String())
	sb.WriteString(" ")
	sb.WriteString(string(e.Code))
	if e.Declaration != "" {
		sb.WriteString(" at ")
		sb.WriteString(e.Declaration)
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, ":%d:%d", e.Line, e.Column)
	}
	if e.Layer != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Layer)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// IsError reports whether the diagnostic excludes its declaration.
func (e *DiagnosticError) IsError() bool {
	return e.Severity == SeverityError
}

func NewError(code ErrorCode, decl, layer string, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{
		Code:        code,
		Severity:    SeverityError,
		Declaration: decl,
		Layer:       layer,
		Message:     fmt.Sprintf(format, args...),
	}
}

func NewWarning(code ErrorCode, decl, layer string, format string, args ...interface{}) *DiagnosticError {
	d := NewError(code, decl, layer, format, args...)
	d.Severity = SeverityWarning
	return d
}

// HasErrors reports whether any diagnostic in the list is an error.
func HasErrors(errs []*DiagnosticError) bool {
	for _, e := range errs {
		if e.IsError() {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by declaration, then code, then message so that
// output from parallel weaving is stable.
func Sort(errs []*DiagnosticError) {
	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i], errs[j]
		if a.Declaration != b.Declaration {
			return a.Declaration < b.Declaration
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		return a.Message < b.Message
	})
}
