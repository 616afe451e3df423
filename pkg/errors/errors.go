// Package errors provides structured error types for the mustachepp engine.
//
// This package defines TemplateError, a single error type that covers
// template syntax errors, conditional-expression validation errors, helper
// failures and configuration errors, with enough metadata for display and
// programmatic handling.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and display.
type ErrorClass string

const (
	ClassConfig     ErrorClass = "config"     // Engine setup
	ClassParse      ErrorClass = "parse"      // Template syntax errors
	ClassValidation ErrorClass = "validation" // Rejected conditional expressions
	ClassEvaluation ErrorClass = "evaluation" // Expression evaluation failures
	ClassUndefined  ErrorClass = "undefined"  // Missing values (strict mode)
	ClassHelper     ErrorClass = "helper"     // Section helper failures
	ClassIO         ErrorClass = "io"         // File operations
)

// TemplateError represents any error raised while compiling or rendering.
type TemplateError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "EXPR-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	File    string         `json:"file,omitempty"`  // Template path (if known)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *TemplateError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *TemplateError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassParse:
		sb.WriteString("Template error")
	case ClassValidation:
		sb.WriteString("Expression error")
	case ClassConfig:
		sb.WriteString("Configuration error")
	default:
		sb.WriteString("Render error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *TemplateError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *TemplateError) WithFile(file string) *TemplateError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *TemplateError) WithPosition(line, column int) *TemplateError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Configuration errors (CONFIG-0xxx)
	// ========================================
	"CONFIG-0001": {
		Class:    ClassConfig,
		Template: "Mustache does not exist.",
		Hints:    []string{"pass a *mustache.Engine to Wrap, or use New"},
	},
	"CONFIG-0002": {
		Class:    ClassConfig,
		Template: "invalid delimiters {{.Open}} {{.Close}}: both must be non-empty and contain no whitespace",
	},

	// ========================================
	// Template syntax errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "unclosed tag, expected '{{.Close}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unclosed section '{{.Name}}'",
		Hints:    []string{"{{.Open}}/{{.Name}}{{.Close}}"},
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unopened section '{{.Name}}'",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "unclosed section '{{.Expected}}', got closing tag '{{.Got}}'",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "invalid set delimiters tag '{{.Tag}}'",
		Hints:    []string{"{{.Open}}=<% %>={{.Close}}"},
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "empty tag name",
	},

	// ========================================
	// Expression validation errors (EXPR-0xxx)
	// ========================================
	"EXPR-0001": {
		Class:    ClassValidation,
		Template: "Conditional expressions cannot contain function calls.",
	},
	"EXPR-0002": {
		Class:    ClassValidation,
		Template: "Conditional expressions cannot contain square brackets.",
	},
	"EXPR-0003": {
		Class:    ClassValidation,
		Template: "Conditional expressions cannot contain curly braces.",
	},
	"EXPR-0004": {
		Class:    ClassValidation,
		Template: "Conditional expressions cannot contain assignment expressions.",
	},

	// ========================================
	// Evaluation errors (EVAL-0xxx)
	// ========================================
	"EVAL-0001": {
		Class:    ClassEvaluation,
		Template: "cannot evaluate '{{.Expression}}': {{.Reason}}",
	},

	// ========================================
	// Undefined errors (UNDEF-0xxx)
	// ========================================
	"UNDEF-0001": {
		Class:    ClassUndefined,
		Template: "failed to lookup {{.Name}}",
	},
	"UNDEF-0002": {
		Class:    ClassUndefined,
		Template: "partial not found: {{.Name}}",
	},

	// ========================================
	// Helper errors (HELPER-0xxx)
	// ========================================
	"HELPER-0001": {
		Class:    ClassHelper,
		Template: "{{.Helper}}: no context frame is registered for the current view",
	},
	"HELPER-0002": {
		Class:    ClassHelper,
		Template: "helper '{{.Name}}' is an alias of '{{.Target}}', which is not registered",
	},
	"HELPER-0003": {
		Class:    ClassHelper,
		Template: "{{.Helper}}: {{.Reason}}",
	},

	// ========================================
	// I/O errors (IO-0xxx)
	// ========================================
	"IO-0001": {
		Class:    ClassIO,
		Template: "failed to read '{{.Path}}': {{.GoError}}",
	},
	"IO-0002": {
		Class:    ClassIO,
		Template: "failed to parse data file '{{.Path}}': {{.GoError}}",
	},
	"IO-0003": {
		Class:    ClassIO,
		Template: "failed to watch '{{.Path}}': {{.GoError}}",
	},
}

// New creates a TemplateError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *TemplateError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &TemplateError{
			Class:   ClassHelper,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &TemplateError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a catalog error with line and column set.
func NewWithPosition(code string, line, column int, data map[string]any) *TemplateError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates an uncatalogued error.
func NewSimple(class ErrorClass, message string) *TemplateError {
	return &TemplateError{
		Class:   class,
		Message: message,
	}
}

// HasCode reports whether err, or any error it wraps, is a TemplateError
// with the given code.
func HasCode(err error, code string) bool {
	var te *TemplateError
	if stderrors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// ClassOf returns the class of the first TemplateError in err's chain, or
// "" if there is none.
func ClassOf(err error) ErrorClass {
	var te *TemplateError
	if stderrors.As(err, &te) {
		return te.Class
	}
	return ""
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, candidate := range sorted {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Short words (1-3): max 1 edit, medium (4-6): 2, longer: 3
	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}

	return bestMatch
}

// NewUnknownAlias creates a HELPER-0002 error with an optional "Did you mean" hint.
func NewUnknownAlias(name, target string, registered []string) *TemplateError {
	err := New("HELPER-0002", map[string]any{"Name": name, "Target": target})
	if suggestion := FindClosestMatch(target, registered); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}
