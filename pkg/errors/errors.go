// Package errors describes failures to decode rule documents
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// DecodeError locates a problem inside a rule document
type DecodeError struct {
	Source    string
	Namespace string
	Group     string
	ruleIndex *int
	Message   string
	cause     error
}

func NewDecodeError(source, msg string) *DecodeError {
	return &DecodeError{
		Source:  source,
		Message: msg,
	}
}

// NewDecodeErrorf creates a DecodeError with a formatted message. A %w argument is
// kept as the cause.
func NewDecodeErrorf(source, format string, args ...any) *DecodeError {
	err := fmt.Errorf(format, args...)
	return &DecodeError{
		Source:  source,
		Message: err.Error(),
		cause:   errors.Unwrap(err),
	}
}

// WrapDecodeError wraps e unless it already is a DecodeError
func WrapDecodeError(source string, e error) *DecodeError {
	if e == nil {
		return nil
	}

	var decodeError *DecodeError
	if errors.As(e, &decodeError) {
		return decodeError
	}

	return &DecodeError{
		Source:  source,
		Message: e.Error(),
		cause:   e,
	}
}

func (e *DecodeError) Error() string {
	path := []string{}
	if e.Namespace != "" {
		path = append(path, fmt.Sprintf("namespace '%s'", e.Namespace))
	}
	if e.Group != "" {
		path = append(path, fmt.Sprintf("group '%s'", e.Group))
	}
	if e.ruleIndex != nil {
		path = append(path, fmt.Sprintf("rule %d", *e.ruleIndex))
	}

	prefix := e.Source
	if len(path) > 0 {
		prefix += " " + strings.Join(path, " -> ")
	}
	if prefix == "" {
		return e.Message
	}
	return prefix + ": " + e.Message
}

func (e *DecodeError) Unwrap() error {
	return e.cause
}

func (e *DecodeError) AddNamespace(namespace string) *DecodeError {
	e.Namespace = namespace
	return e
}

func (e *DecodeError) AddGroup(group string) *DecodeError {
	e.Group = group
	return e
}

func (e *DecodeError) AddRule(index int) *DecodeError {
	e.ruleIndex = &index
	return e
}

// RuleIndex returns the rule position, if one was recorded
func (e *DecodeError) RuleIndex() (int, bool) {
	if e.ruleIndex == nil {
		return 0, false
	}
	return *e.ruleIndex, true
}

func (e *DecodeError) ToHTTPError() *httperror.HTTPError {
	ruleIndex := ""
	if index, ok := e.RuleIndex(); ok {
		ruleIndex = strconv.Itoa(index)
	}
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).AddMetaValue("source", e.Source).AddMetaValue("namespace", e.Namespace).AddMetaValue("group", e.Group).AddMetaValue("rule_index", ruleIndex)
}

func IsDecodeError(err error) bool {
	var decodeError *DecodeError
	return errors.As(err, &decodeError)
}

// AsDecodeError returns the DecodeError in err's chain
func AsDecodeError(err error) (*DecodeError, bool) {
	var decodeError *DecodeError
	ok := errors.As(err, &decodeError)
	return decodeError, ok
}
