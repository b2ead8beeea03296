// Package status defines the error taxonomy of the property object runtime
// and converts wrapped errors into code/message pairs at the public edge.
package status

import "errors"

// Code is the stable numeric identity of an outcome.
type Code int

// Outcome codes. Success and Ignored both count as success.
const (
	CodeSuccess Code = iota
	CodeIgnored
	CodeArgumentNull
	CodeNotFound
	CodeAlreadyExists
	CodeAccessDenied
	CodeFrozen
	CodeInvalidType
	CodeInvalidParameter
	CodeOutOfRange
	CodeInvalidState
	CodeNoInterface
	CodeCoerceFailed
	CodeValidateFailed
	CodeGeneral
)

var codeNames = map[Code]string{
	CodeSuccess:          "Success",
	CodeIgnored:          "Ignored",
	CodeArgumentNull:     "ArgumentNull",
	CodeNotFound:         "NotFound",
	CodeAlreadyExists:    "AlreadyExists",
	CodeAccessDenied:     "AccessDenied",
	CodeFrozen:           "Frozen",
	CodeInvalidType:      "InvalidType",
	CodeInvalidParameter: "InvalidParameter",
	CodeOutOfRange:       "OutOfRange",
	CodeInvalidState:     "InvalidState",
	CodeNoInterface:      "NoInterface",
	CodeCoerceFailed:     "CoerceFailed",
	CodeValidateFailed:   "ValidateFailed",
	CodeGeneral:          "GeneralError",
}

// String returns the name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// sentinelCodes is checked in order; the first match wins.
var sentinelCodes = []struct {
	err  error
	code Code
}{
	{ErrIgnored, CodeIgnored},
	{ErrArgumentNull, CodeArgumentNull},
	{ErrNotFound, CodeNotFound},
	{ErrAlreadyExists, CodeAlreadyExists},
	{ErrAccessDenied, CodeAccessDenied},
	{ErrFrozen, CodeFrozen},
	{ErrInvalidType, CodeInvalidType},
	{ErrInvalidParameter, CodeInvalidParameter},
	{ErrOutOfRange, CodeOutOfRange},
	{ErrInvalidState, CodeInvalidState},
	{ErrNoInterface, CodeNoInterface},
	{ErrCoerceFailed, CodeCoerceFailed},
	{ErrValidateFailed, CodeValidateFailed},
	{ErrGeneral, CodeGeneral},
}

// Of returns the code of err. Errors outside the taxonomy map to CodeGeneral.
func Of(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return CodeGeneral
}

// Status is the code/message pair handed across the public boundary.
type Status struct {
	Code    Code   `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

// FromError converts err into a Status.
func FromError(err error) Status {
	code := Of(err)
	s := Status{Code: code, Name: code.String()}
	if err != nil {
		s.Message = err.Error()
	}
	return s
}

// OK reports whether the status counts as success.
func (s Status) OK() bool {
	return s.Code == CodeSuccess || s.Code == CodeIgnored
}

// IsSuccess reports whether err is nil or ErrIgnored.
func IsSuccess(err error) bool {
	return err == nil || errors.Is(err, ErrIgnored)
}

// IgnoreIgnored maps ErrIgnored to nil and passes everything else through.
func IgnoreIgnored(err error) error {
	if errors.Is(err, ErrIgnored) {
		return nil
	}
	return err
}
