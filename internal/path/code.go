package path

import (
	"errors"
	"fmt"
)

// Code is a small integer result code shared by the path container, the
// search engine and the request coordinator. Zero means success and is never
// returned as an error; callers receive nil instead.
type Code int16

const (
	CodeOK                   Code = 0
	ErrInvalidPointer        Code = -1
	ErrStorageFull           Code = -2
	ErrIncorrectPointsNumber Code = -3
	ErrEmptyPath             Code = -4
	ErrBadLoopsSetting       Code = -5
	ErrBadDirectionSetting   Code = -6
	ErrPathNotCreated        Code = -7
	ErrInvalidOrigin         Code = -8
	ErrInvalidDestination    Code = -9
	ErrPathNotFound          Code = -10
	ErrTimeout               Code = -11
	ErrMemory                Code = -12
	ErrFile                  Code = -20
)

var codeNames = map[Code]string{
	CodeOK:                   "ok",
	ErrInvalidPointer:        "invalid pointer",
	ErrStorageFull:           "storage full",
	ErrIncorrectPointsNumber: "incorrect points number",
	ErrEmptyPath:             "empty path",
	ErrBadLoopsSetting:       "bad loops setting",
	ErrBadDirectionSetting:   "bad direction setting",
	ErrPathNotCreated:        "path not created",
	ErrInvalidOrigin:         "invalid origin",
	ErrInvalidDestination:    "invalid destination",
	ErrPathNotFound:          "path not found",
	ErrTimeout:               "timeout",
	ErrMemory:                "memory",
	ErrFile:                  "file",
}

// Error implements error.
func (c Code) Error() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("path code %d", int16(c))
}

// String reports the human readable name of the code.
func (c Code) String() string {
	return c.Error()
}

// CodeOf maps an error onto its integer result code. A nil error is CodeOK;
// errors that do not wrap a Code report ErrFile.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var code Code
	if errors.As(err, &code) {
		return code
	}
	return ErrFile
}

// IsTerminal reports whether err ends a search. Timeout is a continuation
// signal and therefore not terminal.
func IsTerminal(err error) bool {
	return err != nil && !errors.Is(err, ErrTimeout)
}
