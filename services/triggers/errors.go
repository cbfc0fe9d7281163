package triggers

import (
	"errors"
	"fmt"
)

// Error codes carried by TriggerError.
const (
	CodeUnknownTrigger   = "unknownTrigger"
	CodeMalformedPayload = "malformedPayload"
)

// TriggerError reports a delivery that could not be handed to a handler at all.
type TriggerError struct {
	Code    string
	Message string
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func unknownTrigger(name string) error {
	return &TriggerError{Code: CodeUnknownTrigger, Message: fmt.Sprintf("no trigger named %q", name)}
}

func malformedPayload(format string, args ...interface{}) error {
	return &TriggerError{Code: CodeMalformedPayload, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is a TriggerError with the given code.
func IsCode(err error, code string) bool {
	var te *TriggerError
	return errors.As(err, &te) && te.Code == code
}
