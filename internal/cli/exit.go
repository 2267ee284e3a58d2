package cli

import (
	"errors"
	"fmt"
)

// Коды завершения
const (
	ExitSuccess   = 0
	ExitFailure   = 1 // фатальная ошибка: конфигурация, БД, выборка ордеров
	ExitRunErrors = 2 // проход завершён, но есть ошибки ордеров или он прерван (--fail-on-errors)
)

// ExitError - ошибка с кодом завершения процесса
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError создаёт ExitError без причины
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError оборачивает err с кодом завершения
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode извлекает код завершения; для прочих ошибок ExitFailure
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
