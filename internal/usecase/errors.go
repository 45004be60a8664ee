package usecase

import "errors"

const (
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidStatus = "INVALID_STATUS"
	CodeTerminalState = "TERMINAL_STATE"
	CodeValidation    = "VALIDATION_ERROR"

	CodeDatabase = "DATABASE_ERROR"
)

// DomainError é erro do chamador: nunca é repetido automaticamente.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

func hasCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

func IsInvalidStatus(err error) bool {
	return hasCode(err, CodeInvalidStatus)
}

func IsTerminalState(err error) bool {
	return hasCode(err, CodeTerminalState)
}

func IsValidationError(err error) bool {
	return hasCode(err, CodeValidation)
}

func NewNotFoundError(message string, err error) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: message, Err: err}
}

func NewInvalidStatusError(status string) *DomainError {
	return &DomainError{Code: CodeInvalidStatus, Message: "status inválido: " + status}
}

func NewTerminalStateError(status string) *DomainError {
	return &DomainError{Code: CodeTerminalState, Message: "lead encerrado (" + status + ") não pode mudar de status"}
}

func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// TechnicalError é falha de infraestrutura (banco, fila).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}
