package ledger

import "fmt"

// Error codes surfaced by contract operations
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeAuthorization = "AUTHORIZATION_ERROR"
	CodeNotFound      = "ENTITY_NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeStore         = "STORE_ERROR"
)

// ContractError represents a failed contract operation. The transaction
// carrying the operation is aborted; no partial writes survive.
type ContractError struct {
	Code    string
	Message string
	Detail  string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
}

// NewValidationError reports malformed or out-of-range input
func NewValidationError(message, detail string) *ContractError {
	return &ContractError{Code: CodeValidation, Message: message, Detail: detail}
}

// NewAuthorizationError reports a caller whose role or hierarchy rank does
// not permit the requested action
func NewAuthorizationError(message, detail string) *ContractError {
	return &ContractError{Code: CodeAuthorization, Message: message, Detail: detail}
}

// NewNotFoundError reports a referenced entity key that is absent from the store
func NewNotFoundError(message, detail string) *ContractError {
	return &ContractError{Code: CodeNotFound, Message: message, Detail: detail}
}

// NewConflictError reports a concurrent modification or an attempt to
// re-deliver an already delivered shipment
func NewConflictError(message, detail string) *ContractError {
	return &ContractError{Code: CodeConflict, Message: message, Detail: detail}
}

func newStoreError(detail string) *ContractError {
	return &ContractError{Code: CodeStore, Message: "Store error occurred", Detail: detail}
}

// AsContractError unwraps err into a *ContractError, wrapping unknown
// errors under the store error code
func AsContractError(err error) *ContractError {
	if err == nil {
		return nil
	}
	if cerr, ok := err.(*ContractError); ok {
		return cerr
	}
	return newStoreError(err.Error())
}
