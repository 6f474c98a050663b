package workflow

import (
	"errors"
	"strings"
)

var (
	ErrNotConnected     = errors.New("wallet is not connected")
	ErrNoAccounts       = errors.New("wallet exposes no accounts")
	ErrNoProfile        = errors.New("address has no default profile")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEmptyDraft       = errors.New("post text is empty")
	ErrInvalidMetadata  = errors.New("publication metadata is invalid")
	ErrInvalidTypedData = errors.New("typed data payload is invalid")
)

const (
	ErrorCategoryAPI        = "api"
	ErrorCategoryWallet     = "wallet"
	ErrorCategoryStorage    = "storage"
	ErrorCategoryChain      = "chain"
	ErrorCategoryValidation = "validation"
)

// CategorizedError tags an operation failure with the collaborator that
// produced it.
type CategorizedError struct {
	Category string
	Err      error
}

func (e *CategorizedError) Error() string {
	return e.Err.Error()
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

func normalizeErrorCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case ErrorCategoryWallet:
		return ErrorCategoryWallet
	case ErrorCategoryStorage:
		return ErrorCategoryStorage
	case ErrorCategoryChain:
		return ErrorCategoryChain
	case ErrorCategoryValidation:
		return ErrorCategoryValidation
	default:
		return ErrorCategoryAPI
	}
}

// WrapCategorizedError keeps an existing category when err is already
// categorized.
func WrapCategorizedError(category string, err error) error {
	if err == nil {
		return nil
	}
	var existing *CategorizedError
	if errors.As(err, &existing) {
		return err
	}
	return &CategorizedError{
		Category: normalizeErrorCategory(category),
		Err:      err,
	}
}

func ErrorCategory(err error) string {
	var classified *CategorizedError
	if errors.As(err, &classified) {
		return normalizeErrorCategory(classified.Category)
	}
	return ErrorCategoryAPI
}
