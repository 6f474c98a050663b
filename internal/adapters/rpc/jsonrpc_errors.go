package rpc

import (
	"lensfrens/go-backend/internal/workflow"
)

const (
	codeParseError         = -32700
	codeInvalidRequest     = -32600
	codeMethodNotFound     = -32601
	codeInvalidParams      = -32602
	codeServiceUnavailable = -32099

	codeAPIError        = -32010
	codeWalletError     = -32020
	codeStorageError    = -32030
	codeChainError      = -32040
	codeValidationError = -32050
)

func rpcInvalidParams() *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "invalid params"}
}

// rpcServiceError maps a workflow error category to its RPC code. Partial
// results travel in Data so callers can see orphaned uploads.
func rpcServiceError(err error, partial any) *rpcError {
	code := codeAPIError
	switch workflow.ErrorCategory(err) {
	case workflow.ErrorCategoryWallet:
		code = codeWalletError
	case workflow.ErrorCategoryStorage:
		code = codeStorageError
	case workflow.ErrorCategoryChain:
		code = codeChainError
	case workflow.ErrorCategoryValidation:
		code = codeValidationError
	}
	return &rpcError{Code: code, Message: err.Error(), Data: partial}
}

func callService(call func() (any, error)) (any, *rpcError) {
	result, err := call()
	if err != nil {
		return nil, rpcServiceError(err, result)
	}
	return result, nil
}
