package wallet

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidMnemonic      = errors.New("invalid mnemonic")
	ErrInvalidPassphrase    = errors.New("invalid passphrase")
	ErrPassphraseRequired   = errors.New("passphrase is required")
	ErrMnemonicRequired     = errors.New("mnemonic is required")
	ErrPassphraseLocked     = errors.New("passphrase attempts are temporarily locked")
	ErrWalletNotInitialized = errors.New("wallet is not initialized")
	ErrWalletExists         = errors.New("wallet already exists")
	ErrWalletLocked         = errors.New("wallet is locked")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrInvalidTypedData     = errors.New("invalid typed data")
	ErrInvalidDerivation    = errors.New("invalid key derivation")
)

// Account is one derived address of the HD wallet.
type Account struct {
	Address common.Address `json:"address"`
	Index   uint32         `json:"index"`
	Path    string         `json:"path"`
}
