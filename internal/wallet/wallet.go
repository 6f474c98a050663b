package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"lensfrens/go-backend/pkg/models"
)

// PassphraseFunc resolves the passphrase used when a connection is requested
// on a locked wallet.
type PassphraseFunc func() (string, error)

// HDWallet is a local BIP-39/BIP-44 wallet that plays the role of the injected
// browser provider: it exposes connected accounts and signs messages, typed
// data and transactions with the unlocked account key.
type HDWallet struct {
	mu         sync.RWMutex
	vault      *SeedVault
	index      uint32
	passphrase PassphraseFunc
	key        *ecdsa.PrivateKey
	account    Account
}

func New(vaultPath string, index uint32, passphrase PassphraseFunc) *HDWallet {
	return &HDWallet{
		vault:      NewSeedVault(vaultPath),
		index:      index,
		passphrase: passphrase,
	}
}

func (w *HDWallet) Vault() *SeedVault {
	return w.vault
}

// Create generates a new mnemonic, stores it and unlocks the wallet.
func (w *HDWallet) Create(passphrase string) (string, Account, error) {
	mnemonic, err := w.vault.Create(passphrase)
	if err != nil {
		return "", Account{}, err
	}
	if err := w.Unlock(passphrase); err != nil {
		return "", Account{}, err
	}
	return mnemonic, w.Account(), nil
}

func (w *HDWallet) Import(mnemonic, passphrase string) (Account, error) {
	if err := w.vault.Import(mnemonic, passphrase); err != nil {
		return Account{}, err
	}
	if err := w.Unlock(passphrase); err != nil {
		return Account{}, err
	}
	return w.Account(), nil
}

func (w *HDWallet) Unlock(passphrase string) error {
	seed, err := w.vault.Seed(passphrase)
	if err != nil {
		return err
	}
	defer zeroBytes(seed)
	path := DerivationPath(w.index)
	key, err := DeriveKey(seed, path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.key = key
	w.account = Account{
		Address: crypto.PubkeyToAddress(key.PublicKey),
		Index:   w.index,
		Path:    path.String(),
	}
	return nil
}

func (w *HDWallet) Lock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.key = nil
	w.account = Account{}
}

func (w *HDWallet) Unlocked() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.key != nil
}

func (w *HDWallet) Account() Account {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.account
}

// ListAccounts returns the already connected accounts without prompting.
func (w *HDWallet) ListAccounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return nil, nil
	}
	return []common.Address{w.account.Address}, nil
}

// RequestAccounts connects the wallet, unlocking it with the configured
// passphrase when needed.
func (w *HDWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if connected, err := w.ListAccounts(ctx); err != nil || len(connected) > 0 {
		return connected, err
	}
	if !w.vault.Exists() {
		return nil, ErrWalletNotInitialized
	}
	if w.passphrase == nil {
		return nil, ErrPassphraseRequired
	}
	passphrase, err := w.passphrase()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrPassphraseRequired
	}
	if err := w.Unlock(passphrase); err != nil {
		return nil, err
	}
	return w.ListAccounts(ctx)
}

// SignMessage produces an EIP-191 personal_sign signature over text.
func (w *HDWallet) SignMessage(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.signHash(accounts.TextHash([]byte(text)))
}

// SignTypedData produces an EIP-712 signature over the typed data payload.
func (w *HDWallet) SignTypedData(ctx context.Context, typedData models.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := TypedDataHash(typedData)
	if err != nil {
		return nil, err
	}
	return w.signHash(hash)
}

func (w *HDWallet) From() common.Address {
	return w.Account().Address
}

func (w *HDWallet) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.RLock()
	key := w.key
	w.mu.RUnlock()
	if key == nil {
		return nil, ErrWalletLocked
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
}

func (w *HDWallet) signHash(hash []byte) ([]byte, error) {
	w.mu.RLock()
	key := w.key
	w.mu.RUnlock()
	if key == nil {
		return nil, ErrWalletLocked
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
