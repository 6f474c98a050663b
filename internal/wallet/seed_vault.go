package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"lensfrens/go-backend/internal/securestore"

	"github.com/tyler-smith/go-bip39"
)

const (
	seedPurpose        = "wallet-seed"
	defaultEntropyBits = 256
)

type seedFile struct {
	Mnemonic string `json:"mnemonic"`
}

// SeedVault keeps the wallet mnemonic encrypted on disk and rate-limits wrong
// passphrases.
type SeedVault struct {
	mu             sync.Mutex
	path           string
	failedAttempts int
	lockedUntil    time.Time
	now            func() time.Time
}

func NewSeedVault(path string) *SeedVault {
	return &SeedVault{path: strings.TrimSpace(path), now: time.Now}
}

func (v *SeedVault) Exists() bool {
	_, err := os.Stat(v.path)
	return err == nil
}

func (v *SeedVault) Create(passphrase string) (string, error) {
	if strings.TrimSpace(passphrase) == "" {
		return "", ErrPassphraseRequired
	}
	entropy, err := bip39.NewEntropy(defaultEntropyBits)
	if err != nil {
		return "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", err
	}
	if err := v.Import(mnemonic, passphrase); err != nil {
		return "", err
	}
	return mnemonic, nil
}

func (v *SeedVault) Import(mnemonic, passphrase string) error {
	mnemonic = normalizeMnemonic(mnemonic)
	if mnemonic == "" {
		return ErrMnemonicRequired
	}
	if strings.TrimSpace(passphrase) == "" {
		return ErrPassphraseRequired
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return ErrInvalidMnemonic
	}
	if v.Exists() {
		return ErrWalletExists
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return securestore.WriteJSON(v.path, passphrase, seedPurpose, seedFile{Mnemonic: mnemonic})
}

// Seed decrypts the mnemonic and returns the BIP-39 seed bytes.
func (v *SeedVault) Seed(passphrase string) ([]byte, error) {
	mnemonic, err := v.Export(passphrase)
	if err != nil {
		return nil, err
	}
	return bip39.NewSeed(mnemonic, ""), nil
}

func (v *SeedVault) Export(passphrase string) (string, error) {
	if strings.TrimSpace(passphrase) == "" {
		return "", ErrPassphraseRequired
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ensureUnlocked(); err != nil {
		return "", err
	}
	var stored seedFile
	if err := securestore.ReadJSON(v.path, passphrase, seedPurpose, &stored); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrWalletNotInitialized
		}
		if errors.Is(err, securestore.ErrAuthFailed) {
			v.onFailedAttempt()
			return "", ErrInvalidPassphrase
		}
		return "", err
	}
	v.resetAttempts()

	mnemonic := normalizeMnemonic(stored.Mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", fmt.Errorf("%w: corrupted mnemonic", ErrInvalidMnemonic)
	}
	return mnemonic, nil
}

func (v *SeedVault) ChangePassphrase(oldPassphrase, newPassphrase string) error {
	if strings.TrimSpace(oldPassphrase) == "" || strings.TrimSpace(newPassphrase) == "" {
		return ErrPassphraseRequired
	}
	mnemonic, err := v.Export(oldPassphrase)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return securestore.WriteJSON(v.path, newPassphrase, seedPurpose, seedFile{Mnemonic: mnemonic})
}

func (v *SeedVault) ensureUnlocked() error {
	if v.lockedUntil.IsZero() {
		return nil
	}
	if v.now().Before(v.lockedUntil) {
		return ErrPassphraseLocked
	}
	return nil
}

func (v *SeedVault) onFailedAttempt() {
	v.failedAttempts++
	v.lockedUntil = v.now().Add(failedAttemptBackoff(v.failedAttempts))
}

func (v *SeedVault) resetAttempts() {
	v.failedAttempts = 0
	v.lockedUntil = time.Time{}
}

func failedAttemptBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// 1s, 2s, 4s... up to 32s max.
	shift := attempt - 1
	if shift > 5 {
		shift = 5
	}
	return time.Second * time.Duration(1<<shift)
}

func normalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}
