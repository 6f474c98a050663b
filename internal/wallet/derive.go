package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

// DerivationPath returns the Ethereum BIP-44 path m/44'/60'/0'/0/index.
func DerivationPath(index uint32) accounts.DerivationPath {
	path := make(accounts.DerivationPath, len(accounts.DefaultBaseDerivationPath))
	copy(path, accounts.DefaultBaseDerivationPath)
	path[len(path)-1] = index
	return path
}

// DeriveKey walks a BIP-32 path from a BIP-39 seed and returns the secp256k1 key.
func DeriveKey(seed []byte, path accounts.DerivationPath) (*ecdsa.PrivateKey, error) {
	// The network only selects extended-key version bytes, which are never
	// serialized here.
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("%w: master key: %v", ErrInvalidDerivation, err)
	}
	for _, idx := range path {
		child, err := key.Derive(idx)
		key.Zero()
		if err != nil {
			return nil, fmt.Errorf("%w: child %d: %v", ErrInvalidDerivation, idx, err)
		}
		key = child
	}
	defer key.Zero()

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDerivation, err)
	}
	raw := priv.Serialize()
	defer zeroBytes(raw)
	ecdsaKey, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDerivation, err)
	}
	return ecdsaKey, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
