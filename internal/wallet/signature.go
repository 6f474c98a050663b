package wallet

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"lensfrens/go-backend/pkg/models"
)

const signatureLength = 65

// Signature is a secp256k1 signature split into the components a contract
// expects for ecrecover.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// SplitSignature decomposes a 65-byte signature, normalising V to 27/28.
func SplitSignature(sig []byte) (Signature, error) {
	if len(sig) != signatureLength {
		return Signature{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	v := sig[crypto.RecoveryIDOffset]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return Signature{}, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig[crypto.RecoveryIDOffset])
	}
	var out Signature
	out.V = v
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])
	return out, nil
}

// RecoverMessageSigner returns the address that produced a personal_sign
// signature over text.
func RecoverMessageSigner(text string, sig []byte) (common.Address, error) {
	return recoverSigner(accounts.TextHash([]byte(text)), sig)
}

func RecoverTypedDataSigner(typedData models.TypedData, sig []byte) (common.Address, error) {
	hash, err := TypedDataHash(typedData)
	if err != nil {
		return common.Address{}, err
	}
	return recoverSigner(hash, sig)
}

func recoverSigner(hash, sig []byte) (common.Address, error) {
	split, err := SplitSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	raw := make([]byte, signatureLength)
	copy(raw[:32], split.R[:])
	copy(raw[32:64], split.S[:])
	raw[crypto.RecoveryIDOffset] = split.V - 27
	pub, err := crypto.SigToPub(hash, raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// TypedDataHash computes the EIP-712 digest of the API payload. The API omits
// the EIP712Domain type, so it is rebuilt from the populated domain fields.
func TypedDataHash(typedData models.TypedData) ([]byte, error) {
	converted, err := ToAPITypedData(typedData)
	if err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(converted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTypedData, err)
	}
	return hash, nil
}

func ToAPITypedData(typedData models.TypedData) (apitypes.TypedData, error) {
	primary := typedData.PrimaryTypeName()
	if primary == "" {
		return apitypes.TypedData{}, fmt.Errorf("%w: missing primary type", ErrInvalidTypedData)
	}
	if _, ok := typedData.Types[primary]; !ok {
		return apitypes.TypedData{}, fmt.Errorf("%w: primary type %q is not declared", ErrInvalidTypedData, primary)
	}

	types := apitypes.Types{}
	for name, fields := range typedData.Types {
		converted := make([]apitypes.Type, 0, len(fields))
		for _, field := range fields {
			converted = append(converted, apitypes.Type{Name: field.Name, Type: field.Type})
		}
		types[name] = converted
	}
	if _, ok := types["EIP712Domain"]; !ok {
		types["EIP712Domain"] = domainType(typedData.Domain)
	}

	message := make(apitypes.TypedDataMessage, len(typedData.Types[primary]))
	for _, field := range typedData.Types[primary] {
		value, ok := typedData.Value[field.Name]
		if !ok {
			return apitypes.TypedData{}, fmt.Errorf("%w: missing value for %s", ErrInvalidTypedData, field.Name)
		}
		message[field.Name] = normalizeMessageValue(value)
	}

	domain := apitypes.TypedDataDomain{
		Name:              typedData.Domain.Name,
		Version:           typedData.Domain.Version,
		VerifyingContract: typedData.Domain.VerifyingContract,
	}
	if typedData.Domain.ChainID != 0 {
		domain.ChainId = math.NewHexOrDecimal256(typedData.Domain.ChainID)
	}
	return apitypes.TypedData{
		Types:       types,
		PrimaryType: primary,
		Domain:      domain,
		Message:     message,
	}, nil
}

func domainType(domain models.TypedDataDomain) []apitypes.Type {
	out := make([]apitypes.Type, 0, 4)
	if domain.Name != "" {
		out = append(out, apitypes.Type{Name: "name", Type: "string"})
	}
	if domain.Version != "" {
		out = append(out, apitypes.Type{Name: "version", Type: "string"})
	}
	if domain.ChainID != 0 {
		out = append(out, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	if domain.VerifyingContract != "" {
		out = append(out, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	return out
}

func normalizeMessageValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		return v.String()
	case *big.Int:
		return v.String()
	case float64:
		if v == float64(int64(v)) {
			return new(big.Int).SetInt64(int64(v)).String()
		}
		return v
	case string:
		return strings.TrimSpace(v)
	default:
		return v
	}
}
