package lenshub

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrInvalidArgument = errors.New("lenshub: invalid argument")
	ErrChainMismatch   = errors.New("lenshub: chain id mismatch")
)

// EIP712Signature is the decomposed signature plus deadline the contract
// verifies against the signed typed data.
type EIP712Signature struct {
	V        uint8    `abi:"v"`
	R        [32]byte `abi:"r"`
	S        [32]byte `abi:"s"`
	Deadline *big.Int `abi:"deadline"`
}

type SetDispatcherWithSigData struct {
	ProfileID  *big.Int        `abi:"profileId"`
	Dispatcher common.Address  `abi:"dispatcher"`
	Sig        EIP712Signature `abi:"sig"`
}

type PostWithSigData struct {
	ProfileID               *big.Int        `abi:"profileId"`
	ContentURI              string          `abi:"contentURI"`
	CollectModule           common.Address  `abi:"collectModule"`
	CollectModuleInitData   []byte          `abi:"collectModuleInitData"`
	ReferenceModule         common.Address  `abi:"referenceModule"`
	ReferenceModuleInitData []byte          `abi:"referenceModuleInitData"`
	Sig                     EIP712Signature `abi:"sig"`
}

// SetDispatcherDataFromTypedData builds contract arguments from the typed
// data value the API returned for a SetDispatcherWithSig request.
func SetDispatcherDataFromTypedData(value map[string]any, v uint8, r, s [32]byte) (SetDispatcherWithSigData, error) {
	profileID, err := bigValue(value, "profileId")
	if err != nil {
		return SetDispatcherWithSigData{}, err
	}
	dispatcher, err := addressValue(value, "dispatcher")
	if err != nil {
		return SetDispatcherWithSigData{}, err
	}
	deadline, err := bigValue(value, "deadline")
	if err != nil {
		return SetDispatcherWithSigData{}, err
	}
	return SetDispatcherWithSigData{
		ProfileID:  profileID,
		Dispatcher: dispatcher,
		Sig:        EIP712Signature{V: v, R: r, S: s, Deadline: deadline},
	}, nil
}

// PostDataFromTypedData builds contract arguments from the typed data value
// the API returned for a PostWithSig request.
func PostDataFromTypedData(value map[string]any, v uint8, r, s [32]byte) (PostWithSigData, error) {
	var (
		out PostWithSigData
		err error
	)
	if out.ProfileID, err = bigValue(value, "profileId"); err != nil {
		return PostWithSigData{}, err
	}
	contentURI, ok := value["contentURI"].(string)
	if !ok || strings.TrimSpace(contentURI) == "" {
		return PostWithSigData{}, fmt.Errorf("%w: contentURI", ErrInvalidArgument)
	}
	out.ContentURI = contentURI
	if out.CollectModule, err = addressValue(value, "collectModule"); err != nil {
		return PostWithSigData{}, err
	}
	if out.CollectModuleInitData, err = bytesValue(value, "collectModuleInitData"); err != nil {
		return PostWithSigData{}, err
	}
	if out.ReferenceModule, err = addressValue(value, "referenceModule"); err != nil {
		return PostWithSigData{}, err
	}
	if out.ReferenceModuleInitData, err = bytesValue(value, "referenceModuleInitData"); err != nil {
		return PostWithSigData{}, err
	}
	deadline, err := bigValue(value, "deadline")
	if err != nil {
		return PostWithSigData{}, err
	}
	out.Sig = EIP712Signature{V: v, R: r, S: s, Deadline: deadline}
	return out, nil
}

func bigValue(value map[string]any, key string) (*big.Int, error) {
	raw, ok := value[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidArgument, key)
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = strings.TrimSpace(v)
	case json.Number:
		text = v.String()
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return nil, fmt.Errorf("%w: %s is not an unsigned integer", ErrInvalidArgument, key)
		}
		return new(big.Int).SetUint64(uint64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case *big.Int:
		return new(big.Int).Set(v), nil
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrInvalidArgument, key, raw)
	}
	n, ok := new(big.Int).SetString(text, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, text)
	}
	return n, nil
}

func addressValue(value map[string]any, key string) (common.Address, error) {
	raw, _ := value[key].(string)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, raw)
	}
	return common.HexToAddress(raw), nil
}

func bytesValue(value map[string]any, key string) ([]byte, error) {
	raw, _ := value[key].(string)
	if raw == "" || raw == "0x" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, key, err)
	}
	return b, nil
}
