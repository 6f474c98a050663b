package lenshub

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var testLensHub = common.HexToAddress("0x60Ae865ee4C725cd04353b5AAb364553f56ceF82")

type fakeBackend struct {
	chainID  int64
	nonce    uint64
	baseFee  *big.Int
	tip      *big.Int
	price    *big.Int
	gas      uint64
	sent     []*types.Transaction
	calls    []ethereum.CallMsg
	sendErr  error
	chainIDs int
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	f.chainIDs++
	return big.NewInt(f.chainID), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return f.tip, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return f.price, nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.calls = append(f.calls, msg)
	return f.gas, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

type keySigner struct {
	key *ecdsa.PrivateKey
}

func (s keySigner) From() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s keySigner) SignTx(_ context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

func newTestContract(t *testing.T, backend *fakeBackend) (*Contract, keySigner) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := keySigner{key: key}
	contract, err := New(backend, signer, Options{Address: testLensHub, ChainID: 80001})
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}
	return contract, signer
}

func testSig() EIP712Signature {
	var r, s [32]byte
	r[31] = 1
	s[31] = 2
	return EIP712Signature{V: 27, R: r, S: s, Deadline: big.NewInt(1700000000)}
}

func TestPostWithSigBuildsDynamicFeeTx(t *testing.T) {
	backend := &fakeBackend{chainID: 80001, nonce: 7, baseFee: big.NewInt(30), tip: big.NewInt(2), gas: 100000}
	contract, signer := newTestContract(t, backend)

	data := PostWithSigData{
		ProfileID:       big.NewInt(1),
		ContentURI:      "ipfs://bafkreitest",
		CollectModule:   common.HexToAddress("0x0BE6bD7092ee83D44a6eC1D949626FeE48caB30c"),
		ReferenceModule: common.HexToAddress("0x0"),
		Sig:             testSig(),
	}
	hash, err := contract.PostWithSig(context.Background(), data)
	if err != nil {
		t.Fatalf("post with sig: %v", err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one transaction, got %d", len(backend.sent))
	}
	tx := backend.sent[0]
	if tx.Hash() != hash {
		t.Fatalf("returned hash %s does not match sent tx %s", hash, tx.Hash())
	}
	if tx.Type() != types.DynamicFeeTxType {
		t.Fatalf("expected dynamic fee tx, got type %d", tx.Type())
	}
	if tx.To() == nil || *tx.To() != testLensHub {
		t.Fatalf("unexpected recipient %v", tx.To())
	}
	if tx.Nonce() != 7 || tx.Gas() != 120000 {
		t.Fatalf("unexpected nonce=%d gas=%d", tx.Nonce(), tx.Gas())
	}
	if tx.GasTipCap().Int64() != 2 || tx.GasFeeCap().Int64() != 62 {
		t.Fatalf("unexpected fees tip=%s cap=%s", tx.GasTipCap(), tx.GasFeeCap())
	}

	data.CollectModuleInitData = []byte{}
	data.ReferenceModuleInitData = []byte{}
	want, err := contract.abi.Pack("postWithSig", data)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(tx.Data(), want) {
		t.Fatal("transaction input does not match packed postWithSig call")
	}
	if !bytes.Equal(tx.Data()[:4], contract.abi.Methods["postWithSig"].ID) {
		t.Fatal("unexpected method selector")
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(80001)), tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if sender != signer.From() {
		t.Fatalf("unexpected sender %s", sender.Hex())
	}
	if backend.calls[0].From != signer.From() || *backend.calls[0].To != testLensHub {
		t.Fatalf("unexpected estimate call: %#v", backend.calls[0])
	}
}

func TestSetDispatcherWithSigLegacyFallback(t *testing.T) {
	backend := &fakeBackend{chainID: 80001, nonce: 1, price: big.NewInt(50), gas: 50000}
	contract, _ := newTestContract(t, backend)

	data := SetDispatcherWithSigData{
		ProfileID:  big.NewInt(1),
		Dispatcher: common.HexToAddress("0x6C1e1bC39b13f9E0Af9424D76De899203F47755F"),
		Sig:        testSig(),
	}
	if _, err := contract.SetDispatcherWithSig(context.Background(), data); err != nil {
		t.Fatalf("set dispatcher with sig: %v", err)
	}
	tx := backend.sent[0]
	if tx.Type() != types.LegacyTxType || tx.GasPrice().Int64() != 50 {
		t.Fatalf("expected legacy tx at price 50, got type=%d price=%s", tx.Type(), tx.GasPrice())
	}
	if !bytes.Equal(tx.Data()[:4], contract.abi.Methods["setDispatcherWithSig"].ID) {
		t.Fatal("unexpected method selector")
	}
}

func TestChainMismatchIsChecked(t *testing.T) {
	backend := &fakeBackend{chainID: 137, gas: 1, baseFee: big.NewInt(1), tip: big.NewInt(1)}
	contract, _ := newTestContract(t, backend)

	data := SetDispatcherWithSigData{ProfileID: big.NewInt(1), Sig: testSig()}
	for i := 0; i < 2; i++ {
		if _, err := contract.SetDispatcherWithSig(context.Background(), data); !errors.Is(err, ErrChainMismatch) {
			t.Fatalf("expected ErrChainMismatch, got %v", err)
		}
	}
	if backend.chainIDs != 1 {
		t.Fatalf("chain id should be queried once, got %d", backend.chainIDs)
	}
	if len(backend.sent) != 0 {
		t.Fatal("no transaction must be sent on chain mismatch")
	}
}

func TestSendErrorIsReturned(t *testing.T) {
	backend := &fakeBackend{chainID: 80001, baseFee: big.NewInt(1), tip: big.NewInt(1), gas: 1, sendErr: errors.New("nonce too low")}
	contract, _ := newTestContract(t, backend)

	if _, err := contract.PostWithSig(context.Background(), PostWithSigData{ProfileID: big.NewInt(1), ContentURI: "ipfs://x", Sig: testSig()}); err == nil {
		t.Fatal("expected send error")
	}
}

func TestDryRunSignsWithoutSending(t *testing.T) {
	backend := &fakeBackend{chainID: 80001, nonce: 3, baseFee: big.NewInt(10), tip: big.NewInt(1), gas: 1000}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	contract, err := New(backend, keySigner{key: key}, Options{Address: testLensHub, ChainID: 80001, DryRun: true})
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}

	hash, err := contract.PostWithSig(context.Background(), PostWithSigData{ProfileID: big.NewInt(1), ContentURI: "ipfs://x", Sig: testSig()})
	if err != nil {
		t.Fatalf("post with sig: %v", err)
	}
	if hash == (common.Hash{}) {
		t.Fatal("dry run must still return the signed transaction hash")
	}
	if len(backend.sent) != 0 {
		t.Fatalf("dry run must not send, got %d transactions", len(backend.sent))
	}
}

func TestMissingArgumentsRejected(t *testing.T) {
	contract, _ := newTestContract(t, &fakeBackend{chainID: 80001})
	if _, err := contract.PostWithSig(context.Background(), PostWithSigData{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := New(nil, nil, Options{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPostDataFromTypedData(t *testing.T) {
	value := map[string]any{
		"nonce":                   float64(0),
		"deadline":                float64(1700000000),
		"profileId":               "0x2a",
		"contentURI":              "ipfs://bafkreitest",
		"collectModule":           "0x0BE6bD7092ee83D44a6eC1D949626FeE48caB30c",
		"collectModuleInitData":   "0x0000000000000000000000000000000000000000000000000000000000000000",
		"referenceModule":         "0x0000000000000000000000000000000000000000",
		"referenceModuleInitData": "0x",
	}
	sig := testSig()
	data, err := PostDataFromTypedData(value, sig.V, sig.R, sig.S)
	if err != nil {
		t.Fatalf("post data: %v", err)
	}
	if data.ProfileID.Int64() != 42 || data.Sig.Deadline.Int64() != 1700000000 {
		t.Fatalf("unexpected numbers: profile=%s deadline=%s", data.ProfileID, data.Sig.Deadline)
	}
	if len(data.CollectModuleInitData) != 32 || len(data.ReferenceModuleInitData) != 0 {
		t.Fatalf("unexpected init data lengths %d/%d", len(data.CollectModuleInitData), len(data.ReferenceModuleInitData))
	}
	if data.ContentURI != "ipfs://bafkreitest" || data.Sig.V != 27 {
		t.Fatalf("unexpected data: %#v", data)
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{name: "missing deadline", mutate: func(m map[string]any) { delete(m, "deadline") }},
		{name: "bad address", mutate: func(m map[string]any) { m["collectModule"] = "nope" }},
		{name: "bad init data", mutate: func(m map[string]any) { m["collectModuleInitData"] = "0xzz" }},
		{name: "fractional deadline", mutate: func(m map[string]any) { m["deadline"] = 1.5 }},
		{name: "empty content uri", mutate: func(m map[string]any) { m["contentURI"] = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			broken := make(map[string]any, len(value))
			for k, v := range value {
				broken[k] = v
			}
			tc.mutate(broken)
			if _, err := PostDataFromTypedData(broken, sig.V, sig.R, sig.S); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestSetDispatcherDataFromTypedData(t *testing.T) {
	value := map[string]any{
		"profileId":  "0x01",
		"dispatcher": "0x6C1e1bC39b13f9E0Af9424D76De899203F47755F",
		"deadline":   "1700000000",
	}
	sig := testSig()
	data, err := SetDispatcherDataFromTypedData(value, sig.V, sig.R, sig.S)
	if err != nil {
		t.Fatalf("dispatcher data: %v", err)
	}
	if data.ProfileID.Int64() != 1 || data.Dispatcher != common.HexToAddress("0x6C1e1bC39b13f9E0Af9424D76De899203F47755F") {
		t.Fatalf("unexpected data: %#v", data)
	}
}
