package lensfrens

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"lensfrens/go-backend/pkg/models"
)

// countingBackend answers chain reads and records broadcasts.
type countingBackend struct {
	mu   sync.Mutex
	sent int
}

func (b *countingBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(80001), nil
}

func (b *countingBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 4, nil
}

func (b *countingBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(30)}, nil
}

func (b *countingBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(2), nil
}

func (b *countingBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(32), nil
}

func (b *countingBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 200000, nil
}

func (b *countingBackend) SendTransaction(context.Context, *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent++
	return nil
}

const postTypedDataResponse = `{"createPostTypedData":{"id":"typed-1","expiresAt":"2030-01-01T00:00:00Z","typedData":{
"types":{"PostWithSig":[
 {"name":"profileId","type":"uint256"},{"name":"contentURI","type":"string"},
 {"name":"collectModule","type":"address"},{"name":"collectModuleInitData","type":"bytes"},
 {"name":"referenceModule","type":"address"},{"name":"referenceModuleInitData","type":"bytes"},
 {"name":"nonce","type":"uint256"},{"name":"deadline","type":"uint256"}]},
"domain":{"name":"Lens Protocol Profiles","chainId":80001,"version":"1","verifyingContract":"0x60Ae865ee4C725cd04353b5AAb364553f56ceF82"},
"value":{"nonce":0,"deadline":1700000000,"profileId":"0x01","contentURI":"ipfs://bafkreitest",
 "collectModule":"0x0BE6bD7092ee83D44a6eC1D949626FeE48caB30c",
 "collectModuleInitData":"0x0000000000000000000000000000000000000000000000000000000000000000",
 "referenceModule":"0x0000000000000000000000000000000000000000","referenceModuleInitData":"0x"}}}}`

func newLensAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	responses := map[string]string{
		"defaultProfile(":              `{"defaultProfile":{"id":"0x01","handle":"alice.test"}}`,
		"challenge(":                   `{"challenge":{"text":"sign in"}}`,
		"authenticate(":                `{"authenticate":{"accessToken":"acc","refreshToken":"ref"}}`,
		"validatePublicationMetadata(": `{"validatePublicationMetadata":{"valid":true}}`,
		"profile(":                     `{"profile":{"id":"0x01","dispatcher":null}}`,
		"createPostTypedData(":         postTypedDataResponse,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		for field, data := range responses {
			if strings.Contains(req.Query, field) {
				_, _ = w.Write([]byte(`{"data":` + data + `}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDryRunPublishNeverBroadcasts(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.URL = newLensAPIServer(t).URL
	cfg.Wallet.Passphrase = "correct horse"
	if _, _, err := NewWallet(cfg).Create(cfg.Wallet.Passphrase); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	backend := &countingBackend{}
	rt, err := Build(context.Background(), cfg, BuildOptions{Logger: quietLogger(), Backend: backend, DryRun: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	if _, err := rt.Controller.RequestConnection(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := rt.Controller.Login(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}
	result, err := rt.Controller.Publish(ctx, models.DraftPost{Text: "gm"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.TxHash == "" || result.TxHash == (common.Hash{}).Hex() {
		t.Fatalf("dry run must report the signed transaction hash, got %+v", result)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.sent != 0 {
		t.Fatalf("dry run broadcast %d transactions", backend.sent)
	}
}
