package workflow

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"lensfrens/go-backend/internal/contentstore"
	"lensfrens/go-backend/internal/lenshub"
	"lensfrens/go-backend/pkg/models"
)

var (
	testAddress  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	errInjected  = errors.New("injected failure")
	testProfile  = models.Profile{ID: "0x01", Handle: "alice.test"}
	testTxHash   = common.HexToHash("0xabc123")
	testDispAddr = "0x6C1e1bC39b13f9E0Af9424D76De899203F47755F"
)

type fakeWallet struct {
	mu              sync.Mutex
	accounts        []common.Address
	requestAccounts []common.Address
	listErr         error
	signErr         error
	typedErr        error
	signedMessages  []string
	signedTyped     []models.TypedData
}

func (w *fakeWallet) ListAccounts(context.Context) ([]common.Address, error) {
	return w.accounts, w.listErr
}

func (w *fakeWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	if w.listErr != nil {
		return nil, w.listErr
	}
	w.accounts = w.requestAccounts
	return w.requestAccounts, nil
}

func (w *fakeWallet) SignMessage(_ context.Context, text string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.signErr != nil {
		return nil, w.signErr
	}
	w.signedMessages = append(w.signedMessages, text)
	return fakeSignature(), nil
}

func (w *fakeWallet) SignTypedData(_ context.Context, typedData models.TypedData) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.typedErr != nil {
		return nil, w.typedErr
	}
	w.signedTyped = append(w.signedTyped, typedData)
	return fakeSignature(), nil
}

func fakeSignature() []byte {
	sig := make([]byte, 65)
	sig[31] = 1
	sig[63] = 2
	sig[64] = 28
	return sig
}

type fakeAPI struct {
	mu sync.Mutex

	profile     *models.Profile
	profileErr  error
	profileCall int

	challengeErr error
	authErr      error
	authSession  models.Session
	authCalls    []string

	verifyValid   bool
	refreshErr    error
	refreshResult models.Session

	dispatcher     *models.DispatcherStatus
	dispatcherCall int

	validation    models.MetadataValidation
	validationErr error
	validated     []models.Metadata

	dispatcherRequests []models.SetDispatcherRequest
	postRequests       []models.CreatePostRequest
	tokens             []string
}

func newFakeAPI() *fakeAPI {
	p := testProfile
	return &fakeAPI{
		profile:     &p,
		authSession: models.Session{AccessToken: "access", RefreshToken: "refresh"},
		validation:  models.MetadataValidation{Valid: true},
	}
}

func (a *fakeAPI) DefaultProfile(context.Context, string) (*models.Profile, error) {
	a.profileCall++
	return a.profile, a.profileErr
}

func (a *fakeAPI) Challenge(context.Context, string) (string, error) {
	if a.challengeErr != nil {
		return "", a.challengeErr
	}
	return "please sign", nil
}

func (a *fakeAPI) Authenticate(_ context.Context, address, signature string) (models.Session, error) {
	a.authCalls = append(a.authCalls, address+"|"+signature)
	if a.authErr != nil {
		return models.Session{}, a.authErr
	}
	return a.authSession, nil
}

func (a *fakeAPI) VerifyAccessToken(context.Context, string) (bool, error) {
	return a.verifyValid, nil
}

func (a *fakeAPI) RefreshSession(context.Context, string) (models.Session, error) {
	return a.refreshResult, a.refreshErr
}

func (a *fakeAPI) Dispatcher(context.Context, string) (*models.DispatcherStatus, error) {
	a.dispatcherCall++
	return a.dispatcher, nil
}

func (a *fakeAPI) CreateSetDispatcherTypedData(_ context.Context, token string, request models.SetDispatcherRequest) (*models.TypedDataResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = append(a.tokens, token)
	a.dispatcherRequests = append(a.dispatcherRequests, request)
	return &models.TypedDataResult{
		ID: "dispatcher-typed",
		TypedData: models.TypedData{
			PrimaryType: "SetDispatcherWithSig",
			Types: map[string][]models.TypedDataField{
				"SetDispatcherWithSig": {
					{Name: "profileId", Type: "uint256"},
					{Name: "dispatcher", Type: "address"},
					{Name: "nonce", Type: "uint256"},
					{Name: "deadline", Type: "uint256"},
				},
			},
			Value: map[string]any{
				"profileId":  request.ProfileID,
				"dispatcher": testDispAddr,
				"nonce":      float64(0),
				"deadline":   float64(1700000000),
			},
		},
	}, nil
}

func (a *fakeAPI) CreatePostTypedData(_ context.Context, token string, request models.CreatePostRequest) (*models.TypedDataResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = append(a.tokens, token)
	a.postRequests = append(a.postRequests, request)
	return &models.TypedDataResult{
		ID: "post-typed",
		TypedData: models.TypedData{
			PrimaryType: "PostWithSig",
			Types: map[string][]models.TypedDataField{
				"PostWithSig": {{Name: "profileId", Type: "uint256"}, {Name: "contentURI", Type: "string"}},
			},
			Value: map[string]any{
				"profileId":               request.ProfileID,
				"contentURI":              request.ContentURI,
				"collectModule":           "0x0BE6bD7092ee83D44a6eC1D949626FeE48caB30c",
				"collectModuleInitData":   "0x0000000000000000000000000000000000000000000000000000000000000000",
				"referenceModule":         "0x0000000000000000000000000000000000000000",
				"referenceModuleInitData": "0x",
				"nonce":                   float64(1),
				"deadline":                float64(1700000000),
			},
		},
	}, nil
}

func (a *fakeAPI) ValidateMetadata(_ context.Context, metadata models.Metadata) (models.MetadataValidation, error) {
	a.validated = append(a.validated, metadata)
	return a.validation, a.validationErr
}

type fakeHub struct {
	mu             sync.Mutex
	dispatcherSubs []lenshub.SetDispatcherWithSigData
	posts          []lenshub.PostWithSigData
	err            error
}

func (h *fakeHub) SetDispatcherWithSig(_ context.Context, data lenshub.SetDispatcherWithSigData) (common.Hash, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatcherSubs = append(h.dispatcherSubs, data)
	if h.err != nil {
		return common.Hash{}, h.err
	}
	return testTxHash, nil
}

func (h *fakeHub) PostWithSig(_ context.Context, data lenshub.PostWithSigData) (common.Hash, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.posts = append(h.posts, data)
	if h.err != nil {
		return common.Hash{}, h.err
	}
	return testTxHash, nil
}

type fakeSessions struct {
	saved   *models.Session
	saveErr error
	cleared int
}

func (s *fakeSessions) SaveSession(session models.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := session
	s.saved = &cp
	return nil
}

func (s *fakeSessions) LoadSession() (*models.Session, error) {
	if s.saved == nil {
		return nil, nil
	}
	cp := *s.saved
	return &cp, nil
}

func (s *fakeSessions) Clear() error {
	s.cleared++
	s.saved = nil
	return nil
}

// recordingStore wraps a MemoryStore and can fail the n-th upload.
type recordingStore struct {
	*contentstore.MemoryStore
	failAt int
	calls  int
}

func (s *recordingStore) Add(ctx context.Context, name string, r io.Reader) (contentstore.AddResult, error) {
	s.calls++
	if s.failAt > 0 && s.calls == s.failAt {
		return contentstore.AddResult{}, errInjected
	}
	return s.MemoryStore.Add(ctx, name, r)
}

type harness struct {
	wallet   *fakeWallet
	api      *fakeAPI
	store    *recordingStore
	hub      *fakeHub
	sessions *fakeSessions
	metrics  *Metrics
	ctrl     *Controller
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		wallet:   &fakeWallet{accounts: []common.Address{testAddress}, requestAccounts: []common.Address{testAddress}},
		api:      newFakeAPI(),
		store:    &recordingStore{MemoryStore: contentstore.NewMemoryStore()},
		hub:      &fakeHub{},
		sessions: &fakeSessions{},
		metrics:  NewMetrics(nil),
	}
	ctrl, err := New(Deps{
		Wallet:   h.wallet,
		API:      h.api,
		Content:  h.store,
		LensHub:  h.hub,
		Sessions: h.sessions,
		Metrics:  h.metrics,
		NewID:    func() string { return "metadata-1" },
	}, opts)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func (h *harness) ready(ctx context.Context) error {
	if _, err := h.ctrl.Connect(ctx); err != nil {
		return err
	}
	_, err := h.ctrl.Login(ctx)
	return err
}

func bigOne() *big.Int {
	return big.NewInt(1)
}
