// Package workflow orchestrates the Lens client flows: wallet connection,
// challenge-response login, dispatcher management and post publishing.
// Operations on a Controller run one at a time.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"lensfrens/go-backend/internal/lenshub"
	"lensfrens/go-backend/internal/wallet"
	"lensfrens/go-backend/pkg/models"
)

const (
	opConnect           = "connect"
	opRequestConnection = "request_connection"
	opLogin             = "login"
	opRestoreSession    = "restore_session"
	opCheckDispatcher   = "check_dispatcher"
	opSetDispatcher     = "set_dispatcher"
	opPublish           = "publish"
)

type Options struct {
	ExternalURLBase             string
	Locale                      string
	MediaAppID                  string
	TextAppID                   string
	DefaultMediaContentType     string
	RequireValidMetadata        bool
	CollectFollowerOnly         bool
	ReferenceFollowerOnly       bool
	RefreshDispatcherBeforePost bool
	DispatcherAddress           string
}

type Deps struct {
	Wallet   Wallet
	API      LensAPI
	Content  ContentStore
	LensHub  LensHub
	Sessions SessionStore
	Metrics  *Metrics
	Events   *EventHub
	Logger   *slog.Logger
	NewID    func() string
}

// State is the view-facing snapshot of the controller.
type State struct {
	Address       string          `json:"address,omitempty"`
	Profile       *models.Profile `json:"profile,omitempty"`
	Authenticated bool            `json:"authenticated"`
	Dispatcher    *bool           `json:"dispatcher,omitempty"`
	LastTxHash    string          `json:"last_tx_hash,omitempty"`
}

type Controller struct {
	opMu sync.Mutex

	wallet   Wallet
	api      LensAPI
	content  ContentStore
	hub      LensHub
	sessions SessionStore
	metrics  *Metrics
	events   *EventHub
	logger   *slog.Logger
	newID    func() string
	opts     Options

	mu         sync.RWMutex
	address    string
	profile    *models.Profile
	session    *models.Session
	dispatcher *bool
	lastTxHash string
}

func New(deps Deps, opts Options) (*Controller, error) {
	if deps.Wallet == nil || deps.API == nil || deps.Content == nil || deps.LensHub == nil || deps.Sessions == nil {
		return nil, errors.New("workflow: wallet, api, content store, lenshub and session store are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if deps.Events == nil {
		deps.Events = NewEventHub(256)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if opts.Locale == "" {
		opts.Locale = defaultLocale
	}
	if opts.MediaAppID == "" {
		opts.MediaAppID = defaultMediaAppID
	}
	if opts.TextAppID == "" {
		opts.TextAppID = defaultTextAppID
	}
	if opts.DefaultMediaContentType == "" {
		opts.DefaultMediaContentType = defaultMediaContentType
	}
	return &Controller{
		wallet:   deps.Wallet,
		api:      deps.API,
		content:  deps.Content,
		hub:      deps.LensHub,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		events:   deps.Events,
		logger:   deps.Logger,
		newID:    deps.NewID,
		opts:     opts,
	}, nil
}

func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

func (c *Controller) Events() *EventHub {
	return c.events
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := State{
		Address:       c.address,
		Authenticated: c.session.Valid(),
		LastTxHash:    c.lastTxHash,
	}
	if c.profile != nil {
		p := *c.profile
		st.Profile = &p
	}
	if c.dispatcher != nil {
		d := *c.dispatcher
		st.Dispatcher = &d
	}
	return st
}

// Connect adopts the accounts the wallet already exposes. Zero accounts
// leave the address and profile unset without querying the API.
func (c *Controller) Connect(ctx context.Context) (State, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	started := time.Now()
	correlationID := c.newID()
	accounts, err := c.wallet.ListAccounts(ctx)
	if err != nil {
		err = WrapCategorizedError(ErrorCategoryWallet, err)
	} else {
		err = c.adoptAccounts(ctx, opConnect, correlationID, accounts)
	}
	c.finish(opConnect, correlationID, started, err)
	return c.State(), err
}

// RequestConnection asks the wallet to connect explicitly, then behaves
// like Connect.
func (c *Controller) RequestConnection(ctx context.Context) (State, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	started := time.Now()
	correlationID := c.newID()
	accounts, err := c.wallet.RequestAccounts(ctx)
	switch {
	case err != nil:
		err = WrapCategorizedError(ErrorCategoryWallet, err)
	case len(accounts) == 0:
		err = WrapCategorizedError(ErrorCategoryWallet, ErrNoAccounts)
	default:
		err = c.adoptAccounts(ctx, opRequestConnection, correlationID, accounts)
	}
	c.finish(opRequestConnection, correlationID, started, err)
	return c.State(), err
}

func (c *Controller) adoptAccounts(ctx context.Context, operation, correlationID string, accounts []common.Address) error {
	if len(accounts) == 0 {
		c.mu.Lock()
		c.resetIdentityLocked("")
		c.mu.Unlock()
		c.logInfo(operation, correlationID, "wallet has no connected accounts")
		return nil
	}
	address := accounts[0].Hex()
	c.mu.Lock()
	if !strings.EqualFold(c.address, address) {
		c.resetIdentityLocked(address)
	}
	c.profile = nil
	c.mu.Unlock()
	c.events.Publish(EventWalletConnected, map[string]string{"address": address})

	profile, err := c.api.DefaultProfile(ctx, address)
	if err != nil {
		return WrapCategorizedError(ErrorCategoryAPI, err)
	}
	if profile == nil || strings.TrimSpace(profile.ID) == "" {
		c.logWarn(operation, correlationID, "address has no default profile", "address", address)
		return nil
	}
	c.mu.Lock()
	p := *profile
	c.profile = &p
	c.mu.Unlock()
	c.logInfo(operation, correlationID, "wallet connected", "address", address, "profile_id", profile.ID, "handle", profile.Handle)
	return nil
}

func (c *Controller) resetIdentityLocked(address string) {
	c.address = address
	c.profile = nil
	c.session = nil
	c.dispatcher = nil
}

// Login runs the challenge, sign and authenticate sequence. Any failing
// step leaves the session unset.
func (c *Controller) Login(ctx context.Context) (State, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	started := time.Now()
	correlationID := c.newID()
	address := c.State().Address
	err := c.login(ctx, correlationID, address)
	if err != nil {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
	}
	c.finish(opLogin, correlationID, started, err)
	return c.State(), err
}

func (c *Controller) login(ctx context.Context, correlationID, address string) error {
	if address == "" {
		return WrapCategorizedError(ErrorCategoryValidation, ErrNotConnected)
	}
	challenge, err := c.api.Challenge(ctx, address)
	if err != nil {
		return WrapCategorizedError(ErrorCategoryAPI, err)
	}
	signature, err := c.wallet.SignMessage(ctx, challenge)
	if err != nil {
		return WrapCategorizedError(ErrorCategoryWallet, err)
	}
	session, err := c.api.Authenticate(ctx, address, hexutil.Encode(signature))
	if err != nil {
		return WrapCategorizedError(ErrorCategoryAPI, err)
	}
	if !session.Valid() {
		return WrapCategorizedError(ErrorCategoryAPI, ErrNotAuthenticated)
	}
	session.Address = address
	if err := c.sessions.SaveSession(session); err != nil {
		return WrapCategorizedError(ErrorCategoryStorage, err)
	}
	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	c.events.Publish(EventSessionChanged, map[string]any{"authenticated": true})
	c.logInfo(opLogin, correlationID, "authenticated", "address", address)
	return nil
}

// RestoreSession reuses a persisted access token when the API still accepts
// it, refreshing it once when a refresh token is available. Only a session
// issued to the connected address is reused. It reports whether a session is
// active afterwards.
func (c *Controller) RestoreSession(ctx context.Context) (bool, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	started := time.Now()
	correlationID := c.newID()
	ok, err := c.restoreSession(ctx, correlationID)
	c.finish(opRestoreSession, correlationID, started, err)
	return ok, err
}

func (c *Controller) restoreSession(ctx context.Context, correlationID string) (bool, error) {
	stored, err := c.sessions.LoadSession()
	if err != nil {
		return false, WrapCategorizedError(ErrorCategoryStorage, err)
	}
	if stored == nil {
		return false, nil
	}
	address := c.State().Address
	if address == "" || !strings.EqualFold(stored.Address, address) {
		c.logWarn(opRestoreSession, correlationID, "stored session belongs to another account", "address", address)
		return false, nil
	}
	valid, err := c.api.VerifyAccessToken(ctx, stored.AccessToken)
	if err != nil {
		return false, WrapCategorizedError(ErrorCategoryAPI, err)
	}
	session := *stored
	if !valid {
		if strings.TrimSpace(stored.RefreshToken) == "" {
			return false, c.dropStoredSession()
		}
		refreshed, err := c.api.RefreshSession(ctx, stored.RefreshToken)
		if err != nil {
			c.logWarn(opRestoreSession, correlationID, "refresh rejected", "error", err.Error())
			return false, c.dropStoredSession()
		}
		refreshed.Address = stored.Address
		if err := c.sessions.SaveSession(refreshed); err != nil {
			return false, WrapCategorizedError(ErrorCategoryStorage, err)
		}
		session = refreshed
	}
	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	c.events.Publish(EventSessionChanged, map[string]any{"authenticated": true})
	return true, nil
}

func (c *Controller) dropStoredSession() error {
	if err := c.sessions.Clear(); err != nil {
		return WrapCategorizedError(ErrorCategoryStorage, err)
	}
	return nil
}

// CheckDispatcher records whether the current profile has a dispatcher.
func (c *Controller) CheckDispatcher(ctx context.Context) (bool, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	started := time.Now()
	enabled, err := c.checkDispatcher(ctx, c.State().Profile)
	c.finish(opCheckDispatcher, c.newID(), started, err)
	return enabled, err
}

func (c *Controller) checkDispatcher(ctx context.Context, profile *models.Profile) (bool, error) {
	if profile == nil {
		return false, WrapCategorizedError(ErrorCategoryValidation, ErrNoProfile)
	}
	status, err := c.api.Dispatcher(ctx, profile.ID)
	if err != nil {
		return false, WrapCategorizedError(ErrorCategoryAPI, err)
	}
	enabled := status != nil && strings.TrimSpace(status.Address) != ""
	c.mu.Lock()
	c.dispatcher = &enabled
	c.mu.Unlock()
	c.events.Publish(EventDispatcherChanged, map[string]any{"profile_id": profile.ID, "enabled": enabled})
	return enabled, nil
}

// SetDispatcher signs the dispatcher typed data and submits it to LensHub.
// It signs and submits exactly once regardless of the recorded dispatcher
// state.
func (c *Controller) SetDispatcher(ctx context.Context) (common.Hash, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	started := time.Now()
	correlationID := c.newID()
	hash, err := c.setDispatcher(ctx, correlationID, c.State().Profile)
	c.finish(opSetDispatcher, correlationID, started, err)
	return hash, err
}

func (c *Controller) setDispatcher(ctx context.Context, correlationID string, profile *models.Profile) (common.Hash, error) {
	if profile == nil {
		return common.Hash{}, WrapCategorizedError(ErrorCategoryValidation, ErrNoProfile)
	}
	token, err := c.accessToken()
	if err != nil {
		return common.Hash{}, err
	}
	request := models.SetDispatcherRequest{ProfileID: profile.ID, Dispatcher: c.opts.DispatcherAddress}
	typed, err := c.api.CreateSetDispatcherTypedData(ctx, token, request)
	if err != nil {
		return common.Hash{}, WrapCategorizedError(ErrorCategoryAPI, err)
	}
	sig, err := c.signTypedData(ctx, typed.TypedData)
	if err != nil {
		return common.Hash{}, err
	}
	data, err := lenshub.SetDispatcherDataFromTypedData(typed.TypedData.Value, sig.V, sig.R, sig.S)
	if err != nil {
		return common.Hash{}, WrapCategorizedError(ErrorCategoryValidation, fmt.Errorf("%w: %v", ErrInvalidTypedData, err))
	}
	hash, err := c.hub.SetDispatcherWithSig(ctx, data)
	if err != nil {
		return common.Hash{}, WrapCategorizedError(ErrorCategoryChain, err)
	}
	c.recordTx(hash)
	c.events.Publish(EventDispatcherSet, map[string]string{"profile_id": profile.ID, "tx_hash": hash.Hex()})
	c.logInfo(opSetDispatcher, correlationID, "dispatcher transaction sent", "profile_id", profile.ID, "tx_hash", hash.Hex())
	return hash, nil
}

// Publish uploads the draft's media and metadata, then signs and submits
// the post. Empty text is rejected before any upload. On failure the
// returned result still carries the paths uploaded so far.
func (c *Controller) Publish(ctx context.Context, draft models.DraftPost) (models.PublishResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	started := time.Now()
	metadataID := c.newID()
	result, err := c.publish(ctx, metadataID, draft)
	c.finish(opPublish, metadataID, started, err)
	return result, err
}

func (c *Controller) publish(ctx context.Context, metadataID string, draft models.DraftPost) (models.PublishResult, error) {
	var result models.PublishResult
	if strings.TrimSpace(draft.Text) == "" {
		return result, WrapCategorizedError(ErrorCategoryValidation, ErrEmptyDraft)
	}
	st := c.State()
	if st.Profile == nil {
		return result, WrapCategorizedError(ErrorCategoryValidation, ErrNoProfile)
	}
	token, err := c.accessToken()
	if err != nil {
		return result, err
	}

	if draft.HasMedia() {
		name := strings.TrimSpace(draft.Media.Name)
		if name == "" {
			name = "media"
		}
		added, err := c.content.Add(ctx, name, bytes.NewReader(draft.Media.Data))
		if err != nil {
			return result, WrapCategorizedError(ErrorCategoryStorage, err)
		}
		result.MediaPath = added.Path
		c.logInfo(opPublish, metadataID, "media uploaded", "path", added.Path, "size", added.Size)
	}

	metadata := buildMetadata(metadataID, draft, result.MediaPath, st.Profile.Handle, c.opts)
	validation, err := c.api.ValidateMetadata(ctx, metadata)
	switch {
	case err != nil && c.opts.RequireValidMetadata:
		return result, WrapCategorizedError(ErrorCategoryAPI, err)
	case err != nil:
		c.logWarn(opPublish, metadataID, "metadata validation unavailable", "error", err.Error())
	default:
		result.Validation = &validation
		if !validation.Valid {
			if c.opts.RequireValidMetadata {
				return result, WrapCategorizedError(ErrorCategoryValidation, fmt.Errorf("%w: %s", ErrInvalidMetadata, validation.Reason))
			}
			c.logWarn(opPublish, metadataID, "metadata failed validation", "reason", validation.Reason)
		}
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return result, WrapCategorizedError(ErrorCategoryValidation, err)
	}
	added, err := c.content.Add(ctx, "metadata.json", bytes.NewReader(encoded))
	if err != nil {
		return result, WrapCategorizedError(ErrorCategoryStorage, err)
	}
	result.MetadataPath = added.Path
	result.ContentURI = "ipfs://" + added.Path

	if c.opts.RefreshDispatcherBeforePost {
		if enabled, err := c.checkDispatcher(ctx, st.Profile); err != nil {
			c.logWarn(opPublish, metadataID, "dispatcher check failed", "error", err.Error())
		} else {
			c.logInfo(opPublish, metadataID, "dispatcher status", "enabled", enabled)
		}
	}

	request := models.CreatePostRequest{
		ProfileID:  st.Profile.ID,
		ContentURI: result.ContentURI,
		CollectModule: models.CollectModuleParams{
			FreeCollectModule: &models.FreeCollectModule{FollowerOnly: c.opts.CollectFollowerOnly},
		},
		ReferenceModule: &models.ReferenceModuleParams{FollowerOnlyReferenceModule: c.opts.ReferenceFollowerOnly},
	}
	typed, err := c.api.CreatePostTypedData(ctx, token, request)
	if err != nil {
		return result, WrapCategorizedError(ErrorCategoryAPI, err)
	}
	sig, err := c.signTypedData(ctx, typed.TypedData)
	if err != nil {
		return result, err
	}
	data, err := lenshub.PostDataFromTypedData(typed.TypedData.Value, sig.V, sig.R, sig.S)
	if err != nil {
		return result, WrapCategorizedError(ErrorCategoryValidation, fmt.Errorf("%w: %v", ErrInvalidTypedData, err))
	}
	hash, err := c.hub.PostWithSig(ctx, data)
	if err != nil {
		return result, WrapCategorizedError(ErrorCategoryChain, err)
	}
	result.TxHash = hash.Hex()
	c.recordTx(hash)
	c.events.Publish(EventPostPublished, result)
	c.logInfo(opPublish, metadataID, "post submitted", "profile_id", st.Profile.ID, "content_uri", result.ContentURI, "tx_hash", result.TxHash)
	return result, nil
}

func (c *Controller) accessToken() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.session.Valid() {
		return "", WrapCategorizedError(ErrorCategoryValidation, ErrNotAuthenticated)
	}
	return c.session.AccessToken, nil
}

func (c *Controller) signTypedData(ctx context.Context, typedData models.TypedData) (wallet.Signature, error) {
	raw, err := c.wallet.SignTypedData(ctx, typedData)
	if err != nil {
		return wallet.Signature{}, WrapCategorizedError(ErrorCategoryWallet, err)
	}
	sig, err := wallet.SplitSignature(raw)
	if err != nil {
		return wallet.Signature{}, WrapCategorizedError(ErrorCategoryWallet, err)
	}
	return sig, nil
}

func (c *Controller) recordTx(hash common.Hash) {
	c.mu.Lock()
	c.lastTxHash = hash.Hex()
	c.mu.Unlock()
}

func (c *Controller) finish(operation, correlationID string, started time.Time, err error) {
	c.metrics.RecordOp(operation, started, err)
	c.recordError(err, operation, correlationID)
}
