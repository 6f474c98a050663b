// Package lensfrens wires config, wallet, Lens API, content store, LensHub
// and session persistence into a workflow controller.
package lensfrens

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"lensfrens/go-backend/internal/config"
	"lensfrens/go-backend/internal/contentstore"
	"lensfrens/go-backend/internal/lensapi"
	"lensfrens/go-backend/internal/lenshub"
	"lensfrens/go-backend/internal/platform/privacylog"
	"lensfrens/go-backend/internal/session"
	"lensfrens/go-backend/internal/wallet"
	"lensfrens/go-backend/internal/workflow"
)

// BuildOptions overrides components that would otherwise be built from the
// config. Zero values use the configured implementations.
type BuildOptions struct {
	Logger  *slog.Logger
	Content contentstore.Store
	Backend lenshub.Backend
	// DryRun keeps uploads in memory and signs LensHub transactions
	// without broadcasting them.
	DryRun bool
}

type Runtime struct {
	Config     config.Config
	Logger     *slog.Logger
	Wallet     *wallet.HDWallet
	Sessions   *session.Store
	Controller *workflow.Controller
	Registry   *prometheus.Registry

	closeBackend func()
}

func (r *Runtime) Close() {
	if r != nil && r.closeBackend != nil {
		r.closeBackend()
	}
}

// NewWallet opens the HD wallet described by cfg. The passphrase comes from
// cfg only.
func NewWallet(cfg config.Config) *wallet.HDWallet {
	passphrase := cfg.Wallet.Passphrase
	return wallet.New(cfg.WalletPath(), cfg.Wallet.AccountIndex, func() (string, error) {
		if strings.TrimSpace(passphrase) == "" {
			return "", wallet.ErrPassphraseRequired
		}
		return passphrase, nil
	})
}

func Build(ctx context.Context, cfg config.Config, opts BuildOptions) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = privacylog.NewJSONLogger(os.Stderr, slog.LevelInfo)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if !common.IsHexAddress(cfg.Chain.LensHubAddress) {
		return nil, fmt.Errorf("%w: chain.lensHubAddress %q", config.ErrInvalidConfig, cfg.Chain.LensHubAddress)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := workflow.NewMetrics(registry)
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	w := NewWallet(cfg)
	api := lensapi.New(lensapi.Options{
		URL:        cfg.API.URL,
		HTTPClient: httpClient,
		RPS:        cfg.API.RPS,
		Burst:      cfg.API.Burst,
		Logger:     logger.With("component", "lensapi"),
	})

	content := opts.Content
	switch {
	case content != nil:
	case opts.DryRun:
		content = contentstore.NewMemoryStore()
		logger.Warn("dry run: uploads are kept in memory and transactions are not sent")
	default:
		ipfs, err := contentstore.NewClient(contentstore.Options{
			Endpoint:      cfg.IPFS.Endpoint,
			ProjectID:     cfg.IPFS.ProjectID,
			ProjectSecret: cfg.IPFS.ProjectSecret,
			Pin:           cfg.IPFS.Pin,
			HTTPClient:    &http.Client{},
			UploadTimeout: cfg.IPFS.UploadTimeout,
			OnUploaded:    metrics.AddUploadedBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("content store: %w", err)
		}
		content = ipfs
	}

	backend := opts.Backend
	closeBackend := func() {}
	if backend == nil {
		if strings.TrimSpace(cfg.Chain.RPCURL) == "" {
			return nil, fmt.Errorf("%w: chain.rpcUrl is required", config.ErrInvalidConfig)
		}
		client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial chain rpc: %w", err)
		}
		backend = client
		closeBackend = client.Close
	}

	hub, err := lenshub.New(backend, w, lenshub.Options{
		Address:        common.HexToAddress(cfg.Chain.LensHubAddress),
		ChainID:        cfg.Chain.ChainID,
		GasHeadroomPct: cfg.Chain.GasHeadroomPct,
		DryRun:         opts.DryRun,
		Logger:         logger.With("component", "lenshub"),
	})
	if err != nil {
		closeBackend()
		return nil, err
	}

	sessions := session.NewStore(cfg.SessionPath(), cfg.Wallet.StorageSecret)
	controller, err := workflow.New(workflow.Deps{
		Wallet:   w,
		API:      api,
		Content:  content,
		LensHub:  hub,
		Sessions: sessions,
		Metrics:  metrics,
		Logger:   logger,
	}, workflowOptions(cfg.Post))
	if err != nil {
		closeBackend()
		return nil, err
	}

	return &Runtime{
		Config:       cfg,
		Logger:       logger,
		Wallet:       w,
		Sessions:     sessions,
		Controller:   controller,
		Registry:     registry,
		closeBackend: closeBackend,
	}, nil
}

// Start connects the wallet when it can be unlocked from config and
// restores a persisted session. Failures are logged; the runtime stays
// usable.
func (r *Runtime) Start(ctx context.Context) {
	if !r.Wallet.Vault().Exists() || strings.TrimSpace(r.Config.Wallet.Passphrase) == "" {
		r.Logger.Info("wallet not connected at startup")
		return
	}
	if _, err := r.Controller.RequestConnection(ctx); err != nil {
		r.Logger.Warn("initial connect failed", "error", err.Error())
		return
	}
	if _, err := r.Controller.RestoreSession(ctx); err != nil {
		r.Logger.Warn("session restore failed", "error", err.Error())
	}
}

func workflowOptions(post config.PostConfig) workflow.Options {
	return workflow.Options{
		ExternalURLBase:             post.ExternalURLBase,
		Locale:                      post.Locale,
		MediaAppID:                  post.MediaAppID,
		TextAppID:                   post.TextAppID,
		DefaultMediaContentType:     post.DefaultMediaContentType,
		RequireValidMetadata:        post.RequireValidMetadata,
		CollectFollowerOnly:         post.CollectFollowerOnly,
		ReferenceFollowerOnly:       post.ReferenceFollowerOnly,
		RefreshDispatcherBeforePost: post.RefreshDispatcherBeforePost,
		DispatcherAddress:           post.DispatcherAddress,
	}
}
