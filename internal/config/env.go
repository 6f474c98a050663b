package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDataDir           = "LENSFRENS_DATA_DIR"
	EnvAPIURL            = "LENSFRENS_API_URL"
	EnvIPFSEndpoint      = "LENSFRENS_IPFS_ENDPOINT"
	EnvIPFSProjectID     = "LENSFRENS_IPFS_PROJECT_ID"
	EnvIPFSProjectSecret = "LENSFRENS_IPFS_PROJECT_SECRET"
	EnvChainRPCURL       = "LENSFRENS_CHAIN_RPC_URL"
	EnvChainID           = "LENSFRENS_CHAIN_ID"
	EnvLensHubAddress    = "LENSFRENS_LENSHUB_ADDRESS"
	EnvWalletPassphrase  = "LENSFRENS_WALLET_PASSPHRASE"
	EnvAccountIndex      = "LENSFRENS_ACCOUNT_INDEX"
	EnvStorageSecret     = "LENSFRENS_STORAGE_SECRET"
	EnvRequireValidMeta  = "LENSFRENS_REQUIRE_VALID_METADATA"
	EnvDispatcherAddress = "LENSFRENS_DISPATCHER_ADDRESS"
	EnvUploadTimeout     = "LENSFRENS_IPFS_UPLOAD_TIMEOUT"
	EnvHTTPTimeout       = "LENSFRENS_HTTP_TIMEOUT"
	EnvRPCAddr           = "LENSFRENS_RPC_ADDR"
	EnvRPCToken          = "LENSFRENS_RPC_TOKEN"
	EnvRPCAllowedOrigins = "LENSFRENS_RPC_ALLOWED_ORIGINS"
)

func ApplyEnvOverrides(cfg *Config) {
	if v := envString(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := envString(EnvAPIURL); v != "" {
		cfg.API.URL = v
	}
	if v := envString(EnvIPFSEndpoint); v != "" {
		cfg.IPFS.Endpoint = v
	}
	if v := envString(EnvIPFSProjectID); v != "" {
		cfg.IPFS.ProjectID = v
	}
	if v := envString(EnvIPFSProjectSecret); v != "" {
		cfg.IPFS.ProjectSecret = v
	}
	if v := envString(EnvChainRPCURL); v != "" {
		cfg.Chain.RPCURL = v
	}
	cfg.Chain.ChainID = envInt64WithFallback(EnvChainID, cfg.Chain.ChainID)
	if v := envString(EnvLensHubAddress); v != "" {
		cfg.Chain.LensHubAddress = v
	}
	if v := envString(EnvWalletPassphrase); v != "" {
		cfg.Wallet.Passphrase = v
	}
	if idx := envInt64WithFallback(EnvAccountIndex, -1); idx >= 0 && idx <= int64(^uint32(0)>>1) {
		cfg.Wallet.AccountIndex = uint32(idx)
	}
	if v := envString(EnvStorageSecret); v != "" {
		cfg.Wallet.StorageSecret = v
	}
	cfg.Post.RequireValidMetadata = envBoolWithFallback(EnvRequireValidMeta, cfg.Post.RequireValidMetadata)
	if v := envString(EnvDispatcherAddress); v != "" {
		cfg.Post.DispatcherAddress = v
	}
	cfg.HTTP.Timeout = envDurationWithFallback(EnvHTTPTimeout, cfg.HTTP.Timeout)
	cfg.IPFS.UploadTimeout = envDurationWithFallback(EnvUploadTimeout, cfg.IPFS.UploadTimeout)
	if v := envString(EnvRPCAddr); v != "" {
		cfg.RPC.Addr = v
	}
	if v := envString(EnvRPCToken); v != "" {
		cfg.RPC.Token = v
	}
	if origins := envCSV(EnvRPCAllowedOrigins); origins != nil {
		cfg.RPC.AllowedOrigins = origins
	}
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envCSV(key string) []string {
	raw := envString(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envBoolWithFallback(key string, fallback bool) bool {
	switch strings.ToLower(envString(key)) {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envInt64WithFallback(key string, fallback int64) int64 {
	raw := envString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDurationWithFallback(key string, fallback time.Duration) time.Duration {
	raw := envString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
