package config

import (
	"time"
)

// FileConfig is the YAML shape. Pointer fields distinguish "unset" from the
// zero value so Merge only overrides what the file names.
type FileConfig struct {
	DataDir string           `yaml:"dataDir"`
	HTTP    FileHTTPConfig   `yaml:"http"`
	API     FileAPIConfig    `yaml:"api"`
	IPFS    FileIPFSConfig   `yaml:"ipfs"`
	Chain   FileChainConfig  `yaml:"chain"`
	Wallet  FileWalletConfig `yaml:"wallet"`
	Post    FilePostConfig   `yaml:"post"`
	RPC     FileRPCConfig    `yaml:"rpc"`
}

type FileHTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type FileAPIConfig struct {
	URL   string  `yaml:"url"`
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type FileIPFSConfig struct {
	Endpoint      string `yaml:"endpoint"`
	ProjectID     string `yaml:"projectId"`
	ProjectSecret string `yaml:"projectSecret"`
	Pin           *bool         `yaml:"pin"`
	UploadTimeout time.Duration `yaml:"uploadTimeout"`
}

type FileChainConfig struct {
	RPCURL         string `yaml:"rpcUrl"`
	ChainID        int64  `yaml:"chainId"`
	LensHubAddress string `yaml:"lensHubAddress"`
	GasHeadroomPct *int   `yaml:"gasHeadroomPct"`
}

type FileWalletConfig struct {
	AccountIndex *uint32 `yaml:"accountIndex"`
}

type FilePostConfig struct {
	ExternalURLBase             string `yaml:"externalUrlBase"`
	Locale                      string `yaml:"locale"`
	MediaAppID                  string `yaml:"mediaAppId"`
	TextAppID                   string `yaml:"textAppId"`
	RequireValidMetadata        *bool  `yaml:"requireValidMetadata"`
	CollectFollowerOnly         *bool  `yaml:"collectFollowerOnly"`
	ReferenceFollowerOnly       *bool  `yaml:"referenceFollowerOnly"`
	DefaultMediaContentType     string `yaml:"defaultMediaContentType"`
	RefreshDispatcherBeforePost *bool  `yaml:"refreshDispatcherBeforePost"`
	DispatcherAddress           string `yaml:"dispatcherAddress"`
}

type FileRPCConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	RateLimitRPS   float64  `yaml:"rateLimitRps"`
	RateLimitBurst int      `yaml:"rateLimitBurst"`
}

func Merge(dst *Config, src FileConfig) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.HTTP.Timeout != 0 {
		dst.HTTP.Timeout = src.HTTP.Timeout
	}

	if src.API.URL != "" {
		dst.API.URL = src.API.URL
	}
	if src.API.RPS != 0 {
		dst.API.RPS = src.API.RPS
	}
	if src.API.Burst != 0 {
		dst.API.Burst = src.API.Burst
	}

	if src.IPFS.Endpoint != "" {
		dst.IPFS.Endpoint = src.IPFS.Endpoint
	}
	if src.IPFS.ProjectID != "" {
		dst.IPFS.ProjectID = src.IPFS.ProjectID
	}
	if src.IPFS.ProjectSecret != "" {
		dst.IPFS.ProjectSecret = src.IPFS.ProjectSecret
	}
	if src.IPFS.Pin != nil {
		dst.IPFS.Pin = *src.IPFS.Pin
	}
	if src.IPFS.UploadTimeout != 0 {
		dst.IPFS.UploadTimeout = src.IPFS.UploadTimeout
	}

	if src.Chain.RPCURL != "" {
		dst.Chain.RPCURL = src.Chain.RPCURL
	}
	if src.Chain.ChainID != 0 {
		dst.Chain.ChainID = src.Chain.ChainID
	}
	if src.Chain.LensHubAddress != "" {
		dst.Chain.LensHubAddress = src.Chain.LensHubAddress
	}
	if src.Chain.GasHeadroomPct != nil {
		dst.Chain.GasHeadroomPct = *src.Chain.GasHeadroomPct
	}

	if src.Wallet.AccountIndex != nil {
		dst.Wallet.AccountIndex = *src.Wallet.AccountIndex
	}

	if src.Post.ExternalURLBase != "" {
		dst.Post.ExternalURLBase = src.Post.ExternalURLBase
	}
	if src.Post.Locale != "" {
		dst.Post.Locale = src.Post.Locale
	}
	if src.Post.MediaAppID != "" {
		dst.Post.MediaAppID = src.Post.MediaAppID
	}
	if src.Post.TextAppID != "" {
		dst.Post.TextAppID = src.Post.TextAppID
	}
	if src.Post.RequireValidMetadata != nil {
		dst.Post.RequireValidMetadata = *src.Post.RequireValidMetadata
	}
	if src.Post.CollectFollowerOnly != nil {
		dst.Post.CollectFollowerOnly = *src.Post.CollectFollowerOnly
	}
	if src.Post.ReferenceFollowerOnly != nil {
		dst.Post.ReferenceFollowerOnly = *src.Post.ReferenceFollowerOnly
	}
	if src.Post.DefaultMediaContentType != "" {
		dst.Post.DefaultMediaContentType = src.Post.DefaultMediaContentType
	}
	if src.Post.RefreshDispatcherBeforePost != nil {
		dst.Post.RefreshDispatcherBeforePost = *src.Post.RefreshDispatcherBeforePost
	}
	if src.Post.DispatcherAddress != "" {
		dst.Post.DispatcherAddress = src.Post.DispatcherAddress
	}

	if src.RPC.Addr != "" {
		dst.RPC.Addr = src.RPC.Addr
	}
	if src.RPC.AllowedOrigins != nil {
		dst.RPC.AllowedOrigins = src.RPC.AllowedOrigins
	}
	if src.RPC.RateLimitRPS != 0 {
		dst.RPC.RateLimitRPS = src.RPC.RateLimitRPS
	}
	if src.RPC.RateLimitBurst != 0 {
		dst.RPC.RateLimitBurst = src.RPC.RateLimitBurst
	}
}
