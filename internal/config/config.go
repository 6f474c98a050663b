package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL         = "https://api-mumbai.lens.dev"
	DefaultIPFSEndpoint   = "/dns4/ipfs.infura.io/tcp/5001/https"
	DefaultChainRPCURL    = "https://rpc-mumbai.maticvigil.com"
	DefaultChainID        = int64(80001)
	DefaultLensHubAddress = "0x60Ae865ee4C725cd04353b5AAb364553f56ceF82"
	DefaultRPCAddr        = "127.0.0.1:8797"
	DefaultExternalURL    = "https://lenstube.xyz"
	DefaultLocale         = "en-US"
	DefaultMediaAppID     = "lenstube"
	DefaultTextAppID      = "lensfrens"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultUploadTimeout  = 10 * time.Minute
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	DataDir string
	HTTP    HTTPConfig
	API     APIConfig
	IPFS    IPFSConfig
	Chain   ChainConfig
	Wallet  WalletConfig
	Post    PostConfig
	RPC     RPCConfig
}

type HTTPConfig struct {
	Timeout time.Duration
}

type APIConfig struct {
	URL   string
	RPS   float64
	Burst int
}

// IPFSConfig describes the content store API. ProjectID/ProjectSecret are
// only ever read from the file or environment. UploadTimeout bounds a single
// upload and replaces HTTP.Timeout for the content store.
type IPFSConfig struct {
	Endpoint      string
	ProjectID     string
	ProjectSecret string
	Pin           bool
	UploadTimeout time.Duration
}

type ChainConfig struct {
	RPCURL         string
	ChainID        int64
	LensHubAddress string
	GasHeadroomPct int
}

type WalletConfig struct {
	AccountIndex uint32
	Passphrase   string
	// StorageSecret encrypts the persisted session when set.
	StorageSecret string
}

type PostConfig struct {
	ExternalURLBase             string
	Locale                      string
	MediaAppID                  string
	TextAppID                   string
	RequireValidMetadata        bool
	CollectFollowerOnly         bool
	ReferenceFollowerOnly       bool
	DefaultMediaContentType     string
	RefreshDispatcherBeforePost bool
	// DispatcherAddress is sent with setDispatcher; empty lets the API pick
	// its default dispatcher.
	DispatcherAddress string
}

type RPCConfig struct {
	Addr           string
	Token          string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func DefaultConfig() Config {
	return Config{
		DataDir: defaultDataDir(),
		HTTP:    HTTPConfig{Timeout: DefaultHTTPTimeout},
		API: APIConfig{
			URL:   DefaultAPIURL,
			RPS:   5,
			Burst: 10,
		},
		IPFS: IPFSConfig{
			Endpoint:      DefaultIPFSEndpoint,
			Pin:           true,
			UploadTimeout: DefaultUploadTimeout,
		},
		Chain: ChainConfig{
			RPCURL:         DefaultChainRPCURL,
			ChainID:        DefaultChainID,
			LensHubAddress: DefaultLensHubAddress,
			GasHeadroomPct: 20,
		},
		Post: PostConfig{
			ExternalURLBase:             DefaultExternalURL,
			Locale:                      DefaultLocale,
			MediaAppID:                  DefaultMediaAppID,
			TextAppID:                   DefaultTextAppID,
			RequireValidMetadata:        true,
			DefaultMediaContentType:     "video/mp4",
			RefreshDispatcherBeforePost: true,
		},
		RPC: RPCConfig{
			Addr:           DefaultRPCAddr,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
	}
}

// Load reads configPath (or the default candidates), merges it over the
// defaults and applies environment overrides.
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if strings.TrimSpace(configPath) != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates, "configs/config.yaml", filepath.Join(cfg.DataDir, "config.yaml"))
	}

	for i, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if i == 0 && strings.TrimSpace(configPath) != "" {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.API.URL) == "":
		return fmt.Errorf("%w: api.url is required", ErrInvalidConfig)
	case strings.TrimSpace(c.IPFS.Endpoint) == "":
		return fmt.Errorf("%w: ipfs.endpoint is required", ErrInvalidConfig)
	case c.Chain.ChainID <= 0:
		return fmt.Errorf("%w: chain.chainId must be positive", ErrInvalidConfig)
	case c.HTTP.Timeout <= 0:
		return fmt.Errorf("%w: http.timeout must be positive", ErrInvalidConfig)
	case c.Chain.GasHeadroomPct < 0:
		return fmt.Errorf("%w: chain.gasHeadroomPct must not be negative", ErrInvalidConfig)
	case c.IPFS.UploadTimeout <= 0:
		return fmt.Errorf("%w: ipfs.uploadTimeout must be positive", ErrInvalidConfig)
	case c.Post.DispatcherAddress != "" && !common.IsHexAddress(c.Post.DispatcherAddress):
		return fmt.Errorf("%w: post.dispatcherAddress is not an address", ErrInvalidConfig)
	}
	return nil
}

func (c Config) WalletPath() string {
	return filepath.Join(c.DataDir, "wallet.json")
}

func (c Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "lensfrens")
	}
	return ".lensfrens"
}
