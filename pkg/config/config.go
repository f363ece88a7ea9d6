// Package config loads post-minter settings from an optional YAML file and
// the environment. Environment variables take precedence over the file.
package config

import (
	"crypto/ed25519"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/code-payments/post-minter/pkg/netutil"
	"github.com/code-payments/post-minter/pkg/solana"
	"github.com/code-payments/post-minter/pkg/solana/binary"
	"github.com/code-payments/post-minter/pkg/solana/tokensale"
)

type Config struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	RPCEndpoint string        `mapstructure:"rpc_endpoint"`
	RPCTimeout  time.Duration `mapstructure:"rpc_timeout"`

	// RPCRateLimit is the number of outbound calls per second allowed for
	// each RPC method.
	RPCRateLimit float64 `mapstructure:"rpc_rate_limit"`

	ProgramID string `mapstructure:"program_id"`

	// InitialPurchaseLamports is kept as text so values beyond the range of
	// a u64 are reported instead of silently wrapping.
	InitialPurchaseLamports string `mapstructure:"initial_purchase_lamports"`

	// WalletApprovalTimeout bounds the wait for the user to approve a
	// signature. Zero disables the timeout.
	WalletApprovalTimeout time.Duration `mapstructure:"wallet_approval_timeout"`
	WalletKeypairPath     string        `mapstructure:"wallet_keypair_path"`

	MetadataUploadURL     string        `mapstructure:"metadata_upload_url"`
	MetadataUploadTimeout time.Duration `mapstructure:"metadata_upload_timeout"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultConfig = Config{
	LogLevel: "info",

	AppName: "post-minter",

	RPCEndpoint:  string(solana.EnvironmentDev),
	RPCTimeout:   30 * time.Second,
	RPCRateLimit: 5,

	ProgramID:               "CnfqUGYuKinSjAWU2abZBexMS3eHBG3vVKx9t5RR8mnu",
	InitialPurchaseLamports: "100000000",

	WalletApprovalTimeout: 2 * time.Minute,

	MetadataUploadTimeout: 30 * time.Second,
}

var envBindings = map[string]string{
	"log_level":                 "LOG_LEVEL",
	"app_name":                  "APP_NAME",
	"rpc_endpoint":              "RPC_ENDPOINT",
	"rpc_timeout":               "RPC_TIMEOUT",
	"rpc_rate_limit":            "RPC_RATE_LIMIT",
	"program_id":                "PROGRAM_ID",
	"initial_purchase_lamports": "INITIAL_PURCHASE_LAMPORTS",
	"wallet_approval_timeout":   "WALLET_APPROVAL_TIMEOUT",
	"wallet_keypair_path":       "WALLET_KEYPAIR_PATH",
	"metadata_upload_url":       "METADATA_UPLOAD_URL",
	"metadata_upload_timeout":   "METADATA_UPLOAD_TIMEOUT",
	"new_relic_license_key":     "NEW_RELIC_LICENSE_KEY",
}

// Load reads the config file at path, if one exists, and applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	// viper only reports a missing file when it searched for one, so an
	// explicitly configured path is checked here.
	if len(path) > 0 {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrap(err, "failed to load config")
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to check if config exists")
		}
	}

	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values that can't be expressed by their types alone.
func (c *Config) Validate() error {
	if err := netutil.ValidateHttpUrl(c.RPCEndpoint, false); err != nil {
		return errors.Wrap(err, "invalid rpc_endpoint")
	}
	if c.RPCTimeout <= 0 {
		return errors.New("rpc_timeout must be positive")
	}
	if c.RPCRateLimit < 0 {
		return errors.New("rpc_rate_limit must not be negative")
	}
	if c.WalletApprovalTimeout < 0 {
		return errors.New("wallet_approval_timeout must not be negative")
	}
	if _, err := c.Program(); err != nil {
		return errors.Wrap(err, "invalid program_id")
	}
	if _, err := c.PurchaseLamports(); err != nil {
		return errors.Wrap(err, "invalid initial_purchase_lamports")
	}
	if len(c.MetadataUploadURL) > 0 {
		if err := netutil.ValidateHttpUrl(c.MetadataUploadURL, false); err != nil {
			return errors.Wrap(err, "invalid metadata_upload_url")
		}
	}
	return nil
}

func (c *Config) Program() (ed25519.PublicKey, error) {
	return tokensale.ParseProgramKey(c.ProgramID)
}

func (c *Config) PurchaseLamports() (uint64, error) {
	return binary.ParseU64(c.InitialPurchaseLamports)
}
