package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/post-minter/pkg/solana/binary"
	"github.com/code-payments/post-minter/pkg/solana/tokensale"
)

func TestLoad_Defaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "https://api.devnet.solana.com", config.RPCEndpoint)
	assert.Equal(t, 30*time.Second, config.RPCTimeout)
	assert.EqualValues(t, 5, config.RPCRateLimit)
	assert.Equal(t, 2*time.Minute, config.WalletApprovalTimeout)
	assert.Equal(t, 30*time.Second, config.MetadataUploadTimeout)
	assert.Empty(t, config.MetadataUploadURL)

	program, err := config.Program()
	require.NoError(t, err)
	assert.Equal(t, tokensale.DevnetProgramKey, program)

	lamports, err := config.PurchaseLamports()
	require.NoError(t, err)
	assert.Equal(t, tokensale.DefaultInitialPurchaseLamports, lamports)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
rpc_endpoint: https://rpc.example.com
rpc_timeout: 10s
initial_purchase_lamports: 250000000
wallet_approval_timeout: 0s
metadata_upload_url: https://upload.example.com/api/metadata
`), 0600))

	t.Setenv("RPC_ENDPOINT", "https://override.example.com")
	t.Setenv("RPC_RATE_LIMIT", "2.5")

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "https://override.example.com", config.RPCEndpoint)
	assert.Equal(t, 10*time.Second, config.RPCTimeout)
	assert.EqualValues(t, 2.5, config.RPCRateLimit)
	assert.Zero(t, config.WalletApprovalTimeout)
	assert.Equal(t, "https://upload.example.com/api/metadata", config.MetadataUploadURL)

	lamports, err := config.PurchaseLamports()
	require.NoError(t, err)
	assert.EqualValues(t, 250000000, lamports)
}

func TestLoad_Invalid(t *testing.T) {
	for _, tc := range []struct {
		env, value string
	}{
		{"RPC_ENDPOINT", "api.devnet.solana.com"},
		{"RPC_TIMEOUT", "0s"},
		{"PROGRAM_ID", "not-base58-0OIl"},
		{"PROGRAM_ID", "11111111"},
		{"INITIAL_PURCHASE_LAMPORTS", "-1"},
		{"INITIAL_PURCHASE_LAMPORTS", "18446744073709551616"},
		{"WALLET_APPROVAL_TIMEOUT", "-1s"},
		{"METADATA_UPLOAD_URL", "/upload"},
	} {
		t.Run(tc.env+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.env, tc.value)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestPurchaseLamports_OutOfRange(t *testing.T) {
	config := defaultConfig
	config.InitialPurchaseLamports = "18446744073709551616"

	_, err := config.PurchaseLamports()
	assert.ErrorIs(t, err, binary.ErrOutOfRange)
}
