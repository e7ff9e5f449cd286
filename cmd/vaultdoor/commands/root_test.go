package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuildInfo() BuildInfo {
	return BuildInfo{Version: "1.2.3", Commit: "abc1234", Date: "2026-02-01"}
}

func TestRootCommandVersionFlag(t *testing.T) {
	cmd := NewRootCommand(testBuildInfo())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1.2.3 (commit: abc1234, built: 2026-02-01)")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand(testBuildInfo())

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "doctor")
	assert.Contains(t, names, "version")
	assert.Contains(t, names, "completion")
}

func TestVersionCommand(t *testing.T) {
	output, err := captureCommandOutput(t, NewVersionCommand(testBuildInfo()), nil)

	require.NoError(t, err)
	assert.Contains(t, output, "vaultdoor 1.2.3")
	assert.Contains(t, output, "commit: abc1234")
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	clearEnv(t)

	opts := &rootOptions{
		listen:    ":9999",
		storeType: "memory",
		debug:     true,
		noColor:   true,
	}

	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.NoColor)
}

func TestLoadConfigFlagsWinOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("VAULTDOOR_LISTEN", ":7000")
	t.Setenv("VAULTDOOR_STORE_TYPE", "memory")

	opts := &rootOptions{listen: ":6000"}

	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Listen)
}

func TestLoadConfigStoreURLFlag(t *testing.T) {
	clearEnv(t)

	opts := &rootOptions{
		storeType: "azure.keyvault",
		storeURL:  "https://flags.vault.azure.net",
	}

	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, "https://flags.vault.azure.net", cfg.StoreSetting("url"))
}

func TestLoadConfigEmptyFlagsKeepDefaults(t *testing.T) {
	clearEnv(t)

	opts := &rootOptions{storeType: "memory"}

	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Listen)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 128, cfg.Cache.Capacity)
}
