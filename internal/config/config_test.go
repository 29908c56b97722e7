package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("OBJFCN_SECTION_PADDING_BYTES")
	os.Unsetenv("OBJFCN_DIAG_LOG_PATH")
	os.Unsetenv("OBJFCN_DIAG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 16, cfg.SectionPaddingBytes)
	require.Equal(t, "", cfg.DiagLogPath)
	require.Equal(t, "info", cfg.DiagLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OBJFCN_SECTION_PADDING_BYTES", "32")
	t.Setenv("OBJFCN_DIAG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 32, cfg.SectionPaddingBytes)
	require.Equal(t, "debug", cfg.DiagLevel)
}

func TestLoadRejectsNonPositivePadding(t *testing.T) {
	t.Setenv("OBJFCN_SECTION_PADDING_BYTES", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 16, cfg.SectionPaddingBytes) // falls back to the struct default
}
