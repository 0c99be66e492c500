package config

import (
	"flag"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envTestConfig struct {
	Port int    `env:"BATTLESHIP_TEST_PORT" envDefault:"123"`
	Mode string `env:"BATTLESHIP_TEST_MODE" envDefault:"memory"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	require.NoError(t, ParseEnv(&cfg))
	assert.Equal(t, 123, cfg.Port)
	assert.Equal(t, "memory", cfg.Mode)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("BATTLESHIP_TEST_PORT", "not-an-int")
	var cfg envTestConfig
	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("BATTLESHIP_TEST_PORT", "9000")
	t.Setenv("BATTLESHIP_TEST_MODE", "sqlite")

	var cfg envTestConfig
	require.NoError(t, ParseEnv(&cfg))
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "port")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "mode")
	require.NoError(t, ParseArgs(fs, []string{"-port", "9001"}))

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Mode)
	assert.Error(t, ParseArgs(nil, nil))
}

func TestLogger(t *testing.T) {
	l, err := Logger(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, l.GetLevel())

	_, err = Logger("loud")
	assert.Error(t, err)
}
