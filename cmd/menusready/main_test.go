package main

import (
	"testing"

	"github.com/smallbiznis/menusready/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverridesKeepsUnsetFields(t *testing.T) {
	v := viper.New()
	v.Set("http.address", ":9090")
	v.Set("database.type", "sqlite")

	cfg := applyOverrides(v)(config.Config{
		HTTPAddress: ":8080",
		DBType:      "postgres",
		DBPath:      "menusready.db",
		Environment: "production",
	})

	assert.Equal(t, ":9090", cfg.HTTPAddress)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "menusready.db", cfg.DBPath)
	assert.Equal(t, "production", cfg.Environment)
}

func TestApplyOverridesIgnoresBlankValues(t *testing.T) {
	v := viper.New()
	v.Set("environment", "   ")

	cfg := applyOverrides(v)(config.Config{Environment: "staging"})
	assert.Equal(t, "staging", cfg.Environment)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "migrate", "regenerate", "retry-deliveries", "create-operator", "issue-operator-token"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRegenerateRequiresSlug(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"regenerate"})

	err := root.Execute()
	require.Error(t, err)
}

func TestSnowflakeNodeFromViper(t *testing.T) {
	v := viper.New()
	v.Set("node.id", 7)

	node, err := newSnowflakeNode(v)()
	require.NoError(t, err)
	assert.Equal(t, int64(7), node.Generate().Node())
}
