package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/bootstrap"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/shop/commerce"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "shopbot dev")
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "migrate", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestBuildAppWithMemorySessions(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Session.Backend = coreconfig.SessionBackendMemory
	cfg.Strapi.URL = "http://strapi.invalid"
	cfg.Strapi.Token = "t"
	cfg.Strapi.TimeoutSeconds = 1
	cfg.Dialog.SerializePerUser = true

	app, err := buildApp(cfg, bootstrap.Options{
		Config:     cfg,
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	require.NoError(t, err)

	opts, err := app.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, cfg, opts.Config)
	assert.Len(t, opts.Routes, 3)
	assert.NoError(t, app.Close())
}

func TestCommerceClientDemo(t *testing.T) {
	_, isDemo := commerceClient(coreconfig.StrapiConfig{Demo: true}).(*commerce.MemoryClient)
	assert.True(t, isDemo)
	_, isStrapi := commerceClient(coreconfig.StrapiConfig{URL: "http://strapi.invalid", Token: "t"}).(*commerce.StrapiClient)
	assert.True(t, isStrapi)
}
