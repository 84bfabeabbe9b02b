package telegram

import (
	"testing"

	"github.com/m3rciful/shopbot/core/telegram/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestRegistryLookupAndList(t *testing.T) {
	reg := NewRegistry()
	noop := func(tele.Context) error { return nil }
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Open the shop", Aliases: []string{"menu"}}))
	require.NoError(t, reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Internal", Hidden: true}))
	assert.Error(t, reg.RegisterCommand("nope", commands.Command{Handler: noop, Description: "missing slash"}))
	assert.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "duplicate"}))
	assert.Error(t, reg.RegisterCommand("/empty", commands.Command{Description: "no handler"}))
	assert.Len(t, reg.Commands(), 2)

	key, cmd, ok := reg.LookupCommand("menu")
	require.True(t, ok)
	assert.Equal(t, "/start", key)
	assert.Equal(t, "Open the shop", cmd.Description)

	key, _, ok = reg.LookupCommand("/start@shop_bot deep-link")
	require.True(t, ok)
	assert.Equal(t, "/start", key)

	_, _, ok = reg.LookupCommand("menu@example.com")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("hello")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("   ")
	assert.False(t, ok)

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "start", visible[0].Text)

	all := reg.ListCommands(false)
	require.Len(t, all, 2)
	assert.Equal(t, "debug", all[0].Text)
}
