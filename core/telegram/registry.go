package telegram

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry is the set of slash commands a bot answers to. Keys carry the
// leading slash; aliases are bare words matched against plain text.
type Registry struct {
	commands map[string]commands.Command
	aliases  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]commands.Command),
		aliases:  make(map[string]string),
	}
}

// RegisterCommand adds cmd under name. It rejects names without a leading
// slash, commands lacking a handler or description, and duplicates.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		return fmt.Errorf("telegram: command %q: handler and description are required", name)
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return fmt.Errorf("telegram: command %q: name must start with a slash", name)
	}
	if _, dup := r.commands[name]; dup {
		return fmt.Errorf("telegram: command %q already registered", name)
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		r.aliases[strings.TrimPrefix(a, "/")] = name
	}
	return nil
}

// ListCommands returns the menu entries sorted by name. Hidden commands are
// left out when visibleOnly is set.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		cmd := r.commands[name]
		if visibleOnly && cmd.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: name[1:], Description: cmd.Description})
	}
	return list
}

// LookupCommand resolves text to a registered command. Only the first word
// is considered; a slash command may carry a "@botname" suffix and an alias
// must match the whole word.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", commands.Command{}, false
	}
	word := fields[0]
	if strings.HasPrefix(word, "/") {
		word, _, _ = strings.Cut(word, "@")
		if cmd, ok := r.commands[word]; ok {
			return word, cmd, true
		}
		word = word[1:]
	}
	if canonical, ok := r.aliases[word]; ok {
		return canonical, r.commands[canonical], true
	}
	return "", commands.Command{}, false
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	return maps.Clone(r.commands)
}

// InitBotCommands publishes the visible commands as the bot's menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), "tg.wire", "commands.publish", logger.Err(err))
	}
}
