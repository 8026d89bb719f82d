package command

// Builtin returns every chat command of the bot.
func Builtin(deps *Dependencies) []Command {
	return []Command{
		NewAskCommand(deps),
		NewNewsCommand(deps),
		NewForumsCommand(deps),
		NewLeaderboardCommand(deps),
		NewEventsCommand(deps),
		NewQuizboardCommand(deps),
		NewGroupsCommand(deps),
		NewHelpCommand(deps),
		NewHiCommand(deps),
		NewPingCommand(deps),
		NewTimeCommand(deps),
		NewImageCommand(deps),
		NewMemeCommand(deps),
		NewPollCommand(deps),
	}
}

// NewBuiltinRegistry registers Builtin into a fresh registry.
func NewBuiltinRegistry(deps *Dependencies) (*Registry, error) {
	registry := NewRegistry()
	for _, cmd := range Builtin(deps) {
		if err := registry.Register(cmd); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
