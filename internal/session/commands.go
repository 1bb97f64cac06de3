package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/token"
)

const (
	CommandStart   = "tsuyaku"
	CommandStop    = "tsuyaku-stop"
	optionLanguage = "language"

	slashCommandTimeout = 10 * time.Second
)

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{
			Name:        CommandStart,
			Description: slashCommandStartDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionLanguage, Description: slashCommandLanguageDescription},
			},
		},
		{Name: CommandStop, Description: slashCommandStopDescription},
	}
}

func (c *Controller) HandleSlashCommand(event discord.SlashCommandEvent) {
	if event.GuildID != c.cfg.DiscordGuildID {
		slog.Info("ignoring slash command for different guild", "event_guild_id", event.GuildID, "configured_guild_id", c.cfg.DiscordGuildID)
		respond(event, messageEphemeralWrongGuild)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), slashCommandTimeout)
	defer cancel()

	switch event.CommandName {
	case CommandStart:
		language := strings.TrimSpace(event.Options[optionLanguage])
		st, err := c.Start(ctx, language)
		switch {
		case err == nil:
			respond(event, startEphemeralMessage(st.SourceLanguage, st.TargetLanguage))
		case errors.Is(err, ErrAlreadyActive):
			respond(event, messageEphemeralAlreadyRunning)
		case errors.Is(err, token.ErrAuthentication):
			respond(event, messageEphemeralAuthFailed)
		default:
			respond(event, messageEphemeralStartFailed)
		}
	case CommandStop:
		if _, err := c.Stop(ctx); err != nil {
			respond(event, messageEphemeralNotRunning)
			return
		}
		respond(event, stopEphemeralMessage())
	default:
		respond(event, messageEphemeralUnknownCommand)
	}
}

func respond(event discord.SlashCommandEvent, content string) {
	if event.RespondEphemeral == nil {
		return
	}
	if err := event.RespondEphemeral(content); err != nil {
		slog.Error("failed to respond to slash command", "error", err, "command", event.CommandName, "user_id", event.UserID)
	}
}
