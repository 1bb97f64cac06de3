package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/tsuyaku/internal/discord"
)

var errNotConnected = errors.New("discord session is not connected")

// Client wraps a discordgo session. Every method except Connect requires a
// connected session.
type Client struct {
	token   string
	session *discordgo.Session
}

func NewClient(token string) *Client {
	return &Client{token: token}
}

func (c *Client) Connect(_ context.Context) error {
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates)
	s.State.TrackVoice = true
	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	c.session = s
	if s.State.User != nil {
		slog.Info("discord gateway ready", "bot_user_id", s.State.User.ID, "bot_username", s.State.User.Username)
	}
	return nil
}

func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

func (c *Client) JoinVoiceChannel(guildID, channelID string) (discordpkg.VoiceConnection, error) {
	if c.session == nil {
		return nil, errNotConnected
	}
	// Self-deafened: the bot only speaks.
	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel %s: %w", channelID, err)
	}
	slog.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)
	return &voiceConnectionImpl{vc: vc}, nil
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	if c.session == nil {
		return errNotConnected
	}
	_, err := c.session.ChannelMessageSend(channelID, content)
	return err
}

func (c *Client) RegisterSlashCommandHandler(handler func(discordpkg.SlashCommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		event, ok := slashCommandEvent(ic)
		if !ok {
			return
		}
		slog.Info("slash command interaction received", "guild_id", event.GuildID, "channel_id", event.ChannelID, "command", event.CommandName, "user_id", event.UserID)
		event.RespondEphemeral = func(content string) error {
			slog.Info("responding to slash interaction", "command", event.CommandName, "guild_id", event.GuildID, "channel_id", event.ChannelID, "user_id", event.UserID)
			return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: content,
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
		}
		handler(event)
	})
}

// slashCommandEvent extracts the command name, invoking user and string
// options. RespondEphemeral is left for the caller to bind.
func slashCommandEvent(ic *discordgo.InteractionCreate) (discordpkg.SlashCommandEvent, bool) {
	if ic == nil || ic.Interaction == nil || ic.Type != discordgo.InteractionApplicationCommand {
		return discordpkg.SlashCommandEvent{}, false
	}
	data := ic.ApplicationCommandData()
	if data.Name == "" {
		return discordpkg.SlashCommandEvent{}, false
	}
	userID := ""
	if ic.Member != nil && ic.Member.User != nil {
		userID = ic.Member.User.ID
	}
	if userID == "" && ic.User != nil {
		userID = ic.User.ID
	}
	if userID == "" {
		return discordpkg.SlashCommandEvent{}, false
	}
	options := make(map[string]string, len(data.Options))
	for _, opt := range data.Options {
		if opt == nil || opt.Type != discordgo.ApplicationCommandOptionString {
			continue
		}
		options[opt.Name] = opt.StringValue()
	}
	return discordpkg.SlashCommandEvent{
		GuildID:     ic.GuildID,
		ChannelID:   ic.ChannelID,
		CommandName: data.Name,
		UserID:      userID,
		Options:     options,
	}, true
}

// UpsertGuildSlashCommands creates missing commands and edits the ones whose
// description or options drifted. Commands not in defs are left alone.
func (c *Client) UpsertGuildSlashCommands(guildID string, defs []discordpkg.SlashCommandDefinition) error {
	appID := c.applicationID()
	if appID == "" {
		return errors.New("discord application id is not available")
	}
	existing, err := c.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list guild commands: %w", err)
	}
	byName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		if cmd != nil {
			byName[cmd.Name] = cmd
		}
	}

	for _, def := range defs {
		want := applicationCommand(def)
		cur, ok := byName[def.Name]
		switch {
		case !ok:
			_, err = c.session.ApplicationCommandCreate(appID, guildID, want)
		case !sameCommand(cur, want):
			_, err = c.session.ApplicationCommandEdit(appID, guildID, cur.ID, want)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("upsert command %q: %w", def.Name, err)
		}
	}
	return nil
}

func applicationCommand(def discordpkg.SlashCommandDefinition) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        def.Name,
		Description: def.Description,
	}
	for _, opt := range def.Options {
		cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        opt.Name,
			Description: opt.Description,
			Required:    opt.Required,
		})
	}
	return cmd
}

func sameCommand(existing, want *discordgo.ApplicationCommand) bool {
	if existing.Description != want.Description || len(existing.Options) != len(want.Options) {
		return false
	}
	for i, opt := range want.Options {
		got := existing.Options[i]
		if got == nil || got.Name != opt.Name || got.Description != opt.Description || got.Required != opt.Required || got.Type != opt.Type {
			return false
		}
	}
	return true
}

// applicationID falls back to the bot user id, which Discord uses as the
// application id for bot accounts.
func (c *Client) applicationID() string {
	if c.session == nil || c.session.State == nil {
		return ""
	}
	st := c.session.State
	switch {
	case st.Application != nil && st.Application.ID != "":
		return st.Application.ID
	case st.User != nil:
		return st.User.ID
	default:
		return ""
	}
}

type voiceConnectionImpl struct {
	vc *discordgo.VoiceConnection
}

func (v *voiceConnectionImpl) Speaking(speaking bool) error {
	return v.vc.Speaking(speaking)
}

func (v *voiceConnectionImpl) SendOpus(ctx context.Context, frame []byte) error {
	select {
	case v.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *voiceConnectionImpl) Disconnect() error {
	return v.vc.Disconnect()
}
