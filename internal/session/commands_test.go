package session

import (
	"strings"
	"testing"

	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/token"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
)

func slashEvent(guildID, command string, options map[string]string, replies *[]string) discord.SlashCommandEvent {
	return discord.SlashCommandEvent{
		GuildID:     guildID,
		ChannelID:   "text-1",
		CommandName: command,
		UserID:      "user-1",
		Options:     options,
		RespondEphemeral: func(content string) error {
			*replies = append(*replies, content)
			return nil
		},
	}
}

func TestSlashCommandDefinitions(t *testing.T) {
	defs := SlashCommandDefinitions()
	if len(defs) != 2 || defs[0].Name != CommandStart || defs[1].Name != CommandStop {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
	if len(defs[0].Options) != 1 || defs[0].Options[0].Name != optionLanguage || defs[0].Options[0].Required {
		t.Fatalf("expected an optional language option, got %+v", defs[0].Options)
	}
}

func TestHandleSlashCommand_StartAndStop(t *testing.T) {
	f := newFixture(t, transcriber.Capabilities{}, nil)
	var replies []string

	f.controller.HandleSlashCommand(slashEvent("guild-1", CommandStart, map[string]string{optionLanguage: " es "}, &replies))
	if st := f.controller.Status(); st.State != StateActive || st.SourceLanguage != "es" {
		t.Fatalf("expected active session in es, got %+v", st)
	}
	f.controller.HandleSlashCommand(slashEvent("guild-1", CommandStart, nil, &replies))
	f.controller.HandleSlashCommand(slashEvent("guild-1", CommandStop, nil, &replies))
	f.controller.HandleSlashCommand(slashEvent("guild-1", CommandStop, nil, &replies))

	if len(replies) != 4 {
		t.Fatalf("expected 4 replies, got %d", len(replies))
	}
	if !strings.Contains(replies[0], "es → en") {
		t.Fatalf("unexpected start reply: %q", replies[0])
	}
	if replies[1] != messageEphemeralAlreadyRunning {
		t.Fatalf("unexpected reply for second start: %q", replies[1])
	}
	if !strings.HasPrefix(replies[2], messageStopEphemeralTitle) {
		t.Fatalf("unexpected stop reply: %q", replies[2])
	}
	if replies[3] != messageEphemeralNotRunning {
		t.Fatalf("unexpected reply for second stop: %q", replies[3])
	}
}

func TestHandleSlashCommand_Rejections(t *testing.T) {
	f := newFixture(t, transcriber.Capabilities{NeedsToken: true}, nil)
	f.tokens.err = token.ErrAuthentication
	var replies []string

	f.controller.HandleSlashCommand(slashEvent("other-guild", CommandStart, nil, &replies))
	f.controller.HandleSlashCommand(slashEvent("guild-1", "unknown", nil, &replies))
	f.controller.HandleSlashCommand(slashEvent("guild-1", CommandStart, nil, &replies))

	want := []string{messageEphemeralWrongGuild, messageEphemeralUnknownCommand, messageEphemeralAuthFailed}
	if len(replies) != len(want) {
		t.Fatalf("expected %d replies, got %q", len(want), replies)
	}
	for i := range want {
		if replies[i] != want[i] {
			t.Fatalf("reply %d: expected %q, got %q", i, want[i], replies[i])
		}
	}
	if f.transcriber.callCount() != 0 {
		t.Fatal("expected no stream to be opened")
	}
}
