package discord

import (
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	discordpkg "github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (discordpkg.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewClient(c.DiscordToken), nil
	})
	do.Provide(injector, func(i do.Injector) (*Announcer, error) {
		c := do.MustInvoke[*config.Config](i)
		client := do.MustInvoke[discordpkg.Client](i)
		return NewAnnouncer(client, c.DiscordTextChannelID), nil
	})
	do.ProvideNamed(injector, audio.PlayerDiscord, func(i do.Injector) (audio.Player, error) {
		c := do.MustInvoke[*config.Config](i)
		client := do.MustInvoke[discordpkg.Client](i)
		newEncoder := do.MustInvoke[audio.OpusEncoderFactory](i)
		return NewVoiceOutput(client, c.DiscordGuildID, c.DiscordVoiceChannelID, newEncoder), nil
	})
}
