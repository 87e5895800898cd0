package discord

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

func TestEventFromMessage(t *testing.T) {
	m := &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "m1",
			ChannelID: "chan1",
			Content:   "<@bot> hello there",
			Author:    &discordgo.User{ID: "user1"},
			Mentions: []*discordgo.User{
				{ID: "bot"},
				{ID: "user2"},
			},
		},
	}

	ev := eventFromMessage(m)
	require.Equal(t, "user1", ev.AuthorID)
	require.Equal(t, "<@user1>", ev.AuthorMention)
	require.Equal(t, "<@bot> hello there", ev.Content)
	require.Equal(t, []string{"bot", "user2"}, ev.Mentions)
	require.Equal(t, "chan1", ev.ChannelID)
	require.True(t, ev.Addresses("bot"))
	require.False(t, ev.Addresses("user3"))
}

func TestTruncate_CapsAtPlatformLimit(t *testing.T) {
	long := strings.Repeat("a", maxMessageLen+100)
	require.Len(t, truncate(long, maxMessageLen), maxMessageLen)

	short := "hi!"
	require.Equal(t, short, truncate(short, maxMessageLen))
}
