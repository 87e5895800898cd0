package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/stupiduntilnot/chatrelay/internal/pipeline"
)

// maxMessageLen is the Discord message content limit.
const maxMessageLen = 2000

// Handler consumes translated inbound events.
type Handler interface {
	HandleMessage(ctx context.Context, ev pipeline.Event) error
}

// Adapter connects the pipeline to the Discord gateway: it translates
// message-create events into pipeline events and implements the outbound
// send primitive.
type Adapter struct {
	session *discordgo.Session
	self    *discordgo.User
	log     *zap.Logger
}

// New creates an adapter for the given bot token and resolves the bot's own
// identity.
func New(token string, log *zap.Logger) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	self, err := session.User("@me")
	if err != nil {
		return nil, fmt.Errorf("resolve bot identity: %w", err)
	}

	return &Adapter{session: session, self: self, log: log}, nil
}

// SelfID returns the bot's own user id.
func (a *Adapter) SelfID() string {
	return a.self.ID
}

// Run opens the gateway session and dispatches inbound messages to the
// handler until ctx is cancelled. Each message is handled in its own
// goroutine so a slow pipeline instance never blocks intake. Handler errors
// are logged and the event dropped; there is no redelivery.
func (a *Adapter) Run(ctx context.Context, h Handler) error {
	a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.log.Info("logged in",
			zap.String("username", r.User.Username),
			zap.String("user_id", r.User.ID))
	})
	a.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		ev := eventFromMessage(m)
		go func() {
			if err := h.HandleMessage(ctx, ev); err != nil {
				a.log.Error("message handling failed",
					zap.String("message_id", m.ID),
					zap.String("channel_id", m.ChannelID),
					zap.Error(err))
			}
		}()
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	<-ctx.Done()
	if err := a.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// Send delivers text to the given channel, truncated to the platform limit.
func (a *Adapter) Send(_ context.Context, channelID, text string) error {
	if _, err := a.session.ChannelMessageSend(channelID, truncate(text, maxMessageLen)); err != nil {
		return fmt.Errorf("discord send channel=%s: %w", channelID, err)
	}
	return nil
}

func eventFromMessage(m *discordgo.MessageCreate) pipeline.Event {
	mentions := make([]string, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		mentions = append(mentions, u.ID)
	}
	return pipeline.Event{
		AuthorID:      m.Author.ID,
		AuthorMention: m.Author.Mention(),
		Content:       m.Content,
		Mentions:      mentions,
		ChannelID:     m.ChannelID,
	}
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
