package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stupiduntilnot/chatrelay/internal/control"
)

// Generator produces a sampled reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder appends an exchange to the durable log and returns its id.
type Recorder interface {
	Record(ctx context.Context, contextLabel, userInput, botResponse string) (int64, error)
}

// Sender delivers a message to a channel.
type Sender interface {
	Send(ctx context.Context, channelID, text string) error
}

// DeliveryError wraps an outbound send failure. Stage is "reply" for the
// answer send and "ack" for the identifier-bearing follow-up.
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery %s: %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Pipeline runs the message-handling state machine for inbound events.
// Dependencies are injected so the logic is testable without a live model,
// platform session, or real database.
type Pipeline struct {
	selfID  string
	gen     Generator
	rec     Recorder
	send    Sender
	limiter *control.Limiter
	log     *zap.Logger
}

// New creates a pipeline acting as the identity selfID.
func New(selfID string, gen Generator, rec Recorder, send Sender, limiter *control.Limiter, log *zap.Logger) *Pipeline {
	if limiter == nil {
		limiter = control.NewLimiter(0, 0)
	}
	return &Pipeline{
		selfID:  selfID,
		gen:     gen,
		rec:     rec,
		send:    send,
		limiter: limiter,
		log:     log,
	}
}

// isSelf reports whether the event originated from the bot's own identity.
// Filtering self-originated events prevents reply loops.
func (p *Pipeline) isSelf(authorID string) bool {
	return authorID == p.selfID
}

// stripAddressing removes the bot's mention tokens from the content and
// trims surrounding whitespace.
func (p *Pipeline) stripAddressing(content string) string {
	for _, token := range []string{"<@" + p.selfID + ">", "<@!" + p.selfID + ">"} {
		content = strings.ReplaceAll(content, token, "")
	}
	return strings.TrimSpace(content)
}

// HandleMessage runs one pipeline instance. Self-originated and unaddressed
// events terminate with no side effects. An addressed event produces exactly
// one generation call, one recorded exchange, and two sends: the reply, then
// the acknowledgment carrying the assigned conversation id. Failures are
// fail-fast: the remainder of the instance is dropped, with no retries.
func (p *Pipeline) HandleMessage(ctx context.Context, ev Event) error {
	if p.isSelf(ev.AuthorID) {
		return nil
	}
	if !ev.Addresses(p.selfID) {
		return nil
	}

	log := p.log.With(
		zap.String("trace_id", uuid.NewString()),
		zap.String("channel_id", ev.ChannelID),
		zap.String("author_id", ev.AuthorID),
	)

	prompt := p.stripAddressing(ev.Content)

	var reply string
	err := p.limiter.Do(ctx, func(ctx context.Context) error {
		var genErr error
		reply, genErr = p.gen.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		log.Error("generation failed",
			zap.String("error_class", "inference"),
			zap.Error(err))
		return err
	}

	// Delivery is deliberately not gated on durability: the user gets an
	// answer even if the record step fails afterwards.
	mention := ev.AuthorMention
	if mention == "" {
		mention = "<@" + ev.AuthorID + ">"
	}
	if err := p.send.Send(ctx, ev.ChannelID, mention+" "+reply); err != nil {
		derr := &DeliveryError{Stage: "reply", Err: err}
		log.Error("reply send failed",
			zap.String("error_class", "delivery"),
			zap.Error(derr))
		return derr
	}

	id, err := p.rec.Record(ctx, "", prompt, reply)
	if err != nil {
		log.Error("record failed",
			zap.String("error_class", "store"),
			zap.Error(err))
		return err
	}

	ack := fmt.Sprintf("%s %s Conversation ID: %d", mention, reply, id)
	if err := p.send.Send(ctx, ev.ChannelID, ack); err != nil {
		derr := &DeliveryError{Stage: "ack", Err: err}
		log.Error("acknowledgment send failed",
			zap.String("error_class", "delivery"),
			zap.Int64("conversation_id", id),
			zap.Error(derr))
		return derr
	}

	log.Info("exchange acknowledged", zap.Int64("conversation_id", id))
	return nil
}
