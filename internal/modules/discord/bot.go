package discord

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/yungbote/pitwall/internal/platform/logger"
)

const (
	CommandPrefix = "!ask"

	// MaxMessageLength is Discord's per-message character limit.
	MaxMessageLength = 2000

	ReplyMissingQuestion = "Please provide a question."
	ReplyUnknown         = "I don't know."
	ReplyError           = "There was an error processing your request."
)

// Answerer turns a question into an answer for a Discord user.
type Answerer interface {
	Ask(ctx context.Context, query, userID string) (string, error)
}

// Sender is the part of *discordgo.Session the bot writes through.
type Sender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

type Config struct {
	Token string
	// AskTimeout bounds one question end to end.
	AskTimeout time.Duration
}

type Bot struct {
	log      *logger.Logger
	cfg      Config
	answerer Answerer
	session  *discordgo.Session
}

func NewBot(log *logger.Logger, cfg Config, answerer Answerer) (*Bot, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("discord: missing DISCORD_TOKEN")
	}
	if answerer == nil {
		return nil, errors.New("discord: missing answerer")
	}
	if cfg.AskTimeout <= 0 {
		cfg.AskTimeout = 2 * time.Minute
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	b := &Bot{
		log:      log.With("service", "DiscordBot"),
		cfg:      cfg,
		answerer: answerer,
		session:  session,
	}
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("Discord bot ready", "user", r.User.Username)
	})
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.HandleMessage(context.Background(), s, m)
	})
	return b, nil
}

// Run connects and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return err
	}
	b.log.Info("Discord session open")
	<-ctx.Done()
	return b.session.Close()
}

// HandleMessage answers one "!ask" message. Messages from bots and messages
// without the prefix are ignored.
func (b *Bot) HandleMessage(ctx context.Context, s Sender, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}
	query, ok := ParseCommand(m.Content)
	if !ok {
		return
	}
	log := b.log.With("channel_id", m.ChannelID, "author_id", m.Author.ID)
	if query == "" {
		b.reply(log, s, m.ChannelID, ReplyMissingQuestion)
		return
	}

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		log.Debug("Typing indicator failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.AskTimeout)
	defer cancel()
	answer, err := b.answerer.Ask(ctx, query, m.Author.ID)
	if err != nil {
		log.Error("Error contacting chat api", "error", err)
		b.reply(log, s, m.ChannelID, ReplyError)
		return
	}
	if strings.TrimSpace(answer) == "" {
		answer = ReplyUnknown
	}
	b.reply(log, s, m.ChannelID, answer)
}

func (b *Bot) reply(log *logger.Logger, s Sender, channelID, content string) {
	for _, part := range SplitMessage(content, MaxMessageLength) {
		if _, err := s.ChannelMessageSend(channelID, part); err != nil {
			log.Error("Discord send failed", "error", err)
			return
		}
	}
}

// ParseCommand reports whether content starts with the ask prefix and
// returns the trimmed question after it.
func ParseCommand(content string) (string, bool) {
	if !strings.HasPrefix(content, CommandPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(content, CommandPrefix)), true
}

// SplitMessage cuts s into parts of at most limit runes, breaking at the
// last newline or space inside the window when there is one.
func SplitMessage(s string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	var parts []string
	rest := []rune(s)
	for len(rest) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if rest[i] == '\n' || rest[i] == ' ' {
				cut = i
				break
			}
		}
		part := strings.TrimRight(string(rest[:cut]), " \n")
		if part != "" {
			parts = append(parts, part)
		}
		rest = []rune(strings.TrimLeft(string(rest[cut:]), " \n"))
	}
	if len(rest) > 0 {
		parts = append(parts, string(rest))
	}
	return parts
}
