package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/storges/tapminer/tapminer/economy/state"
)

const (
	defaultQueueSize = 256
	embedColor       = 0x2b2d31
)

type Config struct {
	Token     string `toml:"token"`
	ChannelID string `toml:"channel_id"`
	QueueSize int    `toml:"queue_size"`
}

func (c Config) Enabled() bool {
	return c.Token != "" && c.ChannelID != ""
}

type messageSender interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// Announcer posts tier promotions and maxed upgrades to a Discord channel.
// Announcements are queued and sent by a single worker; when the queue is
// full they are dropped.
type Announcer struct {
	sender    messageSender
	channelID snowflake.ID
	queue     chan discord.MessageCreate

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func New(cfg Config) (*Announcer, error) {
	channelID, err := snowflake.Parse(cfg.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("invalid announcement channel %q: %w", cfg.ChannelID, err)
	}
	return newAnnouncer(rest.New(rest.NewClient(cfg.Token)), channelID, cfg.QueueSize), nil
}

func newAnnouncer(sender messageSender, channelID snowflake.ID, queueSize int) *Announcer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	a := &Announcer{
		sender:    sender,
		channelID: channelID,
		queue:     make(chan discord.MessageCreate, queueSize),
		done:      make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Announcer) Promoted(playerID string, from, to state.Tier) {
	embed := discord.NewEmbedBuilder().
		SetTitle("⬆️ Tier Promotion").
		SetDescription(fmt.Sprintf("Player `%s` climbed from **%s** to **%s**!", playerID, from.Name, to.Name)).
		SetColor(embedColor).
		Build()
	a.enqueue(discord.MessageCreate{Embeds: []discord.Embed{embed}})
}

func (a *Announcer) Maxed(playerID string, track state.Track) {
	a.enqueue(discord.NewMessageCreateBuilder().
		SetContent(fmt.Sprintf("[MAXED] Player `%s` maxed out **%s**", playerID, track)).
		Build())
}

func (a *Announcer) enqueue(msg discord.MessageCreate) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- msg:
	default:
		slog.Warn("Announcement queue full, dropping message",
			slog.String("type", "sys"))
	}
}

func (a *Announcer) run() {
	defer close(a.done)
	for msg := range a.queue {
		if _, err := a.sender.CreateMessage(a.channelID, msg); err != nil {
			slog.Error("Failed to send to Discord",
				slog.String("type", "error"),
				slog.String("error", err.Error()))
		}
	}
}

// Close stops accepting announcements and waits for the queued ones.
func (a *Announcer) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
}
