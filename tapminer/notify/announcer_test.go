package notify

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/storges/tapminer/tapminer/economy/state"
)

type recordingSender struct {
	mu       sync.Mutex
	channels []snowflake.ID
	messages []discord.MessageCreate
	err      error
}

func (s *recordingSender) CreateMessage(channelID snowflake.ID, m discord.MessageCreate, _ ...rest.RequestOpt) (*discord.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, channelID)
	s.messages = append(s.messages, m)
	return &discord.Message{}, s.err
}

func TestAnnouncer(t *testing.T) {
	sender := &recordingSender{}
	channel := snowflake.ID(1301232741697851395)
	a := newAnnouncer(sender, channel, 4)

	a.Promoted("p1", state.Tiers[0], state.Tiers[1])
	a.Maxed("p1", state.TrackCharger)
	a.Close()

	if len(sender.messages) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sender.messages))
	}
	for _, c := range sender.channels {
		if c != channel {
			t.Errorf("channel = %v, want %v", c, channel)
		}
	}

	promo := sender.messages[0]
	if len(promo.Embeds) != 1 || !strings.Contains(promo.Embeds[0].Description, "Working Class") {
		t.Errorf("promotion embed = %+v", promo.Embeds)
	}
	if !strings.Contains(sender.messages[1].Content, "charger") {
		t.Errorf("maxed content = %q", sender.messages[1].Content)
	}
}

func TestAnnouncerAfterClose(t *testing.T) {
	sender := &recordingSender{err: errors.New("rate limited")}
	a := newAnnouncer(sender, snowflake.ID(1), 1)
	a.Maxed("p1", state.TrackMultiplier)
	a.Close()
	a.Close()

	a.Maxed("p1", state.TrackMultiplier)
	if len(sender.messages) != 1 {
		t.Errorf("sent %d messages, want 1", len(sender.messages))
	}
}

func TestNewRejectsBadChannel(t *testing.T) {
	if _, err := New(Config{Token: "t", ChannelID: "general"}); err == nil {
		t.Error("New() error = nil for a non-numeric channel")
	}
}
