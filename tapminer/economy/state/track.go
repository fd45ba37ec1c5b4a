package state

import (
	"errors"
	"strings"

	"github.com/sahilm/fuzzy"
)

var ErrUnknownTrack = errors.New("unknown upgrade track")

// Track identifies one of the five permanent upgrade tracks.
type Track int

const (
	TrackMultiplier Track = iota
	TrackMiningRobot
	TrackTapBoost
	TrackMaximizer
	TrackCharger

	TrackCount = 5
)

var trackNames = [TrackCount]string{
	TrackMultiplier:  "multiplier",
	TrackMiningRobot: "miningRobot",
	TrackTapBoost:    "tapBoost",
	TrackMaximizer:   "maximizer",
	TrackCharger:     "charger",
}

func (t Track) String() string {
	if t < 0 || int(t) >= TrackCount {
		return "unknown"
	}
	return trackNames[t]
}

func (t Track) Valid() bool {
	return t >= 0 && int(t) < TrackCount
}

func AllTracks() []Track {
	return []Track{TrackMultiplier, TrackMiningRobot, TrackTapBoost, TrackMaximizer, TrackCharger}
}

// TrackByName resolves a track by its exact (case-insensitive) name.
func TrackByName(name string) (Track, error) {
	name = strings.TrimSpace(name)
	for i, n := range trackNames {
		if name != "" && strings.EqualFold(n, name) {
			return Track(i), nil
		}
	}
	return 0, ErrUnknownTrack
}

// ParseTrack resolves a track by name. Exact (case-insensitive) matches win,
// otherwise the best fuzzy match is used so "mining" or "boost" resolve too.
// Actions that spend points use TrackByName instead.
func ParseTrack(name string) (Track, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrUnknownTrack
	}
	if t, err := TrackByName(name); err == nil {
		return t, nil
	}

	matches := fuzzy.Find(strings.ToLower(name), lowerTrackNames())
	if len(matches) == 0 {
		return 0, ErrUnknownTrack
	}
	return Track(matches[0].Index), nil
}

func lowerTrackNames() []string {
	names := make([]string, TrackCount)
	for i, n := range trackNames {
		names[i] = strings.ToLower(n)
	}
	return names
}

// UpgradeTrack is the persistent progress of a single track.
type UpgradeTrack struct {
	Level  int  `json:"level"`
	Active bool `json:"active"`
}
