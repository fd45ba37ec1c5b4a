package tasks

import (
	"errors"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/storges/tapminer/tapminer/economy/state"
)

var ErrUnknownTask = errors.New("unknown task")

type Status string

const (
	StatusLocked    Status = "locked"
	StatusClaimable Status = "claimable"
	StatusCompleted Status = "completed"
)

// Task is a one-time reward. Progress reports the current progress
// towards Target; a task without a target is claimable right away.
type Task struct {
	ID            string
	Title         string
	Reward        float64
	Target        float64
	ActivateBoost bool
	Progress      func(pe state.PlayerEconomy) float64
}

// Catalog is the fixed list of tasks offered to every player.
var Catalog = []Task{
	{
		ID:     "invite_frens",
		Title:  "Invite 5 frens",
		Reward: 120,
		Target: 5,
		Progress: func(pe state.PlayerEconomy) float64 {
			return float64(pe.ReferralCount)
		},
	},
	{
		ID:            "boost_storge",
		Title:         "Boost Storge",
		Reward:        200,
		ActivateBoost: true,
	},
	{
		ID:     "farm_storge",
		Title:  "Farm Storge",
		Reward: 150,
		Target: 1000,
		Progress: func(pe state.PlayerEconomy) float64 {
			return pe.Balance
		},
	},
	{
		ID:     "subscribe_telegram",
		Title:  "Subscribe to Storge Telegram",
		Reward: 90,
	},
}

// View is the evaluated state of a task for one player.
type View struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Reward   float64 `json:"reward"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Target   float64 `json:"target"`
}

func (t Task) Eligible(pe state.PlayerEconomy) bool {
	if t.Progress == nil || t.Target <= 0 {
		return true
	}
	return t.Progress(pe) >= t.Target
}

func (t Task) Evaluate(pe state.PlayerEconomy) View {
	v := View{ID: t.ID, Title: t.Title, Reward: t.Reward, Target: t.Target}
	if t.Progress != nil {
		v.Progress = min(t.Progress(pe), t.Target)
	}

	switch {
	case pe.TaskCompleted(t.ID):
		v.Status = StatusCompleted
	case t.Eligible(pe):
		v.Status = StatusClaimable
	default:
		v.Status = StatusLocked
	}
	return v
}

// Evaluate returns the status of every catalog task.
func Evaluate(pe state.PlayerEconomy) []View {
	views := make([]View, 0, len(Catalog))
	for _, t := range Catalog {
		views = append(views, t.Evaluate(pe))
	}
	return views
}

type catalogSource []Task

func (c catalogSource) String(i int) string { return c[i].ID + " " + strings.ToLower(c[i].Title) }
func (c catalogSource) Len() int            { return len(c) }

// Find resolves a task by id, falling back to a fuzzy match on id and title.
func Find(query string) (Task, error) {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return Task{}, ErrUnknownTask
	}
	for _, t := range Catalog {
		if t.ID == query {
			return t, nil
		}
	}

	matches := fuzzy.FindFrom(query, catalogSource(Catalog))
	if len(matches) == 0 {
		return Task{}, ErrUnknownTask
	}
	return Catalog[matches[0].Index], nil
}
