package tasks

import (
	"errors"
	"testing"

	"github.com/storges/tapminer/tapminer/economy/state"
)

func TestEvaluate(t *testing.T) {
	fresh := state.New(state.DefaultRules())

	rich := fresh.Clone()
	rich.Balance = 2500
	rich.ReferralCount = 7

	almost := fresh.Clone()
	almost.ReferralCount = 4

	threshold := fresh.Clone()
	threshold.ReferralCount = 5

	done := rich.Clone()
	done.CompleteTask("farm_storge")

	tests := []struct {
		name string
		pe   state.PlayerEconomy
		task string
		want Status
	}{
		{name: "Referrals locked", pe: fresh, task: "invite_frens", want: StatusLocked},
		{name: "Referrals one short", pe: almost, task: "invite_frens", want: StatusLocked},
		{name: "Referrals at threshold", pe: threshold, task: "invite_frens", want: StatusClaimable},
		{name: "Referrals reached", pe: rich, task: "invite_frens", want: StatusClaimable},
		{name: "Farm locked", pe: fresh, task: "farm_storge", want: StatusLocked},
		{name: "Farm reached", pe: rich, task: "farm_storge", want: StatusClaimable},
		{name: "Farm completed", pe: done, task: "farm_storge", want: StatusCompleted},
		{name: "No requirement", pe: fresh, task: "subscribe_telegram", want: StatusClaimable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := Find(tt.task)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if got := task.Evaluate(tt.pe).Status; got != tt.want {
				t.Errorf("Evaluate() status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCapsProgress(t *testing.T) {
	pe := state.New(state.DefaultRules())
	pe.ReferralCount = 12

	views := Evaluate(pe)
	if len(views) != len(Catalog) {
		t.Fatalf("Evaluate() returned %d views, want %d", len(views), len(Catalog))
	}
	if views[0].Progress != 5 || views[0].Target != 5 {
		t.Errorf("invite progress = %v/%v, want 5/5", views[0].Progress, views[0].Target)
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		query   string
		want    string
		wantErr bool
	}{
		{query: "boost_storge", want: "boost_storge"},
		{query: "telegram", want: "subscribe_telegram"},
		{query: "invite", want: "invite_frens"},
		{query: "", wantErr: true},
		{query: "qqqqqq", wantErr: true},
		{query: "thank_you_b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := Find(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Find() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownTask) {
					t.Errorf("Find() error = %v, want ErrUnknownTask", err)
				}
				return
			}
			if got.ID != tt.want {
				t.Errorf("Find() got = %v, want %v", got.ID, tt.want)
			}
		})
	}
}

func TestCatalogIDs(t *testing.T) {
	want := []string{"invite_frens", "boost_storge", "farm_storge", "subscribe_telegram"}
	if len(Catalog) != len(want) {
		t.Fatalf("len(Catalog) = %d, want %d", len(Catalog), len(want))
	}
	for i, task := range Catalog {
		if task.ID != want[i] {
			t.Errorf("Catalog[%d].ID = %q, want %q", i, task.ID, want[i])
		}
	}
}
