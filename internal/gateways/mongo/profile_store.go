package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/storges/tapminer/internal/domain/logger"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/persistence"
)

const (
	playersCollection = "players"
	statsCollection   = "game_state"
	statsDocumentID   = "main"
)

type Config struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Timeout  int    `toml:"timeout"`
}

// playerDocument is the stored form of a profile.
type playerDocument struct {
	ID                string                        `bson:"_id"`
	Score             float64                       `bson:"score"`
	Balance           float64                       `bson:"balance"`
	Energy            int                           `bson:"energy"`
	MaxEnergy         int                           `bson:"max_energy"`
	IncomeRate        float64                       `bson:"income_rate"`
	ClaimableAmount   float64                       `bson:"claimable_amount"`
	CooldownUntil     time.Time                     `bson:"cooldown_until,omitempty"`
	Multiplier        float64                       `bson:"multiplier"`
	MiningRobotActive bool                          `bson:"mining_robot_active"`
	TapBoostActive    bool                          `bson:"tap_boost_active"`
	TapBoostPermanent bool                          `bson:"tap_boost_permanent"`
	ChargerActive     bool                          `bson:"charger_active"`
	Upgrades          map[string]state.UpgradeTrack `bson:"upgrades"`
	ReferralCount     int                           `bson:"referral_count"`
	Referrals         []state.ReferralSummary       `bson:"referrals,omitempty"`
	CompletedTasks    []string                      `bson:"completed_tasks,omitempty"`
	CreatedAt         time.Time                     `bson:"created_at"`
	UpdatedAt         time.Time                     `bson:"updated_at"`
}

func (d *playerDocument) economy() state.PlayerEconomy {
	pe := state.PlayerEconomy{
		Score:             d.Score,
		Balance:           d.Balance,
		Energy:            d.Energy,
		MaxEnergy:         d.MaxEnergy,
		IncomeRate:        d.IncomeRate,
		ClaimableAmount:   d.ClaimableAmount,
		CooldownUntil:     d.CooldownUntil,
		Multiplier:        d.Multiplier,
		MiningRobotActive: d.MiningRobotActive,
		TapBoostActive:    d.TapBoostPermanent,
		TapBoostPermanent: d.TapBoostPermanent,
		ChargerActive:     d.ChargerActive,
		ReferralCount:     d.ReferralCount,
		Referrals:         d.Referrals,
		CompletedTasks:    d.CompletedTasks,
	}
	for i := range pe.Upgrades {
		pe.Upgrades[i] = state.UpgradeTrack{Level: state.MinTrackLevel}
	}
	persistence.ApplyUpgrades(&pe, d.Upgrades)
	return pe
}

type statsDocument struct {
	TotalPlayers        int64   `bson:"total_players"`
	ActivePlayers       int64   `bson:"active_players"`
	OverallRewardPoints float64 `bson:"overall_reward_points"`
}

// ProfileStore keeps one document per player in the players collection and
// the global counters in a single game_state document.
type ProfileStore struct {
	client  *mongo.Client
	players *mongo.Collection
	stats   *mongo.Collection
}

var _ persistence.Store = (*ProfileStore)(nil)

func Connect(ctx context.Context, cfg Config) (*ProfileStore, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.URI).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	return NewProfileStore(client, cfg.Database), nil
}

func NewProfileStore(client *mongo.Client, database string) *ProfileStore {
	db := client.Database(database)
	return &ProfileStore{
		client:  client,
		players: db.Collection(playersCollection),
		stats:   db.Collection(statsCollection),
	}
}

// EnsureIndexes creates the leaderboard index.
func (s *ProfileStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.players.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: persistence.FieldBalance, Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create balance index: %w", err)
	}
	return nil
}

func (s *ProfileStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *ProfileStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *ProfileStore) Get(ctx context.Context, playerID string) (*persistence.Profile, error) {
	filter := bson.M{"_id": playerID}
	ql := logger.NewQueryLogger("find_one", playersCollection, filter)

	var doc playerDocument
	err := s.players.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		ql.Log(nil, 0)
		return nil, persistence.ErrProfileNotFound
	}
	ql.Log(err, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", playerID, err)
	}

	return &persistence.Profile{
		PlayerID:  doc.ID,
		Economy:   doc.economy(),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Set upserts the player document. Without merge every profile field is
// rewritten from fields on top of the defaults.
func (s *ProfileStore) Set(ctx context.Context, playerID string, fields persistence.Fields, merge bool) error {
	if !merge {
		pe := state.New(state.DefaultRules())
		if err := persistence.ApplyFields(&pe, fields); err != nil {
			return err
		}
		fields = persistence.NewProfileFields(pe)
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		if _, err := fieldKind(k); err != nil {
			return err
		}
		set[k] = v
	}

	filter := bson.M{"_id": playerID}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": time.Now()},
	}

	ql := logger.NewQueryLogger("update_one", playersCollection, filter)
	res, err := s.players.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		ql.Log(err, 0)
		return fmt.Errorf("failed to set player %s: %w", playerID, err)
	}
	ql.Log(nil, res.ModifiedCount+res.UpsertedCount)
	return nil
}

func (s *ProfileStore) Increment(ctx context.Context, playerID, field string, delta float64) error {
	if !persistence.NumericFields[field] {
		return fmt.Errorf("%w: %s", persistence.ErrUnknownField, field)
	}

	var inc any = delta
	if kind, _ := fieldKind(field); kind == kindInt {
		inc = int64(delta)
	}

	filter := bson.M{"_id": playerID}
	update := bson.M{
		"$inc": bson.M{field: inc},
		"$set": bson.M{"updated_at": time.Now()},
	}
	return s.updateExisting(ctx, "increment", filter, update)
}

func (s *ProfileStore) AppendReferral(ctx context.Context, referrerID string, referral state.ReferralSummary) error {
	filter := bson.M{"_id": referrerID}
	update := bson.M{
		"$push": bson.M{"referrals": referral},
		"$inc":  bson.M{persistence.FieldReferralCount: 1},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	return s.updateExisting(ctx, "append_referral", filter, update)
}

func (s *ProfileStore) updateExisting(ctx context.Context, op string, filter, update bson.M) error {
	ql := logger.NewQueryLogger(op, playersCollection, filter)
	res, err := s.players.UpdateOne(ctx, filter, update)
	if err != nil {
		ql.Log(err, 0)
		return fmt.Errorf("%s failed: %w", op, err)
	}
	ql.Log(nil, res.ModifiedCount)
	if res.MatchedCount == 0 {
		return persistence.ErrProfileNotFound
	}
	return nil
}

func (s *ProfileStore) IncrementStat(ctx context.Context, stat string, delta float64) error {
	var inc any
	switch stat {
	case persistence.StatTotalPlayers, persistence.StatActivePlayers:
		inc = int64(delta)
	case persistence.StatOverallRewardPoints:
		inc = delta
	default:
		return fmt.Errorf("%w: %s", persistence.ErrUnknownField, stat)
	}

	filter := bson.M{"_id": statsDocumentID}
	ql := logger.NewQueryLogger("increment_stat", statsCollection, filter)
	_, err := s.stats.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{stat: inc}}, options.Update().SetUpsert(true))
	ql.Log(err, 1)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", stat, err)
	}
	return nil
}

func (s *ProfileStore) Stats(ctx context.Context) (*persistence.GameStats, error) {
	var doc statsDocument
	err := s.stats.FindOne(ctx, bson.M{"_id": statsDocumentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &persistence.GameStats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game stats: %w", err)
	}
	return &persistence.GameStats{
		TotalPlayers:        doc.TotalPlayers,
		ActivePlayers:       doc.ActivePlayers,
		OverallRewardPoints: doc.OverallRewardPoints,
	}, nil
}

func (s *ProfileStore) TopPlayers(ctx context.Context, limit int) ([]persistence.LeaderboardEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: persistence.FieldBalance, Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{persistence.FieldBalance: 1})

	ql := logger.NewQueryLogger("find", playersCollection, bson.M{})
	cur, err := s.players.Find(ctx, bson.M{}, opts)
	if err != nil {
		ql.Log(err, 0)
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer cur.Close(ctx)

	var entries []persistence.LeaderboardEntry
	for cur.Next(ctx) {
		var doc struct {
			ID      string  `bson:"_id"`
			Balance float64 `bson:"balance"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode leaderboard entry: %w", err)
		}
		entries = append(entries, persistence.LeaderboardEntry{
			PlayerID: doc.ID,
			Balance:  doc.Balance,
			Tier:     state.CurrentLevelTier(doc.Balance).Name,
		})
	}
	ql.Log(cur.Err(), int64(len(entries)))
	return entries, cur.Err()
}

// Each streams every stored profile to fn in id order.
func (s *ProfileStore) Each(ctx context.Context, fn func(p *persistence.Profile) error) error {
	cur, err := s.players.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc playerDocument
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode player: %w", err)
		}
		if err := fn(&persistence.Profile{
			PlayerID:  doc.ID,
			Economy:   doc.economy(),
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		}); err != nil {
			return err
		}
	}
	return cur.Err()
}

type valueKind int

const (
	kindFloat valueKind = iota
	kindInt
	kindOther
)

// fieldKind validates a field name and tells how numbers in it are stored.
func fieldKind(field string) (valueKind, error) {
	switch field {
	case persistence.FieldScore, persistence.FieldBalance, persistence.FieldIncomeRate,
		persistence.FieldClaimableAmount, persistence.FieldMultiplier:
		return kindFloat, nil
	case persistence.FieldEnergy, persistence.FieldMaxEnergy, persistence.FieldReferralCount:
		return kindInt, nil
	case persistence.FieldCooldownUntil, persistence.FieldMiningRobotActive, persistence.FieldTapBoostActive,
		persistence.FieldTapBoostPermanent, persistence.FieldChargerActive, persistence.FieldUpgrades,
		persistence.FieldCompletedTasks:
		return kindOther, nil
	default:
		return kindOther, fmt.Errorf("%w: %s", persistence.ErrUnknownField, field)
	}
}
