package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/storges/tapminer/backend/models"
	"github.com/storges/tapminer/backend/utils"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/logger"
	"github.com/storges/tapminer/tapminer/persistence"
	"github.com/storges/tapminer/tapminer/session"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	eventBuffer             = 64
	heartbeatInterval       = 15 * time.Second
	maxPlayerIDLength       = 64
)

// Pinger reports whether the profile store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WebApp represents the web application with all dependencies
type WebApp struct {
	Sessions  *session.Manager
	Bridge    *persistence.Bridge
	Store     Pinger
	StoreName string
	Version   string
	Commit    string
}

func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := models.HealthStatus{
			Status:   "ok",
			Version:  webApp.Version,
			Commit:   webApp.Commit,
			Sessions: webApp.Sessions.Len(),
			Store:    webApp.StoreName,
		}

		if webApp.Store != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := webApp.Store.Ping(ctx); err != nil {
				status.Status = "degraded"
				slog.Warn("Health check store ping failed",
					slog.String("type", "db"),
					slog.Any("error", err))
			}
		}
		return utils.SendSuccess(c, status, "")
	}
}

func OpenSession(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID, err := playerIDParam(c)
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}

		s, err := webApp.Sessions.Open(c.UserContext(), playerID)
		if err != nil {
			logger.LogError("Failed to open session", err, slog.String("player_id", playerID))
			return utils.SendInternalServerError(c, "Failed to open session")
		}
		return utils.SendSuccess(c, s.Snapshot(), "Session opened")
	}
}

func CloseSession(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID, err := playerIDParam(c)
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		if !webApp.Sessions.Close(playerID) {
			return utils.SendNotFound(c, "No live session for player")
		}
		return utils.SendSuccess(c, nil, "Session closed")
	}
}

func GetPlayer(webApp *WebApp) fiber.Handler {
	return withSession(webApp, func(c *fiber.Ctx, s *session.Session) error {
		return utils.SendSuccess(c, s.Snapshot(), "")
	})
}

// PlayerEvents streams every committed change of the session as server-sent
// events, starting with the current snapshot. Changes are dropped for a
// client that falls behind.
func PlayerEvents(webApp *WebApp) fiber.Handler {
	return withSession(webApp, func(c *fiber.Ctx, s *session.Session) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		events := make(chan state.Change, eventBuffer)
		unsubscribe := s.Subscribe(func(ch state.Change) {
			select {
			case events <- ch:
			default:
			}
		})
		initial := s.Snapshot()
		playerID := s.PlayerID()

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer unsubscribe()

			if err := writeEvent(w, "snapshot", initial); err != nil {
				return
			}

			heartbeat := time.NewTicker(heartbeatInterval)
			defer heartbeat.Stop()

			for {
				select {
				case ch := <-events:
					if err := writeEvent(w, string(ch.Cause), ch); err != nil {
						slog.Debug("Event stream closed",
							slog.String("type", "sys"),
							slog.String("player_id", playerID),
							slog.Any("error", err))
						return
					}
				case <-heartbeat.C:
					if _, err := w.WriteString(": ping\n\n"); err != nil {
						return
					}
					if err := w.Flush(); err != nil {
						return
					}
				case <-s.Done():
					_ = writeEvent(w, "closed", s.Snapshot())
					return
				}
			}
		})
		return nil
	})
}

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

func Tap(webApp *WebApp) fiber.Handler {
	return withSession(webApp, func(c *fiber.Ctx, s *session.Session) error {
		var req models.TapRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return utils.SendBadRequest(c, "Invalid tap payload", nil)
			}
		}
		return actionResult(c, s, "tap", func() bool { return s.Tap(req.X, req.Y) })
	})
}

func Claim(webApp *WebApp) fiber.Handler {
	return withSession(webApp, func(c *fiber.Ctx, s *session.Session) error {
		return actionResult(c, s, "claim", s.Claim)
	})
}

func BuyUpgrade(webApp *WebApp) fiber.Handler {
	return withSession(webApp, func(c *fiber.Ctx, s *session.Session) error {
		track, err := state.TrackByName(c.Params("track"))
		if err != nil {
			return utils.SendBadRequest(c, "Unknown upgrade track", map[string]string{
				"track": c.Params("track"),
			})
		}
		return actionResult(c, s, "upgrade:"+track.String(), func() bool { return s.BuyUpgrade(track) })
	})
}

func ListTasks(webApp *WebApp) fiber.Handler {
	return withSession(webApp, func(c *fiber.Ctx, s *session.Session) error {
		return utils.SendSuccess(c, s.Tasks(), "")
	})
}

func ClaimTask(webApp *WebApp) fiber.Handler {
	return withSession(webApp, func(c *fiber.Ctx, s *session.Session) error {
		start := time.Now()
		applied, err := s.ClaimTask(c.Params("task"))
		switch {
		case errors.Is(err, session.ErrUnknownTask):
			return utils.SendNotFound(c, "Unknown task")
		case errors.Is(err, session.ErrSessionClosed):
			return utils.SendNotFound(c, "No live session for player")
		case err != nil:
			return utils.SendInternalServerError(c, "Failed to claim task")
		}
		logger.LogAction("task:"+c.Params("task"), s.PlayerID(), applied, time.Since(start))
		return utils.SendSuccess(c, models.ActionResult{Applied: applied, State: s.Snapshot()}, "")
	})
}

func RecordReferral(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		referrerID, err := playerIDParam(c)
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}

		var req models.ReferralRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid referral payload", nil)
		}
		req.PlayerID = strings.TrimSpace(req.PlayerID)
		if req.PlayerID == "" || req.PlayerID == referrerID {
			return utils.SendBadRequest(c, "Referral needs a player other than the referrer", map[string]string{
				"player_id": req.PlayerID,
			})
		}

		summary := state.ReferralSummary{PlayerID: req.PlayerID, Name: req.Name}
		if !webApp.Sessions.RecordReferral(referrerID, summary) {
			return utils.SendServiceUnavailable(c, "Referral could not be queued")
		}
		return utils.SendSuccess(c, nil, "Referral recorded")
	}
}

func Leaderboard(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultLeaderboardLimit)
		if limit <= 0 {
			limit = defaultLeaderboardLimit
		}
		limit = min(limit, maxLeaderboardLimit)

		entries, err := webApp.Bridge.TopPlayers(c.UserContext(), limit)
		if errors.Is(err, persistence.ErrUnsupported) {
			return utils.SendNotImplemented(c, "Leaderboard not supported by the profile store")
		}
		if err != nil {
			logger.LogError("Failed to load leaderboard", err)
			return utils.SendInternalServerError(c, "Failed to load leaderboard")
		}
		return utils.SendSuccess(c, entries, "")
	}
}

func Stats(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := webApp.Bridge.Stats(c.UserContext())
		if errors.Is(err, persistence.ErrUnsupported) {
			return utils.SendNotImplemented(c, "Stats not supported by the profile store")
		}
		if err != nil {
			logger.LogError("Failed to load stats", err)
			return utils.SendInternalServerError(c, "Failed to load stats")
		}
		return utils.SendSuccess(c, stats, "")
	}
}

func withSession(webApp *WebApp, fn func(c *fiber.Ctx, s *session.Session) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID, err := playerIDParam(c)
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		s, ok := webApp.Sessions.Get(playerID)
		if !ok {
			return utils.SendNotFound(c, "No live session for player")
		}
		return fn(c, s)
	}
}

func actionResult(c *fiber.Ctx, s *session.Session, name string, action func() bool) error {
	start := time.Now()
	applied := action()
	logger.LogAction(name, s.PlayerID(), applied, time.Since(start))
	return utils.SendSuccess(c, models.ActionResult{Applied: applied, State: s.Snapshot()}, "")
}

func playerIDParam(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" || len(id) > maxPlayerIDLength {
		return "", errors.New("invalid player id")
	}
	// fiber reuses the param buffer after the handler returns
	return strings.Clone(id), nil
}
