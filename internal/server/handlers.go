package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/contract"
	"github.com/songzhibin97/supercircle/internal/judge"
	"github.com/songzhibin97/supercircle/internal/lock"
	"github.com/songzhibin97/supercircle/internal/models"
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

type judgeResponse struct {
	Message string           `json:"message"`
	Success bool             `json:"success"`
	Report  *judge.RunReport `json:"report,omitempty"`
}

// GET /api/health
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// POST /api/judge
func (h *handlers) runJudge(w http.ResponseWriter, r *http.Request) {
	// a dropped client must not abort resolutions mid-batch
	report, err := h.deps.Judge.Run(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, lock.ErrLockHeld):
		writeJSON(w, http.StatusConflict, judgeResponse{Message: "Judge run already in progress", Success: false})
	case err != nil:
		h.logger.ErrorContext(r.Context(), "judge run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, judgeResponse{Message: "Error judging challenges", Success: false, Report: report})
	default:
		writeJSON(w, http.StatusOK, judgeResponse{Message: "Judged all challenges", Success: true, Report: report})
	}
}

// GET /api/circles?status=pending|active|resolved&creator=&opponent=
func (h *handlers) listCircles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	keep, err := circleFilter(q.Get("status"), q.Get("creator"), q.Get("opponent"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	circles, err := h.deps.Circles.AllCircles(r.Context())
	if err != nil {
		h.chainError(w, r, "list circles", err)
		return
	}

	result := contract.FilterCircles(circles, keep)
	if result == nil {
		result = []models.Circle{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"circles": result,
		"total":   len(result),
	})
}

func circleFilter(status, creator, opponent string) (func(models.Circle) bool, error) {
	var byStatus func(models.Circle) bool
	switch strings.ToLower(status) {
	case "":
		byStatus = func(models.Circle) bool { return true }
	case "pending":
		byStatus = func(c models.Circle) bool { return c.Status == models.StatusPending }
	case "active":
		byStatus = func(c models.Circle) bool { return !c.Resolved }
	case "resolved":
		byStatus = func(c models.Circle) bool { return c.Resolved }
	default:
		return nil, errors.New("status must be pending, active or resolved")
	}

	return func(c models.Circle) bool {
		if !byStatus(c) {
			return false
		}
		if creator != "" && !contract.SameAddress(c.Creator, creator) {
			return false
		}
		if opponent != "" && (!c.HasOpponent() || !contract.SameAddress(*c.Opponent, opponent)) {
			return false
		}
		return true
	}, nil
}

// GET /api/circles/{id}
func (h *handlers) getCircle(w http.ResponseWriter, r *http.Request) {
	id, ok := circleIDParam(w, r)
	if !ok {
		return
	}

	circle, err := h.deps.Circles.CircleByID(r.Context(), id)
	if err != nil {
		h.chainError(w, r, "get circle", err)
		return
	}
	writeJSON(w, http.StatusOK, circle)
}

// GET /api/circles/search?description=
func (h *handlers) searchCircle(w http.ResponseWriter, r *http.Request) {
	description := strings.TrimSpace(r.URL.Query().Get("description"))
	if description == "" {
		writeError(w, http.StatusBadRequest, "missing description")
		return
	}

	circle, err := h.deps.Circles.FindCircleByDescription(r.Context(), description)
	if err != nil {
		h.chainError(w, r, "search circle", err)
		return
	}
	writeJSON(w, http.StatusOK, circle)
}

// GET /api/circles/{id}/validate
func (h *handlers) validateCircle(w http.ResponseWriter, r *http.Request) {
	id, ok := circleIDParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Circles.ValidateCircleID(r.Context(), id))
}

// GET /api/circles/{id}/eligibility?side=creator&amount=1.5
func (h *handlers) eligibility(w http.ResponseWriter, r *http.Request) {
	id, ok := circleIDParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	side, err := models.ParseSide(q.Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	writeJSON(w, http.StatusOK, h.deps.Circles.CanJoinAsSupporter(r.Context(), id, side, amount))
}

// GET /api/circles/{id}/verdicts
func (h *handlers) listVerdicts(w http.ResponseWriter, r *http.Request) {
	id, ok := circleIDParam(w, r)
	if !ok {
		return
	}

	verdicts, err := h.deps.Verdicts.ListVerdicts(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list verdicts failed", "circle_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list verdicts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verdicts": verdicts})
}

// GET /api/stats
func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Circles.Stats(r.Context())
	if err != nil {
		h.chainError(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/status
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Circles.InitializationStatus(r.Context()))
}

// GET /api/accounts/{address}/balance
func (h *handlers) balance(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if _, err := aptos.NormalizeAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	balance, err := h.deps.Balances.Balance(r.Context(), address)
	if err != nil {
		h.chainError(w, r, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": address,
		"balance": balance,
	})
}

type createRequest struct {
	Description         string  `json:"description"`
	Deadline            int64   `json:"deadline"`
	CreatorSupporterPct float64 `json:"creator_supporter_pct"`
	PrizePool           float64 `json:"prize_pool"`
}

type acceptRequest struct {
	CircleID             uint64  `json:"circle_id"`
	OpponentSupporterPct float64 `json:"opponent_supporter_pct"`
}

type supportRequest struct {
	CircleID uint64  `json:"circle_id"`
	Side     string  `json:"side"`
	Amount   float64 `json:"amount"`
}

type resolveRequest struct {
	CircleID uint64 `json:"circle_id"`
	Winner   string `json:"winner"`
}

// POST /api/payloads/create
func (h *handlers) createPayload(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}
	payload, err := h.deps.Builder.CreateCirclePayload(req.Description, req.Deadline, req.CreatorSupporterPct, req.PrizePool)
	writePayload(w, payload, err)
}

// POST /api/payloads/accept
func (h *handlers) acceptPayload(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	payload, err := h.deps.Builder.AcceptCirclePayload(req.CircleID, req.OpponentSupporterPct)
	writePayload(w, payload, err)
}

// POST /api/payloads/support
func (h *handlers) supportPayload(w http.ResponseWriter, r *http.Request) {
	var req supportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	side, err := models.ParseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payload, err := h.deps.Builder.JoinAsSupporterPayload(req.CircleID, side, req.Amount)
	writePayload(w, payload, err)
}

// POST /api/payloads/resolve
func (h *handlers) resolvePayload(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	payload, err := h.deps.Builder.ResolveCirclePayload(req.CircleID, req.Winner)
	writePayload(w, payload, err)
}

// chainError maps contract and node errors onto HTTP statuses.
func (h *handlers) chainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, contract.ErrCircleNotFound):
		writeError(w, http.StatusNotFound, "circle not found")
	case errors.Is(err, contract.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "contract not initialized")
	default:
		h.logger.ErrorContext(r.Context(), op+" failed", "error", err)
		writeError(w, http.StatusBadGateway, op+" failed")
	}
}
