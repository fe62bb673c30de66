package signal

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/teogomes/pokerPlanning/internal/core"
	"github.com/teogomes/pokerPlanning/internal/domain"
)

var validate = validator.New()

// decode unmarshals and validates one inbound payload. A payload that
// fails validation is dropped without a response.
func decode(data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad payload")
		return false
	}
	if err := validate.Struct(v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("invalid payload")
		return false
	}
	return true
}

type joinPayload struct {
	RoomID    string `json:"roomId" validate:"required"`
	Name      string `json:"name" validate:"required,max=36"`
	BrowserID string `json:"browserId" validate:"omitempty,max=64"`
}

func (ctl *Controller) handleJoin(cid domain.ConnID, fallback domain.Token, c *WsConn, data []byte) {
	var p joinPayload
	if !decode(data, &p) {
		return
	}
	token := domain.Token(p.BrowserID)
	if token == "" {
		token = fallback
	}
	if token == "" {
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(cid)).Str("room", p.RoomID).Str("name", p.Name).Msg("join-room")
	err := ctl.Coord.Join(cid, domain.RoomID(p.RoomID), p.Name, token, c)
	switch {
	case errors.Is(err, core.ErrDuplicateSession):
		// only the offending connection hears about it
		ctl.sendJSON(c, struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		}{"join-denied", "Already joined from another tab or device"})
	case err != nil:
		// anything else is a validation failure: dropped without a response
		log.Warn().Err(err).Str("module", "signal").Str("room", p.RoomID).Msg("join dropped")
	}
}

func (ctl *Controller) handleAddUser(cid domain.ConnID, fallback domain.Token, c *WsConn, data []byte) {
	var p joinPayload
	if !decode(data, &p) {
		return
	}
	token := domain.Token(p.BrowserID)
	if token == "" {
		token = fallback
	}
	if token == "" {
		return
	}
	ctl.Coord.AddUser(cid, domain.RoomID(p.RoomID), p.Name, token, c)
}

type seatPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	SeatID int    `json:"seatId" validate:"required,min=1"`
	UserID string `json:"userId" validate:"required"`
}

func (ctl *Controller) handleSelectSeat(data []byte) {
	var p seatPayload
	if !decode(data, &p) {
		return
	}
	ctl.Coord.SelectSeat(domain.RoomID(p.RoomID), domain.Token(p.UserID), p.SeatID)
}

type votePayload struct {
	RoomID string  `json:"roomId" validate:"required"`
	UserID string  `json:"userId" validate:"required"`
	Value  *string `json:"value"`
}

func (ctl *Controller) handleVote(data []byte) {
	var p votePayload
	if !decode(data, &p) {
		return
	}
	ctl.Coord.CastVote(domain.RoomID(p.RoomID), domain.Token(p.UserID), p.Value)
}

type roomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

func (ctl *Controller) handleReveal(data []byte) {
	var p roomPayload
	if !decode(data, &p) {
		return
	}
	ctl.Coord.Reveal(domain.RoomID(p.RoomID))
}

func (ctl *Controller) handleReset(data []byte) {
	var p roomPayload
	if !decode(data, &p) {
		return
	}
	ctl.Coord.Reset(domain.RoomID(p.RoomID))
}

type leavePayload struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

func (ctl *Controller) handleLeave(data []byte) {
	var p leavePayload
	if !decode(data, &p) {
		return
	}
	log.Info().Str("module", "signal").Str("room", p.RoomID).Str("token", p.UserID).Msg("leave-room")
	ctl.Coord.Leave(domain.RoomID(p.RoomID), domain.Token(p.UserID))
}

type chatPayload struct {
	RoomID  string `json:"roomId" validate:"required"`
	User    string `json:"user" validate:"required"`
	Message string `json:"message" validate:"required"`
}

func (ctl *Controller) handleChat(data []byte) {
	var p chatPayload
	if !decode(data, &p) {
		return
	}
	ctl.Coord.Chat(domain.RoomID(p.RoomID), p.User, p.Message)
}
