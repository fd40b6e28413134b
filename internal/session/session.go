// Package session pumps decoded client messages into room commands and
// owns the per-peer lifecycle: one session per transport connection, one
// leave on the way out.
package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/evgenius1424/need-for-fun/internal/game"
	"github.com/evgenius1424/need-for-fun/internal/protocol"
	"github.com/evgenius1424/need-for-fun/internal/room"
)

// Defaults applied when a JoinRoom message leaves fields empty.
type Defaults struct {
	RoomID  string
	MapName string
	MapDir  string
}

// Session is the server-side state of one connected peer.
type Session struct {
	playerID        uint64
	username        string
	defaults        Defaults
	manager         *room.Manager
	out             *room.Outbound
	serverStartedAt time.Time

	currentRoom *room.Handle
	leaveOnce   sync.Once
}

// New creates a session for an allocated player id. The username starts
// as a placeholder until a Hello arrives.
func New(playerID uint64, manager *room.Manager, out *room.Outbound, defaults Defaults, serverStartedAt time.Time) *Session {
	return &Session{
		playerID:        playerID,
		username:        fmt.Sprintf("player%d", playerID),
		defaults:        defaults,
		manager:         manager,
		out:             out,
		serverStartedAt: serverStartedAt,
	}
}

// PlayerID returns the session's server-assigned id.
func (s *Session) PlayerID() uint64 {
	return s.playerID
}

// Handle processes one decoded inbound message. It never blocks on the
// outbound path; frames to a jammed queue are dropped with the session.
func (s *Session) Handle(msg protocol.ClientMsg) {
	switch m := msg.(type) {
	case protocol.Hello:
		if s.currentRoom != nil {
			log.Printf("player %d: ignoring hello after room join", s.playerID)
			return
		}
		if m.Username != "" {
			s.username = m.Username
		}

	case protocol.JoinRoom:
		s.handleJoin(m)

	case protocol.Input:
		if s.currentRoom == nil {
			return
		}
		s.currentRoom.SetInput(s.playerID, m.Seq, room.Input{
			KeyUp:        m.KeyUp,
			KeyDown:      m.KeyDown,
			KeyLeft:      m.KeyLeft,
			KeyRight:     m.KeyRight,
			MouseDown:    m.MouseDown,
			WeaponSwitch: int32(m.WeaponSwitch),
			WeaponScroll: m.WeaponScroll,
			AimAngle:     m.AimAngle,
			FacingLeft:   m.FacingLeft,
		})

	case protocol.Ping:
		serverTimeMs := uint64(time.Since(s.serverStartedAt).Milliseconds())
		_ = s.out.TrySend(protocol.EncodePong(m.ClientTimeMs, serverTimeMs))
	}
}

func (s *Session) handleJoin(m protocol.JoinRoom) {
	roomRef := m.RoomID
	if roomRef == "" {
		roomRef = s.defaults.RoomID
	}
	mapName := m.MapName
	if mapName == "" {
		mapName = s.defaults.MapName
	}

	gameMap, err := game.LoadMap(s.defaults.MapDir, mapName)
	if err != nil {
		log.Printf("player %d: join rejected, map unavailable: %v", s.playerID, err)
		_ = s.out.TrySend(protocol.EncodeJoinRejected("room_not_found"))
		return
	}

	cfg := room.Config{
		Name:            roomRef,
		MaxPlayers:      room.MaxPlayersHardCap,
		MapID:           mapName,
		Mode:            "deathmatch",
		TickRate:        60,
		ProtocolVersion: "1",
	}
	target, err := s.manager.GetOrCreateRoom(cfg, gameMap)
	if err != nil {
		log.Printf("player %d: join rejected, room create failed: %v", s.playerID, err)
		_ = s.out.TrySend(protocol.EncodeJoinRejected("room_not_found"))
		return
	}

	success, rejection := s.manager.JoinRoom(s.playerID, s.username, target, s.out)
	if rejection != nil {
		_ = s.out.TrySend(rejection)
		return
	}
	s.currentRoom = success.Room
	_ = s.out.TrySend(success.RoomState)
}

// Close runs the leave path exactly once: transport close, shutdown and
// a dropped outbound queue all funnel here.
func (s *Session) Close() {
	s.leaveOnce.Do(func() {
		s.out.Close()
		if s.currentRoom != nil {
			s.manager.LeavePlayer(s.playerID)
			s.currentRoom = nil
		}
	})
}
