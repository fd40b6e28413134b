package room

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/evgenius1424/need-for-fun/internal/game"
	"github.com/evgenius1424/need-for-fun/internal/protocol"
)

// MaxPlayersHardCap is the absolute room size ceiling.
const MaxPlayersHardCap = 8

// Manager errors surfaced to the admin surface as strings.
var (
	ErrRoomNotFound   = errors.New("room_not_found")
	ErrRoomNameTaken  = errors.New("room_name_already_exists")
	ErrInvalidMaxSize = fmt.Errorf("maxPlayers must be 1..=%d", MaxPlayersHardCap)
)

// Counters are plain atomics mirrored into prometheus; tests read the
// atomics directly.
type Counters struct {
	RoomsCreated  atomic.Uint64
	RoomsClosed   atomic.Uint64
	PlayersJoined atomic.Uint64
	PlayersLeft   atomic.Uint64
}

// Manager is the thread-safe room registry: room id → handle, name → id,
// player id → room id. The three tables live behind one lock, and the
// lock is never held across a call into a room task.
type Manager struct {
	mu          sync.Mutex
	rooms       map[string]*Handle
	names       map[string]string
	playerRooms map[uint64]string

	Counters        Counters
	audit           *EventLog
	serverStartedAt time.Time
}

// JoinSuccess carries the joined room and its encoded RoomState frame.
type JoinSuccess struct {
	Room      *Handle
	RoomState []byte
}

// NewManager creates an empty registry. audit may be nil.
func NewManager(serverStartedAt time.Time, audit *EventLog) *Manager {
	return &Manager{
		rooms:           make(map[string]*Handle),
		names:           make(map[string]string),
		playerRooms:     make(map[uint64]string),
		audit:           audit,
		serverStartedAt: serverStartedAt,
	}
}

// CreateRoom validates the config, allocates a fresh opaque id, starts
// the room task and registers it under both id and name.
func (mgr *Manager) CreateRoom(cfg Config, m *game.GridMap) (*Handle, error) {
	if cfg.MaxPlayers <= 0 || cfg.MaxPlayers > MaxPlayersHardCap {
		return nil, ErrInvalidMaxSize
	}

	mgr.mu.Lock()
	if _, taken := mgr.names[cfg.Name]; taken {
		mgr.mu.Unlock()
		return nil, ErrRoomNameTaken
	}

	roomID := newRoomID()
	handle := NewHandle(roomID, m, cfg, mgr.serverStartedAt, mgr.audit)
	mgr.rooms[roomID] = handle
	mgr.names[cfg.Name] = roomID
	roomCount := len(mgr.rooms)
	mgr.mu.Unlock()

	mgr.Counters.RoomsCreated.Add(1)
	roomsCreated.Inc()
	activeRooms.Set(float64(roomCount))
	mgr.audit.Emit(EventRoomCreated, roomID, 0, map[string]any{"name": cfg.Name, "map": cfg.MapID})
	log.Printf("room %s created (name=%q map=%s max=%d)", roomID, cfg.Name, cfg.MapID, cfg.MaxPlayers)
	return handle, nil
}

// GetOrCreateRoom returns the room registered under cfg.Name or creates
// it: the idempotent lobby path used by JoinRoom messages.
func (mgr *Manager) GetOrCreateRoom(cfg Config, m *game.GridMap) (*Handle, error) {
	mgr.mu.Lock()
	if id, ok := mgr.names[cfg.Name]; ok {
		if handle, ok := mgr.rooms[id]; ok {
			mgr.mu.Unlock()
			return handle, nil
		}
	}
	mgr.mu.Unlock()
	return mgr.CreateRoom(cfg, m)
}

// ListRooms collects live summaries sorted by status rank, then player
// count descending, then recency.
func (mgr *Manager) ListRooms() []Summary {
	mgr.mu.Lock()
	handles := make([]*Handle, 0, len(mgr.rooms))
	for _, h := range mgr.rooms {
		handles = append(handles, h)
	}
	mgr.mu.Unlock()

	out := make([]Summary, 0, len(handles))
	for _, h := range handles {
		if summary, ok := h.Summary(); ok && summary.Status != StatusClosed {
			out = append(out, summary)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status.Rank() != out[j].Status.Rank() {
			return out[i].Status.Rank() < out[j].Status.Rank()
		}
		if out[i].CurrentPlayers != out[j].CurrentPlayers {
			return out[i].CurrentPlayers > out[j].CurrentPlayers
		}
		return out[i].LastActivityAtMs > out[j].LastActivityAtMs
	})
	return out
}

// GetRoomByRef resolves a reference as an opaque id first, then as a
// name.
func (mgr *Manager) GetRoomByRef(ref string) (*Handle, bool) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if handle, ok := mgr.rooms[ref]; ok {
		return handle, true
	}
	if id, ok := mgr.names[ref]; ok {
		if handle, ok := mgr.rooms[id]; ok {
			return handle, true
		}
	}
	return nil, false
}

// JoinRoom clears any prior membership first so moves never leave a
// ghost, then joins the target. On rejection the encoded JoinRejected
// frame is returned as the error payload.
func (mgr *Manager) JoinRoom(playerID uint64, username string, target *Handle, tx *Outbound) (JoinSuccess, []byte) {
	mgr.LeavePlayer(playerID)

	roomState, err := target.Join(playerID, username, tx)
	if err != nil {
		return JoinSuccess{}, protocol.EncodeJoinRejected(err.Error())
	}

	mgr.mu.Lock()
	mgr.playerRooms[playerID] = target.ID()
	playerCount := len(mgr.playerRooms)
	mgr.mu.Unlock()

	mgr.Counters.PlayersJoined.Add(1)
	playersJoined.Inc()
	activePlayers.Set(float64(playerCount))
	return JoinSuccess{Room: target, RoomState: roomState}, nil
}

// LeavePlayer removes the player's membership mapping and tells the room
// to drop them. Idempotent.
func (mgr *Manager) LeavePlayer(playerID uint64) {
	mgr.mu.Lock()
	roomID, ok := mgr.playerRooms[playerID]
	if ok {
		delete(mgr.playerRooms, playerID)
	}
	var handle *Handle
	if ok {
		handle = mgr.rooms[roomID]
	}
	playerCount := len(mgr.playerRooms)
	mgr.mu.Unlock()

	if handle != nil {
		handle.Leave(playerID)
		mgr.Counters.PlayersLeft.Add(1)
		playersLeft.Inc()
		activePlayers.Set(float64(playerCount))
	}
}

// MovePlayer resolves the target reference and joins it; equivalent to
// JoinRoom against the resolved room.
func (mgr *Manager) MovePlayer(playerID uint64, targetRef, username string, tx *Outbound) (JoinSuccess, []byte) {
	target, ok := mgr.GetRoomByRef(targetRef)
	if !ok {
		return JoinSuccess{}, protocol.EncodeJoinRejected("room_not_found")
	}
	return mgr.JoinRoom(playerID, username, target, tx)
}

// CloseRoom removes the room from both maps, purges memberships pointing
// at it, then signals the task to shut down.
func (mgr *Manager) CloseRoom(ref, reason string) error {
	handle, ok := mgr.GetRoomByRef(ref)
	if !ok {
		return ErrRoomNotFound
	}
	summary, ok := handle.Summary()
	if !ok {
		return errors.New("room_closed")
	}

	mgr.mu.Lock()
	delete(mgr.rooms, summary.RoomID)
	delete(mgr.names, summary.Name)
	for playerID, roomID := range mgr.playerRooms {
		if roomID == summary.RoomID {
			delete(mgr.playerRooms, playerID)
		}
	}
	roomCount := len(mgr.rooms)
	playerCount := len(mgr.playerRooms)
	mgr.mu.Unlock()

	handle.BeginClose(reason)
	mgr.Counters.RoomsClosed.Add(1)
	roomsClosed.Inc()
	activeRooms.Set(float64(roomCount))
	activePlayers.Set(float64(playerCount))
	mgr.audit.Emit(EventRoomClosed, summary.RoomID, 0, map[string]any{"reason": reason})
	log.Printf("room %s force-closed (%s)", summary.RoomID, reason)
	return nil
}

// RoomInfo fetches the admin view of a room by reference.
func (mgr *Manager) RoomInfo(ref string) (Info, bool) {
	handle, ok := mgr.GetRoomByRef(ref)
	if !ok {
		return Info{}, false
	}
	return handle.Info()
}

// RenameRoom updates the names table atomically with the room's config.
func (mgr *Manager) RenameRoom(ref, newName string) error {
	mgr.mu.Lock()
	if _, taken := mgr.names[newName]; taken {
		mgr.mu.Unlock()
		return ErrRoomNameTaken
	}

	handle, ok := mgr.rooms[ref]
	if !ok {
		if id, byName := mgr.names[ref]; byName {
			handle, ok = mgr.rooms[id]
		}
	}
	if !ok {
		mgr.mu.Unlock()
		return ErrRoomNotFound
	}
	mgr.mu.Unlock()

	// Fetch the current name without holding the table lock.
	summary, sok := handle.Summary()
	if !sok {
		return errors.New("room_closed")
	}

	mgr.mu.Lock()
	if _, taken := mgr.names[newName]; taken {
		mgr.mu.Unlock()
		return ErrRoomNameTaken
	}
	delete(mgr.names, summary.Name)
	mgr.names[newName] = summary.RoomID
	mgr.mu.Unlock()

	handle.Rename(newName)
	return nil
}

// SetRoomMaxPlayers bounds-checks and forwards to the room.
func (mgr *Manager) SetRoomMaxPlayers(ref string, n int) error {
	if n <= 0 || n > MaxPlayersHardCap {
		return ErrInvalidMaxSize
	}
	handle, ok := mgr.GetRoomByRef(ref)
	if !ok {
		return ErrRoomNotFound
	}
	return handle.SetMaxPlayers(n)
}

// Kick resolves the room and forwards the kick.
func (mgr *Manager) Kick(ref string, playerID uint64, reason string) (bool, error) {
	handle, ok := mgr.GetRoomByRef(ref)
	if !ok {
		return false, ErrRoomNotFound
	}
	return handle.Kick(playerID, reason), nil
}

// CurrentRooms returns the registry size.
func (mgr *Manager) CurrentRooms() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return len(mgr.rooms)
}

// CurrentPlayers returns the membership map size.
func (mgr *Manager) CurrentPlayers() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return len(mgr.playerRooms)
}

func newRoomID() string {
	return uuid.NewString()
}
