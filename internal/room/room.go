package room

import (
	"errors"
	"log"
	"time"

	"github.com/evgenius1424/need-for-fun/internal/game"
	"github.com/evgenius1424/need-for-fun/internal/protocol"
)

const (
	// TickMillis is the fixed simulation timestep (~60 Hz).
	TickMillis = 16
	// SnapshotIntervalTicks throttles snapshot broadcast to 30 Hz.
	SnapshotIntervalTicks = 2
	// CommandCapacity bounds the room's inbound command queue. Large
	// relative to burstiness: at most a few inputs per tick per player.
	CommandCapacity = 1024
)

// Join errors surfaced to sessions as JoinRejected frames.
var (
	ErrRoomFull    = errors.New("room_full")
	ErrRoomClosing = errors.New("room_closing")
)

// Status is the room lifecycle state; it only ever advances.
type Status uint8

const (
	StatusCreated Status = iota
	StatusRunning
	StatusClosing
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Rank orders statuses for room listings: running rooms sort first.
func (s Status) Rank() int {
	switch s {
	case StatusRunning:
		return 0
	case StatusCreated:
		return 1
	case StatusClosing:
		return 2
	default:
		return 3
	}
}

// Config is the immutable-ish room configuration; name and max players
// can change at runtime through commands.
type Config struct {
	Name            string
	MaxPlayers      int
	MapID           string
	Mode            string
	TickRate        int
	ProtocolVersion string
	Region          string
}

// Summary is the listing view of a room.
type Summary struct {
	RoomID           string
	Name             string
	CurrentPlayers   int
	MaxPlayers       int
	MapID            string
	Mode             string
	Status           Status
	CreatedAtMs      uint64
	LastActivityAtMs uint64
	ProtocolVersion  string
	Region           string
}

// Info is the admin view: summary plus the roster and tick counter.
type Info struct {
	Summary Summary
	Players []PlayerEntry
	Tick    uint64
}

// PlayerEntry is one roster line.
type PlayerEntry struct {
	ID       uint64
	Username string
}

// Input is one accepted input sample, already sequence-filtered.
// WeaponSwitch is -1 when no explicit switch was requested.
type Input struct {
	KeyUp        bool
	KeyDown      bool
	KeyLeft      bool
	KeyRight     bool
	MouseDown    bool
	WeaponSwitch int32
	WeaponScroll int8
	AimAngle     float32
	FacingLeft   bool
}

type joinResult struct {
	roomState []byte
	err       error
}

type joinCmd struct {
	playerID uint64
	username string
	tx       *Outbound
	resp     chan joinResult
}

type leaveCmd struct{ playerID uint64 }

type kickCmd struct {
	playerID uint64
	reason   string
	resp     chan bool
}

type inputCmd struct {
	playerID uint64
	seq      uint64
	input    Input
}

type summaryCmd struct{ resp chan Summary }

type infoCmd struct{ resp chan Info }

type renameCmd struct{ name string }

type setMaxPlayersCmd struct {
	maxPlayers int
	resp       chan error
}

type beginCloseCmd struct{ reason string }

type containsCmd struct {
	playerID uint64
	resp     chan bool
}

// Handle is the concurrency-safe face of a room. All mutation goes
// through the task's command queue; the task goroutine owns every piece
// of room state.
type Handle struct {
	id   string
	cmds chan any
	done chan struct{}
}

// NewHandle starts the room task and returns its handle.
func NewHandle(id string, m *game.GridMap, cfg Config, serverStartedAt time.Time, audit *EventLog) *Handle {
	h := &Handle{
		id:   id,
		cmds: make(chan any, CommandCapacity),
		done: make(chan struct{}),
	}
	task := newTask(h, id, m, cfg, serverStartedAt, audit)
	go task.run()
	return h
}

// ID returns the room's opaque id.
func (h *Handle) ID() string {
	return h.id
}

// Join adds or refreshes a member and returns the encoded RoomState
// frame. Blocks until the room task answers.
func (h *Handle) Join(playerID uint64, username string, tx *Outbound) ([]byte, error) {
	resp := make(chan joinResult, 1)
	cmd := joinCmd{playerID: playerID, username: username, tx: tx, resp: resp}
	select {
	case h.cmds <- cmd:
	case <-h.done:
		return nil, ErrRoomClosing
	}
	select {
	case r := <-resp:
		return r.roomState, r.err
	case <-h.done:
		return nil, ErrRoomClosing
	}
}

// Leave removes a member. Fire-and-forget and idempotent.
func (h *Handle) Leave(playerID uint64) {
	h.trySend(leaveCmd{playerID: playerID})
}

// SetInput forwards an input sample. Fire-and-forget; stale sequence
// numbers are filtered by the task.
func (h *Handle) SetInput(playerID uint64, seq uint64, input Input) {
	h.trySend(inputCmd{playerID: playerID, seq: seq, input: input})
}

// Summary fetches the listing view; ok is false for a terminated room.
func (h *Handle) Summary() (Summary, bool) {
	resp := make(chan Summary, 1)
	select {
	case h.cmds <- summaryCmd{resp: resp}:
	case <-h.done:
		return Summary{}, false
	}
	select {
	case s := <-resp:
		return s, true
	case <-h.done:
		return Summary{}, false
	}
}

// Info fetches the admin view; ok is false for a terminated room.
func (h *Handle) Info() (Info, bool) {
	resp := make(chan Info, 1)
	select {
	case h.cmds <- infoCmd{resp: resp}:
	case <-h.done:
		return Info{}, false
	}
	select {
	case i := <-resp:
		return i, true
	case <-h.done:
		return Info{}, false
	}
}

// Rename updates the room's display name. The manager mirrors its own
// names table separately.
func (h *Handle) Rename(name string) {
	h.trySend(renameCmd{name: name})
}

// SetMaxPlayers adjusts capacity; rejects values below the current
// population.
func (h *Handle) SetMaxPlayers(n int) error {
	resp := make(chan error, 1)
	select {
	case h.cmds <- setMaxPlayersCmd{maxPlayers: n, resp: resp}:
	case <-h.done:
		return errors.New("room_closed")
	}
	select {
	case err := <-resp:
		return err
	case <-h.done:
		return errors.New("room_closed")
	}
}

// BeginClose shuts the room down with a reason broadcast to members.
func (h *Handle) BeginClose(reason string) {
	h.trySend(beginCloseCmd{reason: reason})
}

// Kick removes a member and tells them why. Returns whether the player
// was present.
func (h *Handle) Kick(playerID uint64, reason string) bool {
	resp := make(chan bool, 1)
	select {
	case h.cmds <- kickCmd{playerID: playerID, reason: reason, resp: resp}:
	case <-h.done:
		return false
	}
	select {
	case removed := <-resp:
		return removed
	case <-h.done:
		return false
	}
}

// ContainsPlayer reports membership; used by tests and the admin surface.
func (h *Handle) ContainsPlayer(playerID uint64) bool {
	resp := make(chan bool, 1)
	select {
	case h.cmds <- containsCmd{playerID: playerID, resp: resp}:
	case <-h.done:
		return false
	}
	select {
	case ok := <-resp:
		return ok
	case <-h.done:
		return false
	}
}

// Done is closed when the room task terminates.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) trySend(cmd any) {
	select {
	case h.cmds <- cmd:
	case <-h.done:
	default:
	}
}

// task owns all mutable room state: players, items, projectiles, tick
// counter and RNG. Single goroutine, no locks.
type task struct {
	handle          *Handle
	roomID          string
	m               *game.GridMap
	cfg             Config
	status          Status
	createdAt       time.Time
	lastActivityAt  time.Time
	serverStartedAt time.Time
	closeReason     string
	audit           *EventLog

	tick             uint64
	items            []game.MapItem
	projectiles      []game.Projectile
	nextProjectileID uint64
	store            *playerStore
	encoder          *protocol.SnapshotEncoder
	rng              *roomRand

	// Per-tick scratch buffers, cleared and reused so the hot path stays
	// allocation-free.
	scratchPlayerRecords  []protocol.PlayerRecord
	scratchItemRecords    []protocol.ItemRecord
	scratchEvents         []game.EffectEvent
	pendingSnapshotEvents []game.EffectEvent
	scratchHitActions     []game.HitAction
	scratchExplosions     []game.Explosion
	scratchPendingHits    []game.PendingHit
	scratchDisconnected   []uint64
}

func newTask(h *Handle, roomID string, m *game.GridMap, cfg Config, serverStartedAt time.Time, audit *EventLog) *task {
	now := time.Now()
	return &task{
		handle:          h,
		roomID:          roomID,
		m:               m,
		cfg:             cfg,
		status:          StatusCreated,
		createdAt:       now,
		lastActivityAt:  now,
		serverStartedAt: serverStartedAt,
		audit:           audit,
		items:           m.TakeItems(),
		store:           newPlayerStore(),
		encoder:         protocol.NewSnapshotEncoder(),
		rng:             newRoomRand(roomID),
	}
}

func (t *task) run() {
	ticker := time.NewTicker(TickMillis * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case cmd := <-t.handle.cmds:
			if t.handleCmd(cmd) {
				break loop
			}
			t.drainCommands()
			if t.status == StatusClosing {
				break loop
			}
		case <-ticker.C:
			t.drainCommands()
			if t.status == StatusClosing {
				break loop
			}
			t.simulateTick()
			if t.status == StatusClosing {
				break loop
			}
		}
	}

	t.status = StatusClosed
	close(t.handle.done)
	log.Printf("room %s closed", t.roomID)
}

func (t *task) drainCommands() {
	for {
		select {
		case cmd := <-t.handle.cmds:
			if t.handleCmd(cmd) {
				t.status = StatusClosing
				return
			}
		default:
			return
		}
	}
}

// handleCmd returns true when the task should terminate.
func (t *task) handleCmd(cmd any) bool {
	switch c := cmd.(type) {
	case joinCmd:
		t.handleJoinCmd(c)
	case leaveCmd:
		if t.removePlayer(c.playerID) {
			t.broadcast(protocol.EncodePlayerLeft(c.playerID))
			t.audit.Emit(EventPlayerLeave, t.roomID, c.playerID, nil)
			t.transitionEmptyIfNeeded()
		}
	case kickCmd:
		tx := t.store.txByID(c.playerID)
		removed := t.removePlayer(c.playerID)
		if removed {
			t.broadcast(protocol.EncodePlayerLeft(c.playerID))
			if tx != nil {
				_ = tx.TrySend(protocol.EncodeKicked(c.reason))
			}
			t.audit.Emit(EventPlayerKick, t.roomID, c.playerID, map[string]any{"reason": c.reason})
			t.transitionEmptyIfNeeded()
		}
		c.resp <- removed
	case inputCmd:
		if conn := t.store.connByID(c.playerID); conn != nil {
			if c.seq >= conn.lastInputSeq {
				conn.lastInputSeq = c.seq
				conn.input = c.input
			}
		}
	case summaryCmd:
		c.resp <- t.summary()
	case infoCmd:
		players := make([]PlayerEntry, 0, t.store.len())
		for _, conn := range t.store.conns {
			players = append(players, PlayerEntry{ID: conn.id, Username: conn.username})
		}
		c.resp <- Info{Summary: t.summary(), Players: players, Tick: t.tick}
	case renameCmd:
		t.cfg.Name = c.name
		t.lastActivityAt = time.Now()
	case setMaxPlayersCmd:
		if c.maxPlayers < t.store.len() {
			c.resp <- errors.New("maxPlayers_lower_than_current_players")
		} else {
			t.cfg.MaxPlayers = c.maxPlayers
			t.lastActivityAt = time.Now()
			c.resp <- nil
		}
	case beginCloseCmd:
		t.closeReason = c.reason
		t.status = StatusClosing
		t.broadcast(protocol.EncodeRoomClosed(c.reason))
		return true
	case containsCmd:
		c.resp <- t.store.contains(c.playerID)
	}
	return false
}

func (t *task) handleJoinCmd(c joinCmd) {
	if t.status == StatusClosing || t.status == StatusClosed {
		c.resp <- joinResult{err: ErrRoomClosing}
		return
	}
	if t.store.len() >= t.cfg.MaxPlayers && !t.store.contains(c.playerID) {
		c.resp <- joinResult{err: ErrRoomFull}
		return
	}

	broadcastJoin := false
	if conn := t.store.connByID(c.playerID); conn != nil {
		// Idempotent rejoin: refresh identity and transport, keep the
		// physics state untouched.
		conn.username = c.username
		conn.tx = c.tx
	} else {
		state := game.NewPlayerState(c.playerID)
		if row, col, ok := t.m.RandomRespawn(t.rng.rand); ok {
			x := float32(col)*game.TileW + game.SpawnOffsetX
			y := float32(row)*game.TileH - game.PlayerHalfH
			state.SetXY(x, y, t.m)
			state.PrevX = state.X
			state.PrevY = state.Y
		}
		t.store.insert(playerConn{
			id:       c.playerID,
			username: c.username,
			tx:       c.tx,
			input:    Input{WeaponSwitch: -1},
		}, state)
		broadcastJoin = true
	}

	t.status = StatusRunning
	t.lastActivityAt = time.Now()

	roomState := t.encodeRoomState()
	c.resp <- joinResult{roomState: roomState}

	if broadcastJoin {
		t.broadcastExcept(protocol.EncodePlayerJoined(c.playerID, c.username), c.playerID)
		t.audit.Emit(EventPlayerJoin, t.roomID, c.playerID, map[string]any{"username": c.username})
	}
}

func (t *task) encodeRoomState() []byte {
	records := make([]protocol.NamedRecord, 0, t.store.len())
	for idx, conn := range t.store.conns {
		records = append(records, protocol.NamedRecord{
			Username: conn.username,
			Record:   protocol.PlayerRecordFromState(conn.lastInputSeq, t.store.states[idx]),
		})
	}
	return protocol.EncodeRoomState(t.roomID, t.m.Name(), records)
}

func (t *task) summary() Summary {
	return Summary{
		RoomID:           t.roomID,
		Name:             t.cfg.Name,
		CurrentPlayers:   t.store.len(),
		MaxPlayers:       t.cfg.MaxPlayers,
		MapID:            t.cfg.MapID,
		Mode:             t.cfg.Mode,
		Status:           t.status,
		CreatedAtMs:      uint64(t.createdAt.Sub(t.serverStartedAt).Milliseconds()),
		LastActivityAtMs: uint64(t.lastActivityAt.Sub(t.serverStartedAt).Milliseconds()),
		ProtocolVersion:  t.cfg.ProtocolVersion,
		Region:           t.cfg.Region,
	}
}

func (t *task) removePlayer(playerID uint64) bool {
	removed := t.store.remove(playerID)
	if removed {
		t.lastActivityAt = time.Now()
		if !t.store.validate() {
			log.Printf("room %s: player store invariant violated after remove", t.roomID)
		}
	}
	return removed
}

func (t *task) transitionEmptyIfNeeded() {
	if t.store.isEmpty() {
		t.status = StatusClosing
	}
}

func (t *task) simulateTick() {
	if t.store.isEmpty() || t.status != StatusRunning {
		return
	}

	started := time.Now()
	t.tick++
	t.scratchEvents = t.scratchEvents[:0]
	t.scratchHitActions = t.scratchHitActions[:0]
	t.scratchExplosions = t.scratchExplosions[:0]

	for idx := 0; idx < t.store.len(); idx++ {
		conn := &t.store.conns[idx]
		state := t.store.states[idx]
		applyInputToState(&conn.input, state)

		if !state.Dead && conn.input.MouseDown {
			game.TryFire(state, &t.projectiles, t.m, &t.nextProjectileID,
				&t.scratchHitActions, &t.scratchEvents, t.rng.rand)
		}

		game.StepPlayer(state, game.PlayerInput{
			KeyUp:    conn.input.KeyUp,
			KeyDown:  conn.input.KeyDown,
			KeyLeft:  conn.input.KeyLeft,
			KeyRight: conn.input.KeyRight,
		}, t.m)
		game.RespawnIfReady(state, t.m, t.rng.rand)
	}

	game.ApplyHitActions(t.scratchHitActions, t.store.states, &t.scratchEvents)
	game.UpdateProjectiles(t.m, &t.projectiles, &t.scratchEvents, &t.scratchExplosions)
	game.ApplyProjectileHits(&t.projectiles, t.store.states, &t.scratchEvents, &t.scratchExplosions)
	game.ApplyExplosions(t.scratchExplosions, t.store.states, &t.scratchEvents, &t.scratchPendingHits)

	for i := range t.scratchExplosions {
		expl := &t.scratchExplosions[i]
		t.scratchEvents = append(t.scratchEvents, game.EventExplosion{
			X: expl.X, Y: expl.Y, Kind: expl.Kind,
		})
	}

	game.ProcessItemPickups(t.store.states, t.items)

	for _, ev := range t.scratchEvents {
		if dmg, ok := ev.(game.EventDamage); ok && dmg.Killed {
			t.audit.Emit(EventKill, t.roomID, dmg.AttackerID, map[string]any{
				"victim": dmg.TargetID,
				"amount": dmg.Amount,
			})
		}
	}

	t.pendingSnapshotEvents = append(t.pendingSnapshotEvents, t.scratchEvents...)

	if t.tick%SnapshotIntervalTicks == 0 {
		serverTimeMs := uint64(time.Since(t.serverStartedAt).Milliseconds())
		t.buildSnapshotBuffers()
		payload := t.encoder.EncodeSnapshot(
			t.tick,
			serverTimeMs,
			t.scratchPlayerRecords,
			t.scratchItemRecords,
			nil,
			t.pendingSnapshotEvents,
		)
		t.pendingSnapshotEvents = t.pendingSnapshotEvents[:0]
		t.broadcast(payload)
	}

	observeTickDuration(time.Since(started))
}

func (t *task) buildSnapshotBuffers() {
	t.scratchPlayerRecords = t.scratchPlayerRecords[:0]
	t.scratchItemRecords = t.scratchItemRecords[:0]

	for idx, conn := range t.store.conns {
		t.scratchPlayerRecords = append(t.scratchPlayerRecords,
			protocol.PlayerRecordFromState(conn.lastInputSeq, t.store.states[idx]))
	}

	for i := range t.items {
		timer := t.items[i].RespawnTimer
		if timer > 32767 {
			timer = 32767
		}
		t.scratchItemRecords = append(t.scratchItemRecords, protocol.ItemRecord{
			Active:       t.items[i].Active,
			RespawnTimer: int16(timer),
		})
	}
}

// broadcast fans a frame out to every member. Full or closed queues mark
// the player for eviction; eviction reuses the leave path so the roster,
// index and PlayerLeft notices stay consistent.
func (t *task) broadcast(payload []byte) {
	t.scratchDisconnected = t.scratchDisconnected[:0]
	for i := range t.store.conns {
		conn := &t.store.conns[i]
		if err := conn.tx.TrySend(payload); err != nil {
			switch {
			case errors.Is(err, ErrOutboundFull):
				log.Printf("room %s: dropping slow client %d: outbound queue full", t.roomID, conn.id)
			default:
				// Closed queue: the session is already gone.
			}
			t.scratchDisconnected = append(t.scratchDisconnected, conn.id)
		}
	}

	for _, id := range t.scratchDisconnected {
		if t.removePlayer(id) {
			t.audit.Emit(EventPlayerLeave, t.roomID, id, map[string]any{"evicted": true})
			left := protocol.EncodePlayerLeft(id)
			for i := range t.store.conns {
				_ = t.store.conns[i].tx.TrySend(left)
			}
		}
	}

	t.transitionEmptyIfNeeded()
}

func (t *task) broadcastExcept(payload []byte, skipPlayerID uint64) {
	for i := range t.store.conns {
		if t.store.conns[i].id == skipPlayerID {
			continue
		}
		_ = t.store.conns[i].tx.TrySend(payload)
	}
}

// applyInputToState mirrors the accepted input sample into the simulation
// state: key flags, aim, and the weapon selection (explicit switch wins
// over scroll; scroll walks slots until an owned weapon is found).
func applyInputToState(in *Input, state *game.PlayerState) {
	state.KeyUp = in.KeyUp
	state.KeyDown = in.KeyDown
	state.KeyLeft = in.KeyLeft
	state.KeyRight = in.KeyRight
	state.AimAngle = in.AimAngle
	state.FacingLeft = in.FacingLeft

	if in.WeaponSwitch >= 0 && in.WeaponSwitch < game.WeaponCount {
		if state.Weapons[in.WeaponSwitch] {
			state.CurrentWeapon = in.WeaponSwitch
		}
	} else if in.WeaponScroll != 0 {
		dir := int32(1)
		if in.WeaponScroll < 0 {
			dir = -1
		}
		for step := int32(1); step <= game.WeaponCount; step++ {
			next := state.CurrentWeapon + dir*step
			for next < 0 {
				next += game.WeaponCount
			}
			for next >= game.WeaponCount {
				next -= game.WeaponCount
			}
			if state.Weapons[next] {
				state.CurrentWeapon = next
				break
			}
		}
	}
}
