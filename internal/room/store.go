package room

import "github.com/evgenius1424/need-for-fun/internal/game"

// playerConn is the connection-facing half of a room member: identity,
// outbound queue and the latest accepted input sample.
type playerConn struct {
	id           uint64
	username     string
	tx           *Outbound
	input        Input
	lastInputSeq uint64
}

// playerStore keeps members in a dense insertion-ordered table with an
// id → index map. Snapshot encoding is a linear scan; removal is a
// swap-remove with the index fixed up afterwards.
type playerStore struct {
	conns  []playerConn
	states []*game.PlayerState
	index  map[uint64]int
}

func newPlayerStore() *playerStore {
	return &playerStore{index: make(map[uint64]int)}
}

func (s *playerStore) len() int {
	return len(s.conns)
}

func (s *playerStore) isEmpty() bool {
	return len(s.conns) == 0
}

func (s *playerStore) contains(playerID uint64) bool {
	_, ok := s.index[playerID]
	return ok
}

func (s *playerStore) connByID(playerID uint64) *playerConn {
	idx, ok := s.index[playerID]
	if !ok {
		return nil
	}
	return &s.conns[idx]
}

func (s *playerStore) txByID(playerID uint64) *Outbound {
	idx, ok := s.index[playerID]
	if !ok {
		return nil
	}
	return s.conns[idx].tx
}

func (s *playerStore) insert(conn playerConn, state *game.PlayerState) {
	s.index[conn.id] = len(s.conns)
	s.conns = append(s.conns, conn)
	s.states = append(s.states, state)
}

func (s *playerStore) remove(playerID uint64) bool {
	idx, ok := s.index[playerID]
	if !ok {
		return false
	}
	delete(s.index, playerID)

	lastIdx := len(s.conns) - 1
	s.conns[idx] = s.conns[lastIdx]
	s.conns = s.conns[:lastIdx]
	s.states[idx] = s.states[lastIdx]
	s.states = s.states[:lastIdx]

	if idx != lastIdx {
		s.index[s.conns[idx].id] = idx
	}
	return true
}

// validate checks the table invariants: equal lengths and a consistent
// id → index map. It is cheap enough to run after every mutation.
func (s *playerStore) validate() bool {
	if len(s.conns) != len(s.states) || len(s.conns) != len(s.index) {
		return false
	}
	for idx, conn := range s.conns {
		if s.index[conn.id] != idx {
			return false
		}
		if s.states[idx].ID != conn.id {
			return false
		}
	}
	return true
}
