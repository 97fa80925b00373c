package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
//
// Rooms and matches are kept as marshalled snapshots so that the
// compare-and-swap contract holds: callers always get an independent copy
// and cannot bypass the version check by mutating shared state.
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID

	rooms   map[model.RoomID]record
	matches map[model.MatchID]record

	roomLoc  map[model.PlayerID]model.RoomID
	matchLoc map[model.PlayerID]model.MatchID

	presence map[model.PlayerID]*model.Presence
}

type record struct {
	data    []byte
	version int64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		rooms:             make(map[model.RoomID]record),
		matches:           make(map[model.MatchID]record),
		roomLoc:           make(map[model.PlayerID]model.RoomID),
		matchLoc:          make(map[model.PlayerID]model.MatchID),
		presence:          make(map[model.PlayerID]*model.Presence),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registeredPlayers[rp.PlayerID] = rp
	s.usernameIndex[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playerID, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rp, nil
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.WaitingRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.ID]; exists {
		return model.ErrVersionConflict
	}

	room.Version = 1
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	s.rooms[room.ID] = record{data: data, version: 1}
	s.indexRoomLocked(room)
	return nil
}

func (s *Storage) UpdateRoom(ctx context.Context, room *model.WaitingRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rooms[room.ID]
	if !ok {
		return model.ErrRoomNotFound
	}
	if rec.version != room.Version {
		return model.ErrVersionConflict
	}

	s.unindexRoomLocked(room.ID, rec.data)

	room.Version++
	data, err := json.Marshal(room)
	if err != nil {
		room.Version--
		return err
	}
	s.rooms[room.ID] = record{data: data, version: room.Version}
	s.indexRoomLocked(room)
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.WaitingRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return decodeRoom(rec.data)
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rooms[id]
	if !ok {
		return nil
	}
	s.unindexRoomLocked(id, rec.data)
	delete(s.rooms, id)
	return nil
}

func (s *Storage) FindWaitingRooms(ctx context.Context, mode model.ModeID) ([]*model.WaitingRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.WaitingRoom
	for _, rec := range s.rooms {
		room, err := decodeRoom(rec.data)
		if err != nil {
			return nil, err
		}
		if room.Mode == mode && room.Status == model.RoomStatusWaiting {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.WaitingRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.WaitingRoom, 0, len(s.rooms))
	for _, rec := range s.rooms {
		room, err := decodeRoom(rec.data)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, nil
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[match.ID]; exists {
		return model.ErrVersionConflict
	}

	match.Version = 1
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}
	s.matches[match.ID] = record{data: data, version: 1}
	s.indexMatchLocked(match)
	return nil
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.matches[match.ID]
	if !ok {
		return model.ErrMatchNotFound
	}
	if rec.version != match.Version {
		return model.ErrVersionConflict
	}

	match.Version++
	data, err := json.Marshal(match)
	if err != nil {
		match.Version--
		return err
	}
	s.matches[match.ID] = record{data: data, version: match.Version}

	// A terminal update releases the participants
	if match.IsOver() {
		s.unindexMatchLocked(match)
	} else {
		s.indexMatchLocked(match)
	}
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return decodeMatch(rec.data)
}

func (s *Storage) ListActiveMatches(ctx context.Context) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Match
	for _, rec := range s.matches {
		match, err := decodeMatch(rec.data)
		if err != nil {
			return nil, err
		}
		if !match.IsOver() {
			out = append(out, match)
		}
	}
	return out, nil
}

// Location index

func (s *Storage) GetPlayerLocation(ctx context.Context, id model.PlayerID) (storage.PlayerLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storage.PlayerLocation{
		RoomID:  s.roomLoc[id],
		MatchID: s.matchLoc[id],
	}, nil
}

// Presence operations

func (s *Storage) SavePresence(ctx context.Context, p *model.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Version++
	cp := *p
	s.presence[p.PlayerID] = &cp
	return nil
}

func (s *Storage) GetPresence(ctx context.Context, id model.PlayerID) (*model.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presence[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Storage) ListPresence(ctx context.Context) ([]*model.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Presence, 0, len(s.presence))
	for _, p := range s.presence {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// index helpers, caller holds the write lock

func (s *Storage) indexRoomLocked(room *model.WaitingRoom) {
	for _, m := range room.Members {
		if !m.IsBot {
			s.roomLoc[m.PlayerID] = room.ID
		}
	}
}

func (s *Storage) unindexRoomLocked(id model.RoomID, data []byte) {
	old, err := decodeRoom(data)
	if err != nil {
		return
	}
	for _, m := range old.Members {
		if s.roomLoc[m.PlayerID] == id {
			delete(s.roomLoc, m.PlayerID)
		}
	}
}

func (s *Storage) indexMatchLocked(match *model.Match) {
	for _, p := range match.Players {
		if !p.IsBot {
			s.matchLoc[p.PlayerID] = match.ID
		}
	}
}

func (s *Storage) unindexMatchLocked(match *model.Match) {
	for _, p := range match.Players {
		if s.matchLoc[p.PlayerID] == match.ID {
			delete(s.matchLoc, p.PlayerID)
		}
	}
}

func decodeRoom(data []byte) (*model.WaitingRoom, error) {
	var room model.WaitingRoom
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func decodeMatch(data []byte) (*model.Match, error) {
	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}
