package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/storage"
)

const presenceIndexKey = "presence:all"

// Storage is a Redis-backed implementation of the storage interface.
// Versioned saves use WATCH-based optimistic transactions: the key is
// watched, the stored version compared, and the write applied in a MULTI
// block. Any concurrent write aborts the transaction and surfaces
// model.ErrVersionConflict.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{client: client, cfg: cfg}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{client: client, cfg: cfg}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}
	return s.client.Set(ctx, playerKey(player.ID), data, ttl).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerKey(id)).Err()
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0)
	pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	data, err := s.client.Get(ctx, registeredPlayerKey(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rp model.RegisteredPlayer
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return s.GetRegisteredPlayer(ctx, model.PlayerID(playerIDStr))
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.WaitingRoom) error {
	key := roomKey(room.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrVersionConflict
		}

		room.Version = 1
		data, err := json.Marshal(room)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.RoomTTL)
			pipe.SAdd(ctx, allRoomsKey, string(room.ID))
			s.writeRoomIndexes(ctx, pipe, room)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	return err
}

func (s *Storage) UpdateRoom(ctx context.Context, room *model.WaitingRoom) error {
	key := roomKey(room.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrRoomNotFound
			}
			return err
		}

		var stored model.WaitingRoom
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		if stored.Version != room.Version {
			return model.ErrVersionConflict
		}

		room.Version++
		updated, err := json.Marshal(room)
		if err != nil {
			room.Version--
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.cfg.RoomTTL)
			s.clearRoomIndexes(ctx, pipe, &stored)
			s.writeRoomIndexes(ctx, pipe, room)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	return err
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.WaitingRoom, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.WaitingRoom
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, roomKey(id))
	pipe.SRem(ctx, allRoomsKey, string(id))
	pipe.ZRem(ctx, waitingRoomsKey(room.Mode), string(id))
	s.clearRoomIndexes(ctx, pipe, room)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) FindWaitingRooms(ctx context.Context, mode model.ModeID) ([]*model.WaitingRoom, error) {
	ids, err := s.client.ZRange(ctx, waitingRoomsKey(mode), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var out []*model.WaitingRoom
	for _, id := range ids {
		room, err := s.GetRoom(ctx, model.RoomID(id))
		if err != nil {
			if errors.Is(err, model.ErrRoomNotFound) {
				// Index raced a deletion; skip
				continue
			}
			return nil, err
		}
		if room.Status == model.RoomStatusWaiting {
			out = append(out, room)
		}
	}
	return out, nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.WaitingRoom, error) {
	ids, err := s.client.SMembers(ctx, allRoomsKey).Result()
	if err != nil {
		return nil, err
	}

	var out []*model.WaitingRoom
	for _, id := range ids {
		room, err := s.GetRoom(ctx, model.RoomID(id))
		if err != nil {
			if errors.Is(err, model.ErrRoomNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, room)
	}
	return out, nil
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	key := matchKey(match.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrVersionConflict
		}

		match.Version = 1
		data, err := json.Marshal(match)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.MatchTTL)
			pipe.SAdd(ctx, activeMatchesKey, string(match.ID))
			for _, p := range match.Players {
				if !p.IsBot {
					pipe.HSet(ctx, locationKey(p.PlayerID), "match", string(match.ID))
				}
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	return err
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	key := matchKey(match.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrMatchNotFound
			}
			return err
		}

		var stored model.Match
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		if stored.Version != match.Version {
			return model.ErrVersionConflict
		}

		match.Version++
		updated, err := json.Marshal(match)
		if err != nil {
			match.Version--
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.cfg.MatchTTL)
			if match.IsOver() {
				pipe.SRem(ctx, activeMatchesKey, string(match.ID))
				for _, p := range match.Players {
					if !p.IsBot {
						pipe.HDel(ctx, locationKey(p.PlayerID), "match")
					}
				}
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	return err
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *Storage) ListActiveMatches(ctx context.Context) ([]*model.Match, error) {
	ids, err := s.client.SMembers(ctx, activeMatchesKey).Result()
	if err != nil {
		return nil, err
	}

	var out []*model.Match
	for _, id := range ids {
		match, err := s.GetMatch(ctx, model.MatchID(id))
		if err != nil {
			if errors.Is(err, model.ErrMatchNotFound) {
				continue
			}
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
	fields, err := s.client.HGetAll(ctx, locationKey(id)).Result()
	if err != nil {
		return storage.PlayerLocation{}, err
	}
	return storage.PlayerLocation{
		RoomID:  model.RoomID(fields["room"]),
		MatchID: model.MatchID(fields["match"]),
	}, nil
}

// Presence operations

func (s *Storage) SavePresence(ctx context.Context, p *model.Presence) error {
	p.Version++
	data, err := json.Marshal(p)
	if err != nil {
		p.Version--
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, presenceKey(p.PlayerID), data, s.cfg.PresenceTTL)
	pipe.SAdd(ctx, presenceIndexKey, string(p.PlayerID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPresence(ctx context.Context, id model.PlayerID) (*model.Presence, error) {
	data, err := s.client.Get(ctx, presenceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var p model.Presence
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) ListPresence(ctx context.Context) ([]*model.Presence, error) {
	ids, err := s.client.SMembers(ctx, presenceIndexKey).Result()
	if err != nil {
		return nil, err
	}

	var out []*model.Presence
	for _, id := range ids {
		p, err := s.GetPresence(ctx, model.PlayerID(id))
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				// Record expired; drop from the index
				s.client.SRem(ctx, presenceIndexKey, id)
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// index helpers

func (s *Storage) writeRoomIndexes(ctx context.Context, pipe redis.Pipeliner, room *model.WaitingRoom) {
	if room.Status == model.RoomStatusWaiting {
		pipe.ZAdd(ctx, waitingRoomsKey(room.Mode), redis.Z{
			Score:  float64(room.CreatedAt.UnixNano()),
			Member: string(room.ID),
		})
	} else {
		pipe.ZRem(ctx, waitingRoomsKey(room.Mode), string(room.ID))
	}
	for _, m := range room.Members {
		if !m.IsBot {
			pipe.HSet(ctx, locationKey(m.PlayerID), "room", string(room.ID))
		}
	}
}

func (s *Storage) clearRoomIndexes(ctx context.Context, pipe redis.Pipeliner, room *model.WaitingRoom) {
	for _, m := range room.Members {
		if !m.IsBot {
			pipe.HDel(ctx, locationKey(m.PlayerID), "room")
		}
	}
}
