package redis

import "github.com/dicearena/dicearena/internal/model"

// Key layout:
//
//	player:<id>            player record
//	rplayer:<id>           registered player record
//	username:<name>        username -> player id index
//	room:<id>              waiting room record (JSON, carries Version)
//	rooms:all              set of all room ids
//	rooms:waiting:<mode>   zset of waiting room ids scored by creation time
//	match:<id>             match record (JSON, carries Version)
//	matches:active         set of match ids not yet at game over
//	loc:<player id>        hash {room, match} player location index
//	presence:<id>          presence record

func playerKey(id model.PlayerID) string {
	return "player:" + string(id)
}

func registeredPlayerKey(id model.PlayerID) string {
	return "rplayer:" + string(id)
}

func usernameIndexKey(username string) string {
	return "username:" + username
}

func roomKey(id model.RoomID) string {
	return "room:" + string(id)
}

const allRoomsKey = "rooms:all"

func waitingRoomsKey(mode model.ModeID) string {
	return "rooms:waiting:" + string(mode)
}

func matchKey(id model.MatchID) string {
	return "match:" + string(id)
}

const activeMatchesKey = "matches:active"

func locationKey(id model.PlayerID) string {
	return "loc:" + string(id)
}

func presenceKey(id model.PlayerID) string {
	return "presence:" + string(id)
}
