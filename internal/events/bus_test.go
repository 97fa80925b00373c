package events

import (
	"testing"

	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type BusSuite struct {
	suite.Suite
	bus *Bus
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) SetupTest() {
	s.bus = NewBus(testutil.NopLogger())
}

func (s *BusSuite) receive(sub *Subscription) (model.Event, bool) {
	select {
	case e, ok := <-sub.Events():
		return e, ok
	default:
		return model.Event{}, false
	}
}

func (s *BusSuite) TestPublishReachesMatchingSubscriber() {
	sub := s.bus.Subscribe(All)

	s.bus.Publish(model.Event{Type: model.EventRoomJoined, RoomID: "ROOM1"})

	e, ok := s.receive(sub)
	s.Require().True(ok)
	s.Equal(model.EventRoomJoined, e.Type)
	s.Equal(model.RoomID("ROOM1"), e.RoomID)
}

func (s *BusSuite) TestFilterExcludesOtherEvents() {
	sub := s.bus.Subscribe(ForRoom("ROOM1"))

	s.bus.Publish(model.Event{Type: model.EventRoomJoined, RoomID: "ROOM2"})

	_, ok := s.receive(sub)
	s.False(ok)
}

func (s *BusSuite) TestForPlayerMatchesAnyListedPlayer() {
	sub := s.bus.Subscribe(ForPlayer("p1", "p2"))

	s.bus.Publish(model.Event{Type: model.EventPlayerStale, PlayerID: "p2"})
	s.bus.Publish(model.Event{Type: model.EventPlayerStale, PlayerID: "p3"})

	e, ok := s.receive(sub)
	s.Require().True(ok)
	s.Equal(model.PlayerID("p2"), e.PlayerID)

	_, ok = s.receive(sub)
	s.False(ok)
}

func (s *BusSuite) TestForMatchFilter() {
	sub := s.bus.Subscribe(ForMatch("MATCH1"))

	s.bus.Publish(model.Event{Type: model.EventMatchStarted, MatchID: "MATCH1"})

	e, ok := s.receive(sub)
	s.Require().True(ok)
	s.Equal(model.MatchID("MATCH1"), e.MatchID)
}

func (s *BusSuite) TestAnyCombinesFilters() {
	sub := s.bus.Subscribe(Any(ForRoom("ROOM1"), ForMatch("MATCH1")))

	s.bus.Publish(model.Event{Type: model.EventRoomJoined, RoomID: "ROOM1"})
	s.bus.Publish(model.Event{Type: model.EventMatchStarted, MatchID: "MATCH1"})
	s.bus.Publish(model.Event{Type: model.EventRoomJoined, RoomID: "ROOM2"})

	_, ok := s.receive(sub)
	s.True(ok)
	_, ok = s.receive(sub)
	s.True(ok)
	_, ok = s.receive(sub)
	s.False(ok)
}

func (s *BusSuite) TestEachSubscriberGetsItsOwnCopy() {
	first := s.bus.Subscribe(All)
	second := s.bus.Subscribe(All)

	s.bus.Publish(model.Event{Type: model.EventRoomJoined, RoomID: "ROOM1"})

	_, ok := s.receive(first)
	s.True(ok)
	_, ok = s.receive(second)
	s.True(ok)
}

func (s *BusSuite) TestSlowSubscriberDropsOverflow() {
	sub := s.bus.Subscribe(All)

	for i := 0; i < subscriberBuffer+5; i++ {
		s.bus.Publish(model.Event{Type: model.EventRoomJoined, RoomID: "ROOM1"})
	}

	received := 0
	for {
		if _, ok := s.receive(sub); !ok {
			break
		}
		received++
	}
	s.Equal(subscriberBuffer, received)
}

func (s *BusSuite) TestUnsubscribeClosesChannel() {
	sub := s.bus.Subscribe(All)

	s.bus.Unsubscribe(sub)

	_, open := <-sub.Events()
	s.False(open)

	// Publishing after unsubscribe must not panic
	s.bus.Publish(model.Event{Type: model.EventRoomJoined})
}

func (s *BusSuite) TestUnsubscribeTwiceIsSafe() {
	sub := s.bus.Subscribe(All)
	s.bus.Unsubscribe(sub)
	s.bus.Unsubscribe(sub)
}

func (s *BusSuite) TestCloseShutsDownAllSubscriptions() {
	first := s.bus.Subscribe(All)
	second := s.bus.Subscribe(ForRoom("ROOM1"))

	s.bus.Close()

	_, open := <-first.Events()
	s.False(open)
	_, open = <-second.Events()
	s.False(open)

	s.bus.Publish(model.Event{Type: model.EventRoomJoined})
}

func (s *BusSuite) TestSubscribeAfterCloseReturnsClosedChannel() {
	s.bus.Close()

	sub := s.bus.Subscribe(All)
	_, open := <-sub.Events()
	s.False(open)
}
