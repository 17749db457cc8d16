package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/entity"
	"github.com/rocketscienceinc/omok-backend/internal/protocol"
	"github.com/rocketscienceinc/omok-backend/internal/protocol/protocoltest"
	"github.com/rocketscienceinc/omok-backend/internal/repository"
	"github.com/rocketscienceinc/omok-backend/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	eventuallyWait = 2 * time.Second
	eventuallyTick = 2 * time.Millisecond
)

var errRedisDown = errors.New("redis down")

type mockRecordRepo struct {
	mock.Mock
}

func (m *mockRecordRepo) Save(ctx context.Context, userID string, won bool) error {
	args := m.Called(ctx, userID, won)
	return args.Error(0)
}

func (m *mockRecordRepo) GetByID(ctx context.Context, userID string) (*entity.Record, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*entity.Record)

	return record, args.Error(1)
}

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*entity.Profile)

	return profile, args.Error(1)
}

type mockMetrics struct {
	mock.Mock
}

func (m *mockMetrics) RoomCreated()                { m.Called() }
func (m *mockMetrics) RoomRemoved()                { m.Called() }
func (m *mockMetrics) MatchFinished(reason string) { m.Called(reason) }
func (m *mockMetrics) RecordWriteFailed()          { m.Called() }

type serviceFixture struct {
	service   *RoomService
	directory *room.Directory
	records   *mockRecordRepo
	profiles  *mockProfileRepo
	metrics   *mockMetrics
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	broadcaster := protocol.NewBroadcaster(logger, nil)
	directory := room.NewDirectory(logger, room.Settings{CountdownFrom: 2, TickInterval: time.Millisecond}, broadcaster)

	records := &mockRecordRepo{}
	profiles := &mockProfileRepo{}
	profiles.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrProfileNotFound).Maybe()

	metrics := &mockMetrics{}
	metrics.On("RoomCreated").Maybe()
	metrics.On("RoomRemoved").Maybe()
	metrics.On("MatchFinished", mock.Anything).Maybe()
	metrics.On("RecordWriteFailed").Maybe()

	return &serviceFixture{
		service:   NewRoomService(logger, directory, broadcaster, records, profiles, metrics),
		directory: directory,
		records:   records,
		profiles:  profiles,
		metrics:   metrics,
	}
}

// startMatch - alice creates the room, bob enters it, both players connect and the countdown completes.
func (f *serviceFixture) startMatch(t *testing.T) (*protocoltest.Conn, *protocoltest.Conn) {
	t.Helper()

	ctx := context.Background()

	_, err := f.service.CreateRoom("alice", "room-1")
	require.NoError(t, err)
	_, err = f.service.EnterRoom("room-1", "bob")
	require.NoError(t, err)

	alice, bob := protocoltest.NewConn(), protocoltest.NewConn()

	result, err := f.service.OnJoin(ctx, "room-1", "alice", alice, false)
	require.NoError(t, err)
	require.Equal(t, room.PlayerJoined, result)

	result, err = f.service.OnJoin(ctx, "room-1", "bob", bob, false)
	require.NoError(t, err)
	require.Equal(t, room.RoomReady, result)

	found, ok := f.directory.Get("room-1")
	require.True(t, ok)
	require.Eventually(t, func() bool { return found.Status() == room.StatusPlaying }, eventuallyWait, eventuallyTick)

	return alice, bob
}

func move(x, y int) []byte {
	return []byte(fmt.Sprintf(`{"type":"MOVE","payload":{"x":%d,"y":%d}}`, x, y))
}

func lastError(t *testing.T, conn *protocoltest.Conn) protocol.ErrorPayload {
	t.Helper()

	frame, ok := conn.Last(protocol.TypeError)
	require.True(t, ok, "no ERROR frame")

	var payload protocol.ErrorPayload
	require.NoError(t, frame.Decode(&payload))

	return payload
}

func TestRoomService_CreateRoom(t *testing.T) {
	t.Run("Creates a waiting room", func(t *testing.T) {
		// Given: a service with an empty directory
		f := newServiceFixture(t)

		// When: alice opens a room
		info, err := f.service.CreateRoom("alice", "")

		// Then: it is listed as waiting and counted
		require.NoError(t, err)
		assert.NotEmpty(t, info.ID)
		assert.Equal(t, []string{"alice"}, info.Players)
		assert.Equal(t, room.StatusWait, info.Status)
		assert.Equal(t, []room.Info{info}, f.service.WaitingRooms())
		f.metrics.AssertCalled(t, "RoomCreated")
	})

	t.Run("Duplicate id", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.CreateRoom("alice", "room-1")
		require.NoError(t, err)

		_, err = f.service.CreateRoom("bob", "room-1")

		require.ErrorIs(t, err, apperror.ErrRoomAlreadyExists)
		f.metrics.AssertNumberOfCalls(t, "RoomCreated", 1)
	})
}

func TestRoomService_EnterRoom(t *testing.T) {
	t.Run("Unknown room", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.EnterRoom("missing", "bob")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Second player takes the free slot", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.CreateRoom("alice", "room-1")
		require.NoError(t, err)

		info, err := f.service.EnterRoom("room-1", "bob")

		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, info.Players)
	})

	t.Run("Full room", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.CreateRoom("alice", "room-1")
		require.NoError(t, err)
		_, err = f.service.EnterRoom("room-1", "bob")
		require.NoError(t, err)

		_, err = f.service.EnterRoom("room-1", "carol")

		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})
}

func TestRoomService_FirstWaitingRoom(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.FirstWaitingRoom()
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)

	_, err = f.service.CreateRoom("alice", "first")
	require.NoError(t, err)
	_, err = f.service.CreateRoom("bob", "second")
	require.NoError(t, err)

	info, err := f.service.FirstWaitingRoom()

	require.NoError(t, err)
	assert.Equal(t, "first", info.ID)
}

func TestRoomService_Scenario_BlackWinsAndRecordsAreSaved(t *testing.T) {
	// Given: alice (black) and bob (white) in a running match
	f := newServiceFixture(t)
	f.records.On("Save", mock.Anything, "alice", true).Return(nil).Once()
	f.records.On("Save", mock.Anything, "bob", false).Return(nil).Once()
	alice, bob := f.startMatch(t)

	// When: alice completes a column of five while bob plays elsewhere
	whiteMoves := [][2]int{{0, 0}, {0, 2}, {0, 4}, {0, 6}}
	for i := 0; i < 4; i++ {
		require.NoError(t, f.service.OnMessage("room-1", "alice", alice, move(7, 7+i)))
		require.NoError(t, f.service.OnMessage("room-1", "bob", bob, move(whiteMoves[i][0], whiteMoves[i][1])))
	}
	require.NoError(t, f.service.OnMessage("room-1", "alice", alice, move(7, 11)))

	// Then: everyone sees alice win
	frame, ok := bob.Last(protocol.TypeGameEnd)
	require.True(t, ok)

	var end protocol.GameEndPayload
	require.NoError(t, frame.Decode(&end))
	assert.Equal(t, protocol.GameEndPayload{Winner: "alice"}, end)

	// And: one win and one loss are persisted and the room is gone
	f.service.Wait()
	f.records.AssertExpectations(t)

	_, found := f.directory.Get("room-1")
	assert.False(t, found)
	f.metrics.AssertCalled(t, "MatchFinished", protocol.ReasonWin)
	f.metrics.AssertCalled(t, "RoomRemoved")
}

func TestRoomService_Forfeit(t *testing.T) {
	// Given: a running match
	f := newServiceFixture(t)
	f.records.On("Save", mock.Anything, "bob", true).Return(nil).Once()
	f.records.On("Save", mock.Anything, "alice", false).Return(nil).Once()
	alice, _ := f.startMatch(t)

	// When: alice's connection closes
	result, err := f.service.OnLeave("room-1", "alice", alice)

	// Then: bob is credited with the win
	require.NoError(t, err)
	assert.Equal(t, room.PlayerLeftDuringGame, result)

	f.service.Wait()
	f.records.AssertExpectations(t)
	f.metrics.AssertCalled(t, "MatchFinished", protocol.ReasonForfeit)
}

func TestRoomService_FinishAfterWaitIsNotPersisted(t *testing.T) {
	// Given: a match in progress and a service that is already draining
	f := newServiceFixture(t)
	alice, _ := f.startMatch(t)
	f.service.Wait()

	// When: a player leaves and the match ends by forfeit
	result, err := f.service.OnLeave("room-1", "alice", alice)

	// Then: the room still finishes but no record write is started
	require.NoError(t, err)
	assert.Equal(t, room.PlayerLeftDuringGame, result)

	f.service.Wait()
	f.records.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	f.metrics.AssertCalled(t, "MatchFinished", protocol.ReasonForfeit)
}

func TestRoomService_NoWinnerNoRecords(t *testing.T) {
	// Given: a room with only its owner connected
	f := newServiceFixture(t)
	_, err := f.service.CreateRoom("alice", "room-1")
	require.NoError(t, err)

	conn := protocoltest.NewConn()
	_, err = f.service.OnJoin(context.Background(), "room-1", "alice", conn, false)
	require.NoError(t, err)

	// When: the owner leaves
	result, err := f.service.OnLeave("room-1", "alice", conn)

	// Then: the empty room is removed and nothing is persisted
	require.NoError(t, err)
	assert.Equal(t, room.RoomEmpty, result)

	f.service.Wait()
	f.records.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	f.metrics.AssertCalled(t, "MatchFinished", protocol.ReasonRoomEmpty)
	assert.Empty(t, f.service.WaitingRooms())
}

func TestRoomService_RecordWriteFailure(t *testing.T) {
	// Given: a store that is down
	f := newServiceFixture(t)
	f.records.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errRedisDown).Twice()
	alice, _ := f.startMatch(t)

	// When: the match ends by forfeit
	_, err := f.service.OnLeave("room-1", "alice", alice)
	require.NoError(t, err)

	// Then: the failures are counted and nothing else breaks
	f.service.Wait()
	f.records.AssertExpectations(t)
	f.metrics.AssertNumberOfCalls(t, "RecordWriteFailed", 2)
}

func TestRoomService_OnJoin(t *testing.T) {
	t.Run("Unknown room", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.OnJoin(context.Background(), "missing", "alice", protocoltest.NewConn(), false)

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("A third user spectates and chats as a spectator", func(t *testing.T) {
		// Given: a room whose player slots are taken
		f := newServiceFixture(t)
		alice, _ := f.startMatch(t)

		// When: carol connects asking to play
		carol := protocoltest.NewConn()
		result, err := f.service.OnJoin(context.Background(), "room-1", "carol", carol, false)

		// Then: she spectates and her chat is tagged as such
		require.NoError(t, err)
		assert.Equal(t, room.SpectatorJoined, result)

		require.NoError(t, f.service.OnMessage("room-1", "carol", carol, []byte(`{"type":"CHAT","payload":"nice"}`)))

		frame, ok := alice.Last(protocol.TypeChat)
		require.True(t, ok)

		var chat protocol.ChatPayload
		require.NoError(t, frame.Decode(&chat))
		assert.Equal(t, protocol.ChatPayload{
			SenderID:    "carol",
			SenderRole:  entity.RoleSpectator,
			PlayerIndex: protocol.PlayerIndexSpectator,
			Message:     "nice",
		}, chat)
	})

	t.Run("A user without a slot asking to play spectates", func(t *testing.T) {
		// Given: alice's room with a free second slot nobody entered
		f := newServiceFixture(t)
		_, err := f.service.CreateRoom("alice", "room-1")
		require.NoError(t, err)

		// When: mallory opens a connection asking to play
		result, err := f.service.OnJoin(context.Background(), "room-1", "mallory", protocoltest.NewConn(), false)

		// Then: she watches and the slot stays free
		require.NoError(t, err)
		assert.Equal(t, room.SpectatorJoined, result)

		found, ok := f.directory.Get("room-1")
		require.True(t, ok)

		info := found.Snapshot()
		assert.Equal(t, []string{"alice"}, info.Players)
		assert.Equal(t, room.StatusWait, info.Status)
		assert.Equal(t, 1, info.Spectators)
	})

	t.Run("Stored profile is announced", func(t *testing.T) {
		// Given: alice has a stored profile without an image
		f := newServiceFixture(t)
		f.profiles.ExpectedCalls = nil
		f.profiles.On("GetByID", mock.Anything, "alice").
			Return(&entity.Profile{ID: "alice", Nickname: "Alice"}, nil).
			Once()
		_, err := f.service.CreateRoom("alice", "room-1")
		require.NoError(t, err)

		// When: alice connects
		conn := protocoltest.NewConn()
		_, err = f.service.OnJoin(context.Background(), "room-1", "alice", conn, false)

		// Then: the stored nickname and the default image are used
		require.NoError(t, err)

		frame, ok := conn.Last(protocol.TypeJoin)
		require.True(t, ok)

		var join protocol.JoinPayload
		require.NoError(t, frame.Decode(&join))
		assert.Equal(t, "Alice", join.Nickname)
		assert.Equal(t, entity.DefaultProfileImg, join.ProfileImg)
	})

	t.Run("Profile store failure falls back to a guest", func(t *testing.T) {
		f := newServiceFixture(t)
		f.profiles.ExpectedCalls = nil
		f.profiles.On("GetByID", mock.Anything, "alice").Return(nil, errRedisDown).Once()
		_, err := f.service.CreateRoom("alice", "room-1")
		require.NoError(t, err)

		conn := protocoltest.NewConn()
		_, err = f.service.OnJoin(context.Background(), "room-1", "alice", conn, false)
		require.NoError(t, err)

		frame, ok := conn.Last(protocol.TypeJoin)
		require.True(t, ok)

		var join protocol.JoinPayload
		require.NoError(t, frame.Decode(&join))
		assert.Equal(t, "Guest_alice", join.Nickname)
	})
}

func TestRoomService_OnMessage(t *testing.T) {
	t.Run("Malformed frame", func(t *testing.T) {
		f := newServiceFixture(t)
		alice, _ := f.startMatch(t)

		err := f.service.OnMessage("room-1", "alice", alice, []byte(`{not json`))

		require.NoError(t, err)
		assert.Equal(t, "INVALID_MESSAGE_FORMAT", lastError(t, alice).Code)
	})

	t.Run("Unsupported type", func(t *testing.T) {
		f := newServiceFixture(t)
		alice, bob := f.startMatch(t)

		err := f.service.OnMessage("room-1", "alice", alice, []byte(`{"type":"RESIGN","payload":{}}`))

		require.NoError(t, err)
		assert.Equal(t, "UNSUPPORTED_MESSAGE", lastError(t, alice).Code)
		assert.Zero(t, bob.Count(protocol.TypeError))
	})

	t.Run("Spectator move", func(t *testing.T) {
		f := newServiceFixture(t)
		f.startMatch(t)
		carol := protocoltest.NewConn()
		_, err := f.service.OnJoin(context.Background(), "room-1", "carol", carol, true)
		require.NoError(t, err)

		err = f.service.OnMessage("room-1", "carol", carol, move(7, 7))

		require.NoError(t, err)
		assert.Equal(t, "SPECTATOR_CANNOT_MOVE", lastError(t, carol).Code)
	})

	t.Run("Unknown room", func(t *testing.T) {
		f := newServiceFixture(t)
		conn := protocoltest.NewConn()

		err := f.service.OnMessage("missing", "alice", conn, move(7, 7))

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.Equal(t, "ROOM_NOT_FOUND", lastError(t, conn).Code)
	})
}

func TestRoomService_OnLeave_UnknownRoom(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.OnLeave("missing", "alice", protocoltest.NewConn())

	require.ErrorIs(t, err, apperror.ErrRoomNotFound)
}

func TestRoomService_GetRecord(t *testing.T) {
	t.Run("No finished matches yet", func(t *testing.T) {
		f := newServiceFixture(t)
		f.records.On("GetByID", mock.Anything, "alice").Return(nil, repository.ErrRecordNotFound).Once()

		record, err := f.service.GetRecord(context.Background(), "alice")

		require.NoError(t, err)
		assert.Equal(t, &entity.Record{UserID: "alice"}, record)
	})

	t.Run("Stored tally", func(t *testing.T) {
		f := newServiceFixture(t)
		stored := &entity.Record{UserID: "alice", Wins: 3, Losses: 1}
		f.records.On("GetByID", mock.Anything, "alice").Return(stored, nil).Once()

		record, err := f.service.GetRecord(context.Background(), "alice")

		require.NoError(t, err)
		assert.Equal(t, stored, record)
	})

	t.Run("Store failure", func(t *testing.T) {
		f := newServiceFixture(t)
		f.records.On("GetByID", mock.Anything, "alice").Return(nil, errRedisDown).Once()

		_, err := f.service.GetRecord(context.Background(), "alice")

		require.ErrorIs(t, err, errRedisDown)
	})
}
