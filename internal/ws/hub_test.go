package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHubAddAndRemoveChatClient(t *testing.T) {
	hub := NewHub()
	client := &Client{}

	hub.AddChatClient(1, client)
	require.Equal(t, 1, hub.RoomSize(KindChat, 1))
	require.Equal(t, 0, hub.RoomSize(KindGame, 1))

	hub.RemoveChatClient(1, client)
	require.Empty(t, hub.chatRooms)
}

func TestHubAddAndRemoveGameClient(t *testing.T) {
	hub := NewHub()
	a, b := &Client{}, &Client{}

	hub.AddGameClient(2, a)
	hub.AddGameClient(2, b)
	require.Equal(t, 2, hub.RoomSize(KindGame, 2))

	hub.RemoveGameClient(2, a)
	require.Equal(t, 1, hub.RoomSize(KindGame, 2))
	hub.RemoveGameClient(2, b)
	require.Empty(t, hub.gameRooms)
}

func TestHubRelaySkipsSender(t *testing.T) {
	hub := NewHub()
	sender := &Client{}
	hub.AddGameClient(3, sender)

	require.Equal(t, 0, hub.RelayGameMessage(3, sender, []byte(`{"move":1}`)))
	require.Equal(t, 1, hub.RoomSize(KindGame, 3))
}

func TestHubDropsClientOnWriteError(t *testing.T) {
	hub := NewHub()
	sender, broken := &Client{}, &Client{}
	hub.AddGameClient(4, sender)
	hub.AddGameClient(4, broken)

	// a Client without a connection fails every write
	require.Equal(t, 0, hub.RelayGameMessage(4, sender, []byte(`{}`)))
	require.Equal(t, 1, hub.RoomSize(KindGame, 4))
}

func TestIsJSONObject(t *testing.T) {
	require.True(t, isJSONObject([]byte(` {"a":1} `)))
	require.False(t, isJSONObject([]byte(`[1,2]`)))
	require.False(t, isJSONObject([]byte(`{"a":`)))
	require.False(t, isJSONObject([]byte(``)))
}
