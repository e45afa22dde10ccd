package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultSTUN, cfg.STUNServer)
	assert.Equal(t, "wss://"+DefaultDomain+"/ws", cfg.WebSocketURL)
	assert.Empty(t, cfg.AllowedOrigin)
	assert.Empty(t, cfg.TURNServer)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("NODECALL_DOMAIN", "call.example.com")
	t.Setenv("NODECALL_LISTEN_ADDR", ":9090")
	t.Setenv("STUN_SERVER", "stun:stun.example.com:3478")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "call.example.com", cfg.Domain)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "stun:stun.example.com:3478", cfg.STUNServer)
	assert.Equal(t, "wss://call.example.com/ws", cfg.WebSocketURL)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("NODECALL_DOMAIN", "env.example.com")
	t.Setenv("NODECALL_SERVER_URL", "wss://env.example.com/ws")

	cfg, err := Load(Options{
		Domain:    "flag.example.com",
		ServerURL: "ws://localhost:8080/ws",
	})
	require.NoError(t, err)

	assert.Equal(t, "flag.example.com", cfg.Domain)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.WebSocketURL)
}

func TestGetRoomLink(t *testing.T) {
	cfg := &Config{Domain: "call.example.com"}
	assert.Equal(t, "https://call.example.com/room/abc123", cfg.GetRoomLink("abc123"))
}

func TestGetTURNServers(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.GetTURNServers())

	cfg.TURNServer = "turn:turn.example.com"
	servers := cfg.GetTURNServers()
	require.Len(t, servers, 3)
	assert.Equal(t, "turn:turn.example.com:3478?transport=udp", servers[0])
	assert.Equal(t, "turn:turn.example.com:3478?transport=tcp", servers[1])
	assert.Contains(t, servers[2], "turns:")
	assert.Contains(t, servers[2], ":5349?transport=tcp")
}
