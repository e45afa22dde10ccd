package config

import (
	"fmt"
	"os"
)

// Default configuration values (production)
const (
	DefaultDomain     = "nodecall.fly.dev"
	DefaultSTUN       = "stun:stun.l.google.com:19302"
	DefaultListenAddr = ":8080"
)

// Config holds application configuration for both the relay server and
// the client.
type Config struct {
	// Domain is the relay server domain.
	Domain string

	// WebSocketURL is constructed from the domain unless overridden.
	WebSocketURL string

	// ListenAddr is the relay server bind address.
	ListenAddr string

	// AllowedOrigin restricts websocket upgrades; empty allows any.
	AllowedOrigin string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options for loading config with CLI flag overrides.
type Options struct {
	Domain        string
	ServerURL     string
	ListenAddr    string
	AllowedOrigin string
	STUNServer    string
	TURNServer    string
	TURNUser      string
	TURNPass      string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstOf(opts.Domain, os.Getenv("NODECALL_DOMAIN"), DefaultDomain)
	listenAddr := firstOf(opts.ListenAddr, os.Getenv("NODECALL_LISTEN_ADDR"), DefaultListenAddr)
	allowedOrigin := firstOf(opts.AllowedOrigin, os.Getenv("NODECALL_ALLOWED_ORIGIN"), "")
	stunServer := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"), "")
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), "")
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), "")

	wsURL := firstOf(opts.ServerURL, os.Getenv("NODECALL_SERVER_URL"), fmt.Sprintf("wss://%s/ws", domain))

	return &Config{
		Domain:        domain,
		WebSocketURL:  wsURL,
		ListenAddr:    listenAddr,
		AllowedOrigin: allowedOrigin,
		STUNServer:    stunServer,
		TURNServer:    turnServer,
		TURNUser:      turnUser,
		TURNPass:      turnPass,
	}, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetRoomLink returns the webapp URL for a room ID.
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/room/%s", c.Domain, roomID)
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
