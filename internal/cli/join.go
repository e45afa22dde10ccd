package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vishwas-11/nodecall/internal/config"
	"github.com/vishwas-11/nodecall/internal/media"
	"github.com/vishwas-11/nodecall/internal/relay"
	"github.com/vishwas-11/nodecall/internal/rtc"
	"github.com/vishwas-11/nodecall/internal/session"
)

var (
	flagJoinName     string
	flagJoinAvatar   string
	flagJoinServer   string
	flagJoinDomain   string
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
)

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join a room and start a call",
	Long: `Join a named room. The first two participants to join are connected
peer to peer; further joins are rejected.

While in the room, lines typed on stdin are sent as chat messages.
Commands: /share  /stop  /mic  /cam  /quit

Examples:
  nodecall join abc123 --name Alice
  nodecall join abc123 --name Bob --avatar 🤖`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagJoinDomain,
		ServerURL:  flagJoinServer,
		STUNServer: flagJoinSTUN,
		TURNServer: flagJoinTURN,
		TURNUser:   flagJoinTURNUser,
		TURNPass:   flagJoinTURNPass,
	})
	if err != nil {
		return err
	}

	avatar := flagJoinAvatar
	if avatar == "" {
		avatar = "👤"
	}

	client := relay.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect to relay: %w", err)
	}

	handler := relay.NewHandler(client)
	go handler.Start()

	coord, err := session.New(session.Config{
		RoomID:   roomID,
		Username: strings.TrimSpace(flagJoinName),
		Avatar:   avatar,
	}, session.Deps{
		Conn:     client,
		Events:   handler,
		Capturer: media.SyntheticCapturer{},
		Factory:  rtc.NewPionFactory(cfg),
		Notifier: consoleNotifier{},
	})
	if err != nil {
		client.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go readInput(coord)

	fmt.Printf("joining room %s as %s %s\n", roomID, avatar, flagJoinName)
	fmt.Printf("share this link: %s\n", cfg.GetRoomLink(roomID))

	if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// readInput turns stdin lines into session intents until EOF.
func readInput(coord *session.Coordinator) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/share":
			coord.StartShare()
		case "/stop":
			coord.StopShare()
		case "/mic":
			coord.ToggleMic()
		case "/cam":
			coord.ToggleCamera()
		case "/quit":
			coord.Leave()
			return
		default:
			coord.SendChat(line)
		}
	}
	coord.Leave()
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "Display name (required)")
	joinCmd.Flags().StringVarP(&flagJoinAvatar, "avatar", "a", "", "Avatar glyph")
	joinCmd.Flags().StringVar(&flagJoinServer, "server", "", "Relay websocket URL (overrides --domain)")
	joinCmd.Flags().StringVar(&flagJoinDomain, "domain", "", "Relay server domain")
	joinCmd.Flags().StringVarP(&flagJoinSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagJoinTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVar(&flagJoinTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagJoinTURNPass, "turn-pass", "", "TURN password")
}
