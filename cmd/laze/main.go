package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
	kongcompletion "github.com/jotaen/kong-completion"

	laze "github.com/PropzSaladaz/Laze"
	"github.com/PropzSaladaz/Laze/action"
	"github.com/PropzSaladaz/Laze/client"
	"github.com/PropzSaladaz/Laze/config"
	"github.com/PropzSaladaz/Laze/input"
	"github.com/PropzSaladaz/Laze/server"
)

type CLI struct {
	Version    kong.VersionFlag          `help:"Print version."`
	ConfigFile string                    `help:"Config file override." env:"LAZE_CONFIG"`
	Serve      ServeCmd                  `cmd:"" help:"Run the remote input server in the foreground."`
	Discover   DiscoverCmd               `cmd:"" help:"Probe the LAN for a running server."`
	Send       SendCmd                   `cmd:"" help:"Connect as a client and send input actions."`
	ShowConfig ShowConfigCmd             `cmd:"" name:"config" help:"Print effective configuration."`
	Completion kongcompletion.Completion `cmd:"" help:"Print shell completion setup instructions."`
}

type ServeCmd struct {
	Port        int  `help:"Handshake port override."`
	MaxClients  int  `help:"Maximum concurrent clients override."`
	NoDiscovery bool `help:"Disable the UDP discovery responder."`
}

func (cmd *ServeCmd) Run(cfg *config.Config) error {
	if cmd.Port != 0 {
		cfg.Server.StartingPort = cmd.Port
	}
	if cmd.MaxClients != 0 {
		cfg.Server.MaxClients = cmd.MaxClients
	}
	if cmd.NoDiscovery {
		cfg.Server.Discovery = false
	}

	// The OS injection backend is provided by embedders; the standalone
	// binary logs every synthesized action instead.
	ctrl := input.NewController(input.NewLogSynthesizer(), cfg.Input)

	comm, err := server.Start(server.Config{
		StartingPort:  cfg.Server.StartingPort,
		MaxClients:    cfg.Server.MaxClients,
		Discovery:     cfg.Server.Discovery,
		DiscoveryPort: cfg.Server.DiscoveryPort,
		EventBuffer:   cfg.Server.EventBuffer,
	}, ctrl)
	if err != nil {
		return err
	}
	defer comm.Close()

	resp, err := comm.Roundtrip(server.InitServer{})
	if err != nil {
		return err
	}
	if _, ok := resp.(server.ServerStarted); !ok {
		return fmt.Errorf("unexpected init response %T", resp)
	}
	fmt.Printf("laze server listening on port %d\n", cfg.Server.StartingPort)

	sub := comm.Subscribe()
	go func() {
		for ev := range sub.C() {
			switch e := ev.(type) {
			case server.ClientAdded:
				fmt.Printf("client %d connected from %s (port %d)\n", e.Client.ID, e.Client.Addr, e.Client.Port)
			case server.ClientRemoved:
				fmt.Printf("client %d disconnected\n", e.Client.ID)
			case server.Lagged:
				fmt.Printf("missed %d lifecycle events\n", e.Count)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	fmt.Println("shutting down")

	if _, err := comm.Roundtrip(server.TerminateServer{}); err != nil {
		return err
	}
	// Drain until the control plane closes; the accept loop exits within
	// one poll tick.
	for {
		if _, err := comm.Receive(); err != nil {
			return nil
		}
	}
}

type DiscoverCmd struct {
	Timeout time.Duration `default:"3s" help:"How long to wait for a reply."`
}

func (cmd *DiscoverCmd) Run(cfg *config.Config) error {
	addr, err := client.Discover(cfg.Server.DiscoveryPort, cmd.Timeout)
	if err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}

type SendCmd struct {
	Addr    string `help:"Server handshake address (host:port). Discovered when empty."`
	Text    string `help:"Type a line of text on the host."`
	Key     string `help:"Press an abstract key (enter, volume-up, close-tab, ...)."`
	Command string `help:"Run a shell command on the host."`
	Scroll  int    `help:"Scroll by the given delta."`
}

func (cmd *SendCmd) Run(cfg *config.Config) error {
	acts, err := cmd.actions()
	if err != nil {
		return err
	}
	if len(acts) == 0 {
		return fmt.Errorf("nothing to send: pass --text, --key, --command or --scroll")
	}

	addr := cmd.Addr
	if addr == "" {
		if addr, err = client.Discover(cfg.Server.DiscoveryPort, 3*time.Second); err != nil {
			return err
		}
	}

	sess, err := client.Connect(addr)
	if err != nil {
		return err
	}
	if err := sess.Send(acts...); err != nil {
		sess.Close()
		return err
	}
	return sess.Disconnect()
}

func (cmd *SendCmd) actions() ([]action.Action, error) {
	var acts []action.Action
	for _, ch := range cmd.Text {
		if ch > 0x7F {
			return nil, fmt.Errorf("text is limited to ASCII, got %q", ch)
		}
		acts = append(acts, action.Text{Ch: byte(ch)})
	}
	if cmd.Key != "" {
		k, ok := action.KeyByName(cmd.Key)
		if !ok {
			return nil, fmt.Errorf("unknown key %q", cmd.Key)
		}
		acts = append(acts, action.KeyPress{Key: k})
	}
	if cmd.Command != "" {
		acts = append(acts, action.TerminalCommand{Command: cmd.Command})
	}
	if cmd.Scroll != 0 {
		if cmd.Scroll < -128 || cmd.Scroll > 127 {
			return nil, fmt.Errorf("scroll delta out of range: %d", cmd.Scroll)
		}
		acts = append(acts, action.Scroll{Delta: int8(cmd.Scroll)})
	}
	return acts, nil
}

type ShowConfigCmd struct{}

func (cmd *ShowConfigCmd) Run(cfg *config.Config) error {
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}

// initLogging reads the log level from the LAZE_LOG environment variable.
func initLogging() {
	level := slog.LevelInfo
	switch os.Getenv("LAZE_LOG") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func main() {
	initLogging()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.UsageOnError(),
		kong.Vars{"version": laze.Version()},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	kongcompletion.Register(parser)

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.Printf("%s", err)
		parser.Exit(1)
		return
	}

	var cfg *config.Config
	if cli.ConfigFile != "" {
		cfg, err = config.LoadFrom(cli.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	ctx.FatalIfErrorf(err)

	ctx.FatalIfErrorf(ctx.Run(cfg))
}
