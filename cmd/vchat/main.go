package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Operative-001/vchat/internal/config"
	"github.com/Operative-001/vchat/internal/relay"
	"github.com/Operative-001/vchat/internal/transport"
	"github.com/Operative-001/vchat/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vchat",
		Short: "Terminal chat relayed through a hub.",
		Long: `vchat is a terminal chat room.

One process runs as the hub (-t s) and every other process connects to it
as a client (-t c). The hub relays each message to everyone but its sender.

Settings are read from vchat.conf (key=value) and overridden by flags.`,
		Example:      "  vchat -u Username -i 127.0.0.1 -p 25565 -t s",
		SilenceUsage: true,
		RunE:         run,
	}

	f := cmd.Flags()
	f.StringP("ip", "i", "", "Address to bind (hub) or connect to (client)")
	f.StringP("port", "p", "", "Port (default 25565)")
	f.StringP("type", "t", "", "Role: s (hub) or c (client)")
	f.StringP("username", "u", "", "Display name")
	f.StringP("border", "b", "", "Name border; must contain {uname} (default '[{uname}]: ')")
	f.String("transport", "", "Wire transport: tcp or ws")
	f.String("log-file", "", "Log file path (default $TMPDIR/vchat.log)")
	f.StringP("config", "c", config.DefaultFile, "Config file")
	f.Bool("verbose", false, "Debug logging")
	return cmd
}

// flagKeys maps each override flag to its config file key.
var flagKeys = map[string]string{
	"ip":        config.KeyIP,
	"port":      config.KeyPort,
	"type":      config.KeyType,
	"username":  config.KeyUsername,
	"border":    config.KeyBorder,
	"transport": config.KeyTransport,
	"log-file":  config.KeyLogFile,
}

// overrides collects the flags set on the command line as config values.
func overrides(cmd *cobra.Command) map[string]string {
	values := map[string]string{}
	for flag, key := range flagKeys {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		v, _ := cmd.Flags().GetString(flag)
		values[key] = v
	}
	return values
}

// loadConfig resolves defaults, the config file and flag overrides in that
// order. Warnings are non-fatal.
func loadConfig(cmd *cobra.Command) (config.Config, []error, error) {
	cfg := config.Defaults()
	path, _ := cmd.Flags().GetString("config")

	values, warnings, err := config.LoadFile(path)
	if err != nil {
		warnings = append(warnings, err)
	}
	warnings = append(warnings, cfg.Apply(values)...)
	warnings = append(warnings, cfg.Apply(overrides(cmd))...)
	return cfg, warnings, cfg.Validate()
}

func newLogger(cfg config.Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{cfg.LogFile}
	zc.ErrorOutputPaths = []string{cfg.LogFile}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// connector opens the transport cfg asks for.
func connector(cfg config.Config, logger *zap.Logger) relay.Connector {
	opts := transport.Options{Logger: logger}
	addr := cfg.Addr()
	ws := cfg.Transport == config.TransportWebSocket

	if cfg.Role == config.RoleHub {
		return func(ctx context.Context) (relay.Link, error) {
			listen := transport.ListenTCP
			if ws {
				listen = transport.ListenWebSocket
			}
			h, err := listen(addr, opts)
			if err != nil {
				return relay.Link{}, err
			}
			return relay.Link{Transport: h, Addr: h.Addr()}, nil
		}
	}
	return func(ctx context.Context) (relay.Link, error) {
		dial := transport.DialTCP
		if ws {
			dial = transport.DialWebSocket
		}
		h, err := dial(ctx, addr, transport.DefaultConnectTimeout, opts)
		if err != nil {
			return relay.Link{}, err
		}
		return relay.Link{Transport: h, Upstream: h.Remote()}, nil
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, warnings, err := loadConfig(cmd)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger, err := newLogger(cfg, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	for _, w := range warnings {
		logger.Warn("config", zap.Error(w))
	}

	role := relay.RoleClient
	if cfg.Role == config.RoleHub {
		role = relay.RoleHub
	}
	logger.Info("starting",
		zap.Stringer("role", role),
		zap.String("addr", cfg.Addr()),
		zap.String("transport", cfg.Transport),
		zap.String("username", cfg.Username))

	term, err := tui.Open(logger)
	if err != nil {
		return err
	}
	// The terminal must be released before cobra prints any error.
	defer term.Close()

	session, err := relay.New(relay.Config{
		Role:     role,
		Username: cfg.Username,
		Border:   cfg.ResolveBorder(),
		Connect:  connector(cfg, logger),
		Display:  term,
		Keys:     term,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = session.Run(ctx)
	term.Close()
	if err != nil {
		logger.Error("session ended", zap.Error(err))
		return err
	}
	logger.Info("session ended")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
