package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/amarbel-llc/scenemcp/internal/client"
	"github.com/amarbel-llc/scenemcp/internal/config"
	"github.com/amarbel-llc/scenemcp/internal/executor"
	"github.com/amarbel-llc/scenemcp/internal/mcp"
	"github.com/amarbel-llc/scenemcp/internal/runner"
	"github.com/amarbel-llc/scenemcp/pkg/namematch"
)

var (
	flagHost string
	flagPort int
)

var rootCmd = &cobra.Command{
	Use:   "scenemcp",
	Short: "scenemcp: MCP bridge for a script-driven 3D scene host",
	Long:  `scenemcp bridges an MCP client to a 3D scene host's command executor over a local socket.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long:  `Start the MCP server on stdin/stdout, bridging tool calls to the host executor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		bridge := newBridge(cfg)
		allowed, err := namematch.New(cfg.Tools.Allowed)
		if err != nil {
			return fmt.Errorf("compiling tool allow-list: %w", err)
		}

		if err := bridge.Ping(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("host executor not reachable; tool calls will fail until it is")
		}

		srv := mcp.NewServer(
			mcp.NewStdioTransport(os.Stdin, os.Stdout),
			mcp.NewToolRegistry(bridge, allowed),
			mcp.NewResourceRegistry(bridge),
		)
		return srv.Run(cmd.Context())
	},
}

var executorCmd = &cobra.Command{
	Use:   "executor",
	Short: "Run a standalone command executor",
	Long: `Run the command executor outside the scene host, executing scripts with the
configured interpreter. Useful for driving the bridge without the GUI host.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		r, err := runner.NewSubprocess(cfg.Executor.Interpreter)
		if err != nil {
			return err
		}

		srv := executor.New(cfg.Addr(), r, executor.WithMaxLine(cfg.Executor.MaxLine))
		if err := srv.Start(); err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop

		srv.Stop()
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test reachability of the host executor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := newBridge(cfg).Ping(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("pong from %s\n", cfg.Addr())
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec [file]",
	Short: "Execute a script in the host",
	Long:  `Send a script (from a file, or stdin when no file is given) to the host executor and print its captured output.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		script, err := readScript(args)
		if err != nil {
			return err
		}

		stdout, err := newBridge(cfg).ExecuteScript(cmd.Context(), script)
		if err != nil {
			var remoteErr *client.RemoteError
			if errors.As(err, &remoteErr) && remoteErr.Traceback != "" {
				fmt.Fprintln(os.Stderr, remoteErr.Traceback)
			}
			return err
		}

		fmt.Print(stdout)
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}

	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func newBridge(cfg *config.Config) *client.Client {
	return client.New(cfg.Addr(),
		client.WithConnectTimeout(cfg.Client.ConnectTimeout.Std()),
		client.WithRequestTimeout(cfg.Client.RequestTimeout.Std()),
	)
}

// Logging goes to stderr: stdout is the MCP protocol channel under serve.
func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func readScript(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading script: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading script from stdin: %w", err)
	}
	return string(data), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "host executor address (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "host executor port (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(executorCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(execCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
