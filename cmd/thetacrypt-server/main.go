// Command thetacrypt-server runs the request front-end (spec §4.7) as a
// long-lived daemon: it loads a keychain file, builds a pkg/frontend.Server,
// runs its demultiplexer on a Transport, and waits until signalled. It opens
// no RPC listener: --listen, --peer and --transport-proxy are only logged.
// The transport layer and its wire
// protocol are explicitly out of scope (spec §1, "The transport layer...
// opaque"), so this binary plugs in pkg/transport.LocalBus — the same
// in-process bus the orchestrator's own tests and pkg/transport's doc
// comment call out as "the demo CLI" — rather than inventing a network
// protocol the spec never names. A real deployment swaps this wiring for a
// gossip/libp2p Transport without touching pkg/frontend or pkg/orchestrator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thetacrypt/thetacrypt-go/pkg/frontend"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/keychain"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
)

// localTransport joins a process-local bus as this node's Transport. Since
// the wire-level gossip/libp2p network is out of scope (spec §1), this is
// the one node registered on its own bus, so no protocol message reaches
// another node. The --listen/--peer/--transport-proxy flags do not change
// this wiring.
func localTransport() transport.Transport {
	bus := transport.NewLocalBus()
	return bus.Join(256)
}

// Exit codes per spec §6's CLI surface.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitKeychainError = 2
	exitRuntimeFatal  = 3
)

var (
	configPath    string
	keychainPath  string
	listenAddr    string
	peers         []string
	transportAddr string
	frostPoolCap  int

	rootCmd = &cobra.Command{
		Use:   "thetacrypt-server",
		Short: "Run a thetacrypt protocol orchestrator node",
		Long: `thetacrypt-server loads a keychain file, starts a request front-end and
its demultiplexer on a process-local Transport, and runs until interrupted.
It opens no RPC listener; --listen, --peer and --transport-proxy are only
logged.`,
		RunE: runServer,
	}
)

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a config file (reserved; unused by the core, spec §1)")
	rootCmd.Flags().StringVar(&keychainPath, "keychain", "", "path to a keychain file written by thetacrypt-keygen (required)")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:7003", "address this node's RPC surface listens on (external, spec §6)")
	rootCmd.Flags().StringSliceVar(&peers, "peer", nil, "peer address, repeatable (external, spec §6)")
	rootCmd.Flags().StringVar(&transportAddr, "transport-proxy", "", "optional address of a transport-proxy process (external, spec §6)")
	rootCmd.Flags().IntVar(&frostPoolCap, "frost-pool-cap", 16, "FROST precomputation pool capacity")
	rootCmd.MarkFlagRequired("keychain")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "thetacrypt-server: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// cliError tags an error with the exit code it should cause main to return,
// since cobra's RunE only gives us the error itself.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	if ce, ok := err.(*cliError); ok {
		return ce.code
	}
	return exitRuntimeFatal
}

func runServer(cmd *cobra.Command, args []string) error {
	if keychainPath == "" {
		return &cliError{exitConfigError, fmt.Errorf("--keychain is required")}
	}

	data, err := os.ReadFile(keychainPath)
	if err != nil {
		return &cliError{exitKeychainError, fmt.Errorf("reading keychain file: %w", err)}
	}
	kc, err := keychain.FromBytes(data, frostPoolCap)
	if err != nil {
		return &cliError{exitKeychainError, fmt.Errorf("parsing keychain file: %w", err)}
	}

	log, err := zap.NewProduction()
	if err != nil {
		return &cliError{exitRuntimeFatal, fmt.Errorf("building logger: %w", err)}
	}
	defer log.Sync()

	server, demux := frontend.NewServer(kc, log)
	defer server.Close()

	t := localTransport()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go demux.Run(ctx, t)
	defer t.Close()

	log.Info("thetacrypt-server ready",
		zap.String("listen", listenAddr),
		zap.Strings("peers", peers),
		zap.String("transport_proxy", transportAddr),
		zap.Int("keys_loaded", len(server.GetPublicKeys())),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	return nil
}
