// Command nlprobe enumerates network interfaces over NETLINK_ROUTE and prints
// their names, one per line.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/nlprobe/internal/client"
	"github.com/danmuck/nlprobe/internal/config"
	"github.com/danmuck/nlprobe/internal/logging"
	"github.com/danmuck/nlprobe/internal/observability"
	"github.com/danmuck/nlprobe/internal/protocol/link"
	"github.com/danmuck/nlprobe/internal/transport"
)

// channel is the socket surface the probe needs beyond transport.Channel.
type channel interface {
	transport.Channel
	LocalPID() uint32
}

type opener func(cfg config.Run) (channel, error)

func openSocket(cfg config.Run) (channel, error) {
	s, err := transport.Open(transport.ProtoRoute)
	if err != nil {
		return nil, err
	}
	if cfg.ReceiveBuffer > 0 {
		if err := s.SetReceiveBuffer(cfg.ReceiveBuffer); err != nil {
			log.Warn().Err(err).Int("bytes", cfg.ReceiveBuffer).Msg("keeping default receive buffer")
		}
	}
	if cfg.ReadTimeout > 0 {
		if err := s.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func main() {
	logging.ConfigureRuntime()
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, openSocket); err != nil {
		fmt.Fprintf(os.Stderr, "nlprobe: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, open opener) error {
	fs := flag.NewFlagSet("nlprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "optional TOML config path")
	verbose := fs.Bool("v", false, "print index, name, mtu, hwaddr and operstate")
	metrics := fs.Bool("metrics", false, "write prometheus metrics to stderr after the run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.DefaultRun()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	logger := log.Logger
	if cfg.LogLevelSet {
		logger = logger.Level(cfg.LogLevel)
	}
	logger = logger.With().Str("app", "nlprobe").Logger()

	ch, err := open(cfg)
	if err != nil {
		return err
	}
	defer ch.Close()

	c, err := client.New(ch, cfg.Client, client.WithLogger(logger), client.WithPID(ch.LocalPID()))
	if err != nil {
		return err
	}
	links, err := c.Links(ctx)
	if *metrics {
		if merr := observability.WriteText(stderr); merr != nil {
			logger.Warn().Err(merr).Msg("metrics dump failed")
		}
	}
	if err != nil {
		return err
	}
	logger.Debug().Int("links", len(links)).Msg("enumerated interfaces")

	if !*verbose {
		for _, l := range links {
			fmt.Fprintln(stdout, l.Name)
		}
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tMTU\tHWADDR\tSTATE\tFLAGS")
	for _, l := range links {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", l.Info.Index, l.Name, l.MTU, l.HardwareAddr, l.OperState, linkFlags(l))
	}
	return tw.Flush()
}

func linkFlags(l link.Link) string {
	var flags []string
	if l.Up() {
		flags = append(flags, "UP")
	}
	if l.Loopback() {
		flags = append(flags, "LOOPBACK")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
