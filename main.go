package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hashicorp/mdns"
	"golang.org/x/sync/errgroup"

	"LiveBoard/internal/config"
	lbnet "LiveBoard/internal/net"
	"LiveBoard/internal/relay"
	"LiveBoard/internal/session"
	"LiveBoard/internal/state"
	"LiveBoard/internal/transport"
	"LiveBoard/internal/ui"
)

const browseTimeout = 3 * time.Second

func usage() {
	fmt.Fprintf(os.Stderr, `usage: liveboard [flags] [relay | draw | view | liveboard://host:port/room]

  relay   run a relay only
  draw    open a board as the author; hosts a relay unless one is configured
  view    open a board read-only; finds a relay on the LAN unless one is configured

A liveboard:// share link given instead of a command opens that room
read-only on the relay it names.

flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "path to a liveboard.yaml")
	headless := flag.Bool("headless", false, "run without a window")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	arg := flag.Arg(0)
	switch {
	case arg == "relay":
		err = runRelay(ctx, cfg)
	case lbnet.IsLink(arg):
		var link lbnet.Link
		link, err = lbnet.ParseLink(arg)
		if err == nil {
			cfg.Room = link.Room
			cfg.Mode = config.ModeView
			cfg.Transport.Kind = config.TransportWebSocket
			cfg.Transport.Relay = link.Addr()
			err = runBoard(ctx, cfg, *headless)
		}
	case arg == config.ModeDraw, arg == config.ModeView:
		cfg.Mode = arg
		err = runBoard(ctx, cfg, *headless)
	case arg == "":
		err = runBoard(ctx, cfg, *headless)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("liveboard stopped", "err", err)
		os.Exit(1)
	}
}

// hostedRelay is a relay bound and ready to serve.
type hostedRelay struct {
	server    *relay.Server
	listener  net.Listener
	port      int
	shareLink string
}

func listenRelay(cfg *config.Config) (*hostedRelay, error) {
	l, err := net.Listen("tcp", cfg.Relay.Addr)
	if err != nil {
		return nil, fmt.Errorf("relay listen %s: %w", cfg.Relay.Addr, err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	return &hostedRelay{
		server:    relay.New(relay.Options{CORSOrigin: cfg.Relay.CORSOrigin}),
		listener:  l,
		port:      port,
		shareLink: lbnet.ShareLink(lbnet.OutgoingIP(), port, cfg.Room),
	}, nil
}

// serve runs the relay and, if enabled, its mDNS announcement on g.
func (h *hostedRelay) serve(ctx context.Context, g *errgroup.Group, cfg *config.Config) {
	g.Go(func() error { return h.server.Serve(ctx, h.listener) })
	if !cfg.Relay.Advertise {
		return
	}
	g.Go(func() error {
		server, err := lbnet.Advertise(h.port, cfg.Room)
		if err != nil {
			// discovery is a convenience; share links still work
			slog.Warn("mDNS advertise failed", "err", err)
			return nil
		}
		<-ctx.Done()
		return shutdownMDNS(server)
	})
}

func shutdownMDNS(s *mdns.Server) error {
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("mdns shutdown: %w", err)
	}
	return nil
}

func runRelay(ctx context.Context, cfg *config.Config) error {
	h, err := listenRelay(cfg)
	if err != nil {
		return err
	}
	slog.Info("relay ready", "share_link", h.shareLink)

	g, gctx := errgroup.WithContext(ctx)
	h.serve(gctx, g, cfg)
	return g.Wait()
}

func sessionOptions(cfg *config.Config) session.Options {
	opts := session.DefaultOptions()
	opts.Role = session.Viewer
	if cfg.Mode == config.ModeDraw {
		opts.Role = session.Author
	}
	opts.Room = cfg.Room
	opts.FlushInterval = cfg.Sync.FlushInterval
	opts.MaxPointsPerMessage = cfg.Sync.MaxPointsPerMessage
	opts.MinDistance = cfg.Sync.MinDistance
	opts.MaxStep = cfg.Sync.MaxStep
	opts.CheckpointInterval = cfg.Sync.CheckpointInterval
	opts.Warmup = cfg.Sync.Warmup
	opts.MaxStrokes = cfg.Sync.MaxStrokes
	return opts
}

func dispatcherOptions(cfg *config.Config) transport.DispatcherOptions {
	return transport.DispatcherOptions{
		QueueSize:   cfg.Transport.QueueSize,
		MaxRetry:    cfg.Transport.MaxRetry,
		BaseBackoff: cfg.Transport.BaseBackoff,
		MaxBackoff:  cfg.Transport.MaxBackoff,
	}
}

// openTransport returns the configured transport and a func releasing it.
func openTransport(ctx context.Context, cfg *config.Config, relayAddr string) (transport.Transport, func(), error) {
	switch cfg.Transport.Kind {
	case config.TransportRedis:
		r, err := transport.DialRedis(ctx, cfg.Transport.RedisURL, cfg.Room)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	case config.TransportKafka:
		k, err := transport.DialKafka(cfg.Transport.KafkaBrokers, cfg.Transport.KafkaTopicPrefix, cfg.Room)
		if err != nil {
			return nil, nil, err
		}
		return k, func() { _ = k.Close() }, nil
	default:
		return transport.NewWebSocket(transport.RelayURL(relayAddr, cfg.Room)), func() {}, nil
	}
}

// findRelay resolves the relay address for the websocket transport. Authors
// with nothing configured host one themselves.
func findRelay(ctx context.Context, cfg *config.Config) (addr string, hosted *hostedRelay, err error) {
	if cfg.Transport.Kind != config.TransportWebSocket || cfg.Transport.Relay != "" {
		return cfg.Transport.Relay, nil, nil
	}
	if cfg.Mode == config.ModeDraw {
		h, err := listenRelay(cfg)
		if err != nil {
			return "", nil, err
		}
		return net.JoinHostPort("127.0.0.1", strconv.Itoa(h.port)), h, nil
	}

	slog.Info("looking for a relay on the LAN", "room", cfg.Room)
	found, err := lbnet.Browse(ctx, cfg.Room, browseTimeout)
	if err != nil {
		return "", nil, fmt.Errorf("find relay for room %q: %w", cfg.Room, err)
	}
	slog.Info("found relay", "addr", found.Addr)
	return found.Addr, nil, nil
}

// statusHandler forwards transport callbacks to the peer and mirrors the
// connection state in the window.
type statusHandler struct {
	*session.Peer
	status func(string)
	room   string
}

func (h statusHandler) Connected() {
	h.status("Connected to room " + h.room)
	h.Peer.Connected()
}

func runBoard(ctx context.Context, cfg *config.Config, headless bool) error {
	relayAddr, hosted, err := findRelay(ctx, cfg)
	if err != nil {
		return err
	}
	tr, release, err := openTransport(ctx, cfg, relayAddr)
	if err != nil {
		return err
	}
	defer release()

	var window *ui.App
	deps := session.Deps{Logger: slog.Default()}
	status := func(text string) { slog.Info(text) }
	if !headless {
		window = ui.NewApp("LiveBoard - " + cfg.Room)
		deps.Surface = window.Board
		deps.Styles = window.Tools
		status = window.Board.SetStatus
	}

	dispatcher := transport.NewDispatcher(tr, dispatcherOptions(cfg))
	deps.Publisher = dispatcher
	peer := session.NewPeer(sessionOptions(cfg), deps)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if hosted != nil {
		hosted.serve(gctx, g, cfg)
		slog.Info("hosting relay", "share_link", hosted.shareLink)
	}
	g.Go(func() error { return peer.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		h := statusHandler{Peer: peer, status: status, room: cfg.Room}
		return transport.Supervise(gctx, tr, h, transport.DefaultReconnect())
	})

	slog.Info("board started", "room", cfg.Room, "mode", cfg.Mode, "transport", cfg.Transport.Kind, "origin", peer.Origin())

	if window == nil {
		g.Go(func() error { return logBoard(gctx, peer) })
		return g.Wait()
	}

	wireWindow(gctx, window, peer, cfg)
	shareLink := ""
	if hosted != nil {
		shareLink = hosted.shareLink
	}
	window.Run(gctx, cfg.Mode == config.ModeDraw, shareLink)
	cancel()
	return g.Wait()
}

func wireWindow(ctx context.Context, w *ui.App, peer *session.Peer, cfg *config.Config) {
	w.Board.OnCaptureStart = func(x, y float64) {
		peer.Post(func(s *session.Session) { s.BeginStroke(x, y) })
	}
	w.Board.OnCaptureMove = func(x, y float64) {
		peer.Post(func(s *session.Session) { s.MoveStroke(x, y) })
	}
	w.Board.OnCaptureEnd = func() {
		peer.Post(func(s *session.Session) { s.EndStroke() })
	}
	w.Tools.OnClear = func() {
		peer.Post(func(s *session.Session) { s.Clear() })
	}
	w.Tools.OnUndo = func() {
		peer.Post(func(s *session.Session) { s.Undo() })
	}
	w.Tools.OnExport = func() {
		w.ShowExport(cfg.Room, func() ([]state.Stroke, error) {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return peer.Strokes(ctx)
		})
	}
}

// logBoard reports the board size now and then when there is no window.
func logBoard(ctx context.Context, peer *session.Peer) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	last := -1
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			strokes, err := peer.Strokes(ctx)
			if err != nil {
				return nil
			}
			if len(strokes) != last {
				slog.Info("board", "strokes", len(strokes))
				last = len(strokes)
			}
		}
	}
}
