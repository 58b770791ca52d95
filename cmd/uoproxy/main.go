// uoproxy is a transparent Ultima Online client/server protocol proxy:
// it mirrors the server-observed world state for a single upstream
// session and multiplexes it to any number of attached real game
// clients.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sumpurns/uoproxy/internal/audit"
	"github.com/sumpurns/uoproxy/internal/config"
	"github.com/sumpurns/uoproxy/internal/console"
	"github.com/sumpurns/uoproxy/internal/logging"
	"github.com/sumpurns/uoproxy/internal/protocol"
	"github.com/sumpurns/uoproxy/internal/reactor"
	"github.com/sumpurns/uoproxy/internal/session"
)

// oversizeThreshold flags a single read as worth a verbosity-1 warning.
// It is well above any legitimate UO packet, which tops out around a
// few hundred bytes outside of bulk packets like container_content.
const oversizeThreshold = 8192

// connLink is the external collaborator boundary that reactor.Pump's
// PacketSource side and session.ClientSender/ServerSender's write
// side both resolve to: one raw TCP link. No dialect codec is plugged
// in here yet (see internal/protocol's Translator contract), so
// RecvPacket hands back the raw bytes of each read as an undecoded
// payload and SendPacket writes raw bytes straight through; any
// decoded packet value reaching SendPacket before an encoder exists
// has nothing to be turned back into wire bytes and is dropped. This
// keeps both directions pass-through by default, matching the
// prefer-progress-over-correctness handling applied elsewhere to
// anything the core doesn't specifically decode.
type connLink struct {
	conn   net.Conn
	vers   protocol.Version
	label  string
	logger *logging.Logger
}

func newConnLink(conn net.Conn, vers protocol.Version, label string, logger *logging.Logger) *connLink {
	return &connLink{conn: conn, vers: vers, label: label, logger: logger}
}

func (l *connLink) RecvPacket() (any, error) {
	buf := make([]byte, 65536)
	n, err := l.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	if n > oversizeThreshold {
		l.logger.Logf(1, "%s: oversize read of %s", l.label, logging.PacketSize(n))
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

func (l *connLink) SendPacket(p any) error {
	raw, ok := p.([]byte)
	if !ok {
		return nil
	}
	_, err := l.conn.Write(raw)
	return err
}

func (l *connLink) Version() protocol.Version { return l.vers }

func (l *connLink) Close() error { return l.conn.Close() }

const configPath = "config/uoproxy.yml"

// reconnectInitialDelay and reconnectMaxDelay bound the doubling
// backoff a Connection uses between upstream reconnect attempts.
const (
	reconnectInitialDelay = 5 * time.Second
	reconnectMaxDelay     = 30 * time.Second
)

func main() {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.LogFile != "" {
		w, err := logging.NewWriter(cfg.LogFile)
		if err != nil {
			log.Fatal(err)
		}
		log.SetOutput(w)
	}
	logger := logging.New(cfg.Verbosity)

	var auditDB *audit.DB
	if cfg.AuditDB != "" {
		auditDB, err = audit.Open(cfg.AuditDB)
		if err != nil {
			log.Fatal(err)
		}
		defer auditDB.Close()
	}

	ln, err := net.Listen("tcp", cfg.BindAddress)
	if err != nil {
		log.Fatal(err)
	}
	defer ln.Close()
	log.Print("listening on " + cfg.BindAddress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Print("caught SIGINT or SIGTERM, shutting down")
		cancel()
		ln.Close()
	}()

	var g errgroup.Group
	g.Go(func() error {
		return acceptLoop(ctx, ln, cfg, logger, auditDB)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}

// acceptLoop accepts inbound client connections and binds each one to
// the single upstream Connection, dialing (and reconnecting, with
// doubling backoff) the configured server address as needed.
func acceptLoop(ctx context.Context, ln net.Listener, cfg *config.Config, logger *logging.Logger, auditDB *audit.DB) error {
	conn := session.New(cfg.Background, cfg.Autoreconnect, logger)

	r := reactor.New(conn, logger)
	go r.Run()
	defer r.Stop()

	var inGame atomic.Bool
	go reconnectLoop(ctx, r, conn.ID.String(), &inGame, cfg, logger, auditDB)

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Print(err)
			continue
		}
		log.Print(c.RemoteAddr(), " connected")

		go handleClient(r, c, cfg, logger, auditDB)
	}
}

// reconnectLoop dials the upstream server address whenever the
// connection isn't in-game, backing off by doubling from
// reconnectInitialDelay up to reconnectMaxDelay between attempts. It
// stops once ctx is canceled. inGame mirrors the reactor-owned
// Connection.InGame field so this goroutine never reads that field
// directly off the reactor goroutine; connID is captured once at
// Connection construction, since that field is never mutated
// afterward.
func reconnectLoop(ctx context.Context, r *reactor.Reactor, connID string, inGame *atomic.Bool, cfg *config.Config, logger *logging.Logger, auditDB *audit.DB) {
	delay := reconnectInitialDelay
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if inGame.Load() {
			delay = reconnectInitialDelay
			attempt = 0
			time.Sleep(time.Second)
			continue
		}

		attempt++
		d, err := net.DialTimeout("tcp", cfg.ServerAddress, 8*time.Second)
		if err != nil {
			logger.Logf(1, "reconnect attempt %d to %s failed: %v", attempt, cfg.ServerAddress, err)

			r.Enqueue(func(c *session.Connection) {
				c.Broadcast(console.Reconnecting(delay, attempt+1))
			})

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if delay < reconnectMaxDelay {
				delay *= 2
				if delay > reconnectMaxDelay {
					delay = reconnectMaxDelay
				}
			}
			continue
		}

		logger.Logf(2, "connected to upstream %s", cfg.ServerAddress)
		if auditDB != nil {
			auditDB.Record(time.Now().Unix(), connID, "upstream_connect", cfg.ServerAddress)
		}

		delay = reconnectInitialDelay
		attempt = 0

		link := newConnLink(d, protocol.V7, connID, logger)
		r.Enqueue(func(c *session.Connection) {
			c.InGame = true
			c.Upstream = link
			c.Broadcast(console.Reconnected())
		})
		inGame.Store(true)

		<-serveUpstream(ctx, r, link, logger)

		inGame.Store(false)
		r.Enqueue(func(c *session.Connection) {
			c.InGame = false
			c.Upstream = nil
			c.World.Clear()
		})
	}
}

// serveUpstream pumps decoded packets from the upstream link into the
// reactor, dispatching each one against the world mirror and walk
// state through DispatchServerPacket, until the link closes or ctx is
// canceled; the returned channel is closed when that happens.
func serveUpstream(ctx context.Context, r *reactor.Reactor, link *connLink, logger *logging.Logger) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer link.Close()

		pumpDone := make(chan error, 1)
		go func() {
			pumpDone <- r.Pump(link, func(c *session.Connection, pkt any) {
				if err := c.DispatchServerPacket(pkt); err != nil {
					logger.Logf(1, "%s: dispatch from upstream failed: %v", link.label, err)
				}
			})
		}()

		select {
		case <-ctx.Done():
		case err := <-pumpDone:
			logger.Logf(2, "%s: upstream link closed: %v", link.label, err)
		}
	}()

	return done
}

// handleClient attaches one accepted client connection to the shared
// Connection, pumps its packets through DispatchClientPacket against
// the current upstream link, and detaches it once the link closes.
func handleClient(r *reactor.Reactor, c net.Conn, cfg *config.Config, logger *logging.Logger, auditDB *audit.DB) {
	defer c.Close()

	link := newConnLink(c, protocol.V7, "client "+c.RemoteAddr().String(), logger)
	client := session.NewAttachedClient(link)

	r.Enqueue(func(conn *session.Connection) {
		conn.Attach(client)
		if auditDB != nil {
			auditDB.Record(time.Now().Unix(), conn.ID.String(), "attach", client.ID.String())
		}
	})

	err := r.Pump(link, func(conn *session.Connection, pkt any) {
		if err := conn.DispatchClientPacket(conn.Upstream, client, pkt); err != nil {
			logger.Logf(1, "%s: dispatch failed: %v", link.label, err)
		}
	})
	logger.Logf(2, "%s: link closed: %v", link.label, err)

	r.Enqueue(func(conn *session.Connection) {
		conn.Detach(client)
		if auditDB != nil {
			auditDB.Record(time.Now().Unix(), conn.ID.String(), "detach", client.ID.String())
		}
	})
}
