// Package session aggregates one upstream server link, its world
// mirror, its walk state, and the ordered list of attached clients
// replaying and multiplexing that session to real game clients.
package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sumpurns/uoproxy/internal/console"
	"github.com/sumpurns/uoproxy/internal/protocol"
	"github.com/sumpurns/uoproxy/internal/walk"
	"github.com/sumpurns/uoproxy/internal/world"
)

// Logger is the minimal logging contract this package needs.
type Logger interface {
	Logf(verbosity int, format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Logf(int, string, ...any) {}

// ClientSender is the external collaborator that turns a decoded
// packet into wire bytes for one attached client, applying that
// client's 6↔7 dialect translation. Framing and encoding tables live
// entirely on the other side of this interface.
type ClientSender interface {
	SendPacket(p any) error
	Version() protocol.Version
}

// AttachedClient is one real game client bound to a Connection. A
// zombified client stays in the connection's list (so broadcast
// iteration never has to special-case a disappearing entry mid
// fan-out) but is skipped by every send until it is formally detached.
type AttachedClient struct {
	ID     uuid.UUID
	Sender ClientSender
	zombie bool
}

// NewAttachedClient wraps sender as a freshly attached, routable
// client.
func NewAttachedClient(sender ClientSender) *AttachedClient {
	return &AttachedClient{ID: uuid.New(), Sender: sender}
}

// Zombie reports whether this client has been marked non-routable.
func (c *AttachedClient) Zombie() bool { return c.zombie }

// Identity describes the login credentials and character/shard
// selection a Connection authenticates with, the server side of which
// is relayed, not reimplemented, per the project's scope.
type Identity struct {
	Username       string
	Password       string
	ServerIndex    int
	CharacterIndex int
}

// Connection aggregates the upstream link's observed state (world
// mirror, walk state) and the ordered set of attached clients it is
// replaying that state to. All mutation happens on the single
// goroutine that owns the Connection (see internal/reactor); nothing
// here takes a lock.
type Connection struct {
	ID uuid.UUID

	log Logger

	Background    bool
	Autoreconnect bool
	InGame        bool

	Identity      Identity
	ClientVersion protocol.ClientVersion

	// Upstream is the current server link's ServerSender, nil whenever
	// the connection isn't in-game. DispatchClientPacket forwards
	// through it; it is set and cleared only by the reactor job that
	// owns the dial/reconnect lifecycle.
	Upstream ServerSender

	World *world.Mirror
	Walk  *walk.State

	clients []*AttachedClient
}

// New returns a freshly created, not-yet-in-game Connection.
func New(background, autoreconnect bool, log Logger) *Connection {
	if log == nil {
		log = nopLogger{}
	}
	w := world.New(log)
	return &Connection{
		ID:            uuid.New(),
		log:           log,
		Background:    background,
		Autoreconnect: autoreconnect,
		World:         w,
		Walk:          walk.New(w, log),
	}
}

// Clients returns the attached clients in list order. Callers must
// not mutate the returned slice.
func (c *Connection) Clients() []*AttachedClient { return c.clients }

// Attach appends client to the connection's list. If the connection
// is already in-game, the client is immediately replayed the current
// world state (4.G); a replay failure zombifies the client rather than
// the connection.
func (c *Connection) Attach(client *AttachedClient) {
	c.clients = append(c.clients, client)
	c.log.Logf(2, "connection %s: client %s attached", c.ID, client.ID)

	if c.InGame {
		if err := c.Replay(client); err != nil {
			c.log.Logf(1, "connection %s: replay to %s failed: %v", c.ID, client.ID, err)
			c.Zombify(client)
		}
	}
}

// Detach removes client from the list and clears it from the walk
// state if it was the walking client. It reports whether the
// connection has no reason left to exist: no attached clients, not
// held open in the background, and not waiting to autoreconnect.
func (c *Connection) Detach(client *AttachedClient) (shouldTeardown bool) {
	for i, cl := range c.clients {
		if cl == client {
			c.clients = append(c.clients[:i], c.clients[i+1:]...)
			break
		}
	}
	c.Walk.ServerRemoved(client)

	c.log.Logf(2, "connection %s: client %s detached", c.ID, client.ID)

	return len(c.clients) == 0 && !c.Autoreconnect && !c.Background
}

// Zombify marks client non-routable without removing it from the
// list, and warns the remaining attached clients with a synthetic
// system-speak notice. Called when a replay or a broadcast send to
// client fails.
func (c *Connection) Zombify(client *AttachedClient) {
	if client.zombie {
		return
	}
	client.zombie = true
	c.Broadcast(console.ClientZombified())
}

// String implements fmt.Stringer for log lines.
func (c *Connection) String() string {
	return fmt.Sprintf("Connection{%s}", c.ID)
}
