// Package console synthesizes the server-origin "speak" packets the
// proxy itself originates — reconnect notices, zombie-client warnings —
// so an attached client sees them as ordinary system chat rather than
// needing its own side channel. Named after, but unrelated to, the
// teacher's interactive ncurses admin console: there is no interactive
// operator console here, only synthetic in-band speech.
package console

import (
	"fmt"
	"time"

	"github.com/sumpurns/uoproxy/internal/logging"
	"github.com/sumpurns/uoproxy/internal/protocol"
)

// SystemSerial is the serial console-speak packets are attributed to.
// It is outside both the mobile and item serial ranges so it can never
// collide with a real entity.
const SystemSerial = 0xFFFF_FFFF

// SystemName is the speaker name attached to console-speak packets.
const SystemName = "uoproxy"

func speak(text string) *protocol.Speak {
	return &protocol.Speak{
		Serial: SystemSerial,
		Name:   SystemName,
		Text:   text,
	}
}

// Reconnecting announces an upcoming reconnect attempt after backoff.
func Reconnecting(backoff time.Duration, attempt int) *protocol.Speak {
	return speak(fmt.Sprintf("reconnecting in %s (attempt %d)", logging.ReconnectBackoff(backoff), attempt))
}

// Reconnected announces a successful reconnect.
func Reconnected() *protocol.Speak {
	return speak("reconnected")
}

// ClientZombified warns the remaining attached clients that one client
// was dropped from routing after a send failure.
func ClientZombified() *protocol.Speak {
	return speak("a client connection was lost and has been disconnected")
}

// SessionUptime announces how long the current upstream session has
// been connected, e.g. in response to an operator status request.
func SessionUptime(d time.Duration) *protocol.Speak {
	return speak(fmt.Sprintf("connected for %s", logging.Uptime(d)))
}
