package console

import (
	"strings"
	"testing"
	"time"
)

func TestReconnectingMentionsAttemptNumber(t *testing.T) {
	p := Reconnecting(10*time.Second, 3)
	if !strings.Contains(p.Text, "attempt 3") {
		t.Fatalf("Text = %q, want it to mention attempt 3", p.Text)
	}
	if p.Serial != SystemSerial {
		t.Fatalf("Serial = %#x, want %#x", p.Serial, SystemSerial)
	}
}

func TestReconnectedIsNonEmpty(t *testing.T) {
	p := Reconnected()
	if p.Text == "" {
		t.Fatal("Reconnected produced an empty message")
	}
}

func TestClientZombifiedMentionsDisconnect(t *testing.T) {
	p := ClientZombified()
	if !strings.Contains(p.Text, "disconnect") {
		t.Fatalf("Text = %q, want it to mention disconnection", p.Text)
	}
}

func TestSessionUptimeRendersDuration(t *testing.T) {
	p := SessionUptime(90 * time.Minute)
	if p.Text == "" {
		t.Fatal("SessionUptime produced an empty message")
	}
}
