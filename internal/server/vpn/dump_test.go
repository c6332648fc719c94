package vpn

import (
	"fmt"
	"testing"
	"time"
)

func TestParseDump(t *testing.T) {
	now := time.Now()
	recent := now.Add(-30 * time.Second).Unix()

	out := fmt.Sprintf(
		"serverPrivKey\tserverPubKey\t51820\toff\n"+
			"alicePubKey\t(none)\t203.0.113.9:51820\t10.13.13.5/32\t%d\t1024\t2048\t25\n"+
			"bobPubKey\t(none)\t(none)\t10.13.13.6/32\t0\t0\t0\toff\n",
		recent)

	peers := ParseDump(out)
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}

	alice := peers[0]
	if alice.PublicKey != "alicePubKey" {
		t.Errorf("public key = %q", alice.PublicKey)
	}
	if alice.Endpoint != "203.0.113.9:51820" {
		t.Errorf("endpoint = %q", alice.Endpoint)
	}
	if alice.AllowedIPs != "10.13.13.5/32" {
		t.Errorf("allowed ips = %q", alice.AllowedIPs)
	}
	if alice.LatestHandshake.Unix() != recent {
		t.Errorf("handshake = %v, want epoch %d", alice.LatestHandshake, recent)
	}
	if alice.TransferRx != 1024 || alice.TransferTx != 2048 {
		t.Errorf("transfer = %d/%d, want 1024/2048", alice.TransferRx, alice.TransferTx)
	}
	if !alice.Connected(now) {
		t.Error("expected alice to be connected")
	}

	bob := peers[1]
	if bob.Endpoint != "" {
		t.Errorf("expected empty endpoint for (none), got %q", bob.Endpoint)
	}
	if !bob.LatestHandshake.IsZero() {
		t.Errorf("expected zero handshake time, got %v", bob.LatestHandshake)
	}
	if bob.Connected(now) {
		t.Error("peer without handshake must not be connected")
	}
}

func TestParseDump_Empty(t *testing.T) {
	if peers := ParseDump(""); len(peers) != 0 {
		t.Fatalf("expected no peers, got %d", len(peers))
	}
	if peers := ParseDump("serverPriv\tserverPub\t51820\toff\n"); len(peers) != 0 {
		t.Fatalf("interface line must be skipped, got %d peers", len(peers))
	}
}

func TestPeerStat_ConnectedWindow(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		handshake time.Time
		want      bool
	}{
		{"just now", now.Add(-time.Second), true},
		{"inside window", now.Add(-179 * time.Second), true},
		{"on boundary", now.Add(-180 * time.Second), false},
		{"stale", now.Add(-time.Hour), false},
		{"never", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PeerStat{LatestHandshake: tt.handshake}
			if got := p.Connected(now); got != tt.want {
				t.Errorf("Connected = %v, want %v", got, tt.want)
			}
		})
	}
}
