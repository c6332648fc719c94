package vpn

import (
	"strconv"
	"strings"
	"time"
)

// handshakeWindow is how recent the last handshake must be for a peer to
// count as connected.
const handshakeWindow = 180 * time.Second

// PeerStat is one peer line from `awg show <iface> dump`. The dump is
// tab-separated: public key, preshared key, endpoint, allowed IPs, latest
// handshake (epoch seconds), rx bytes, tx bytes, persistent keepalive.
type PeerStat struct {
	PublicKey       string
	Endpoint        string // empty when the dump reports (none)
	AllowedIPs      string
	LatestHandshake time.Time // zero when the peer never completed one
	TransferRx      int64
	TransferTx      int64
	Keepalive       string
}

// ParseDump parses the dump output. The first line describes the interface
// itself (fewer columns) and is skipped along with anything else malformed.
func ParseDump(out string) []PeerStat {
	var peers []PeerStat
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		stat := PeerStat{
			PublicKey:  parts[0],
			AllowedIPs: parts[3],
		}
		if parts[2] != "(none)" {
			stat.Endpoint = parts[2]
		}
		if epoch, err := strconv.ParseInt(parts[4], 10, 64); err == nil && epoch > 0 {
			stat.LatestHandshake = time.Unix(epoch, 0)
		}
		stat.TransferRx, _ = strconv.ParseInt(parts[5], 10, 64)
		stat.TransferTx, _ = strconv.ParseInt(parts[6], 10, 64)
		if len(parts) >= 8 {
			stat.Keepalive = parts[7]
		}

		peers = append(peers, stat)
	}
	return peers
}

// Connected reports whether the peer's last handshake falls within the
// liveness window, evaluated against now.
func (p PeerStat) Connected(now time.Time) bool {
	if p.LatestHandshake.IsZero() {
		return false
	}
	return now.Sub(p.LatestHandshake) < handshakeWindow
}
