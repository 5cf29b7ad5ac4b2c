// Package tracker announces a torrent to its HTTP or UDP tracker(s) and
// decodes the compact peer lists they return, falling back through
// announce-list tiers when a tracker is unreachable.
package tracker

import (
	"encoding/binary"
	"fmt"
	"net"

	"furrent/registry"
)

const peerSize = 6

// unmarshalPeers decodes BEP 23 compact peer strings: 4 bytes of IPv4
// followed by 2 bytes of big-endian port, repeated.
func unmarshalPeers(compact []byte) ([]registry.Peer, error) {
	if len(compact)%peerSize != 0 {
		return nil, fmt.Errorf("tracker: malformed compact peer list (%d bytes)", len(compact))
	}
	n := len(compact) / peerSize
	peers := make([]registry.Peer, n)
	for i := 0; i < n; i++ {
		off := i * peerSize
		ip := make(net.IP, 4)
		copy(ip, compact[off:off+4])
		peers[i] = registry.Peer{
			IP:   ip,
			Port: binary.BigEndian.Uint16(compact[off+4 : off+6]),
		}
	}
	return peers, nil
}
