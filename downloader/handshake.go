package downloader

import (
	"fmt"
	"io"
)

const protocolString = "BitTorrent protocol"
const handshakeLen = 49 + len(protocolString)

type handshake struct {
	infoHash [20]byte
	peerID   [20]byte
}

func (h *handshake) serialize() []byte {
	buf := make([]byte, handshakeLen)
	buf[0] = byte(len(protocolString))
	cur := 1
	cur += copy(buf[cur:], protocolString)
	cur += copy(buf[cur:], make([]byte, 8))
	cur += copy(buf[cur:], h.infoHash[:])
	copy(buf[cur:], h.peerID[:])
	return buf
}

func readHandshake(r io.Reader) (*handshake, error) {
	lenBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	pstrLen := int(lenBuf[0])
	if pstrLen != len(protocolString) {
		return nil, fmt.Errorf("downloader: unexpected pstr length %d", pstrLen)
	}

	rest := make([]byte, handshakeLen-1)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}

	var h handshake
	copy(h.infoHash[:], rest[pstrLen+8:pstrLen+8+20])
	copy(h.peerID[:], rest[pstrLen+8+20:])
	return &h, nil
}
