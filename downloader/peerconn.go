package downloader

import (
	"bytes"
	"fmt"
	"net"
	"time"

	"furrent/registry"
)

const dialTimeout = 5 * time.Second
const handshakeTimeout = 5 * time.Second

// peerConn is one live TCP connection to a peer, past its handshake and
// initial bitfield exchange.
type peerConn struct {
	conn     net.Conn
	choked   bool
	bitfield bitfield
}

func dialPeer(peer registry.Peer, peerID, infoHash [20]byte) (*peerConn, error) {
	conn, err := net.DialTimeout("tcp", peer.String(), dialTimeout)
	if err != nil {
		return nil, err
	}

	if err := shakeHands(conn, infoHash, peerID); err != nil {
		conn.Close()
		return nil, err
	}

	bf, err := receiveBitfield(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &peerConn{conn: conn, choked: true, bitfield: bf}, nil
}

func shakeHands(conn net.Conn, infoHash, peerID [20]byte) error {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	req := &handshake{infoHash: infoHash, peerID: peerID}
	if _, err := conn.Write(req.serialize()); err != nil {
		return err
	}

	res, err := readHandshake(conn)
	if err != nil {
		return err
	}
	if !bytes.Equal(res.infoHash[:], infoHash[:]) {
		return fmt.Errorf("downloader: info hash mismatch: expected %x, got %x", infoHash, res.infoHash)
	}
	return nil
}

func receiveBitfield(conn net.Conn) (bitfield, error) {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	msg, err := readMessage(conn)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("downloader: expected bitfield, got keep-alive")
	}
	if msg.id != msgBitfield {
		return nil, fmt.Errorf("downloader: expected bitfield, got message id %d", msg.id)
	}
	return bitfield(msg.payload), nil
}

func (pc *peerConn) sendRequest(index, begin, length int) error {
	_, err := pc.conn.Write(newRequestMessage(index, begin, length).serialize())
	return err
}

func (pc *peerConn) send(id messageID) error {
	_, err := pc.conn.Write((&wireMessage{id: id}).serialize())
	return err
}

func (pc *peerConn) read() (*wireMessage, error) {
	return readMessage(pc.conn)
}

func (pc *peerConn) close() error {
	return pc.conn.Close()
}
