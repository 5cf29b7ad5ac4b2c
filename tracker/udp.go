package tracker

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"furrent/registry"
)

const (
	protocolID       = 0x41727101980
	actionConnect    = 0
	actionAnnounceOp = 1
	connectRespLen   = 16
	udpTimeout       = 5 * time.Second
)

type connectRequest struct {
	transactionID [4]byte
}

func newConnectRequest() connectRequest {
	var tid [4]byte
	rand.Read(tid[:])
	return connectRequest{transactionID: tid}
}

func (r connectRequest) serialize() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], protocolID)
	binary.BigEndian.PutUint32(buf[8:12], actionConnect)
	copy(buf[12:16], r.transactionID[:])
	return buf
}

type connectResponse struct {
	action        uint32
	transactionID [4]byte
	connectionID  uint64
}

func readConnectResponse(buf []byte) (connectResponse, error) {
	if len(buf) < connectRespLen {
		return connectResponse{}, fmt.Errorf("tracker: short connect response (%d bytes)", len(buf))
	}
	var r connectResponse
	r.action = binary.BigEndian.Uint32(buf[0:4])
	copy(r.transactionID[:], buf[4:8])
	r.connectionID = binary.BigEndian.Uint64(buf[8:16])
	return r, nil
}

type announceRequest struct {
	connectionID  uint64
	transactionID [4]byte
	infoHash      [20]byte
	peerID        [20]byte
	left          uint64
	key           [4]byte
}

func newAnnounceRequest(connectionID uint64, infoHash, peerID [20]byte, left int64) announceRequest {
	var tid, key [4]byte
	rand.Read(tid[:])
	rand.Read(key[:])
	return announceRequest{
		connectionID:  connectionID,
		transactionID: tid,
		infoHash:      infoHash,
		peerID:        peerID,
		left:          uint64(left),
		key:           key,
	}
}

func (r announceRequest) serialize() []byte {
	buf := make([]byte, 98)
	binary.BigEndian.PutUint64(buf[0:8], r.connectionID)
	binary.BigEndian.PutUint32(buf[8:12], actionAnnounceOp)
	copy(buf[12:16], r.transactionID[:])
	copy(buf[16:36], r.infoHash[:])
	copy(buf[36:56], r.peerID[:])
	binary.BigEndian.PutUint64(buf[56:64], 0) // downloaded
	binary.BigEndian.PutUint64(buf[64:72], r.left)
	binary.BigEndian.PutUint64(buf[72:80], 0) // uploaded
	binary.BigEndian.PutUint32(buf[80:84], 0) // event: none
	binary.BigEndian.PutUint32(buf[84:88], 0) // ip: default
	copy(buf[88:92], r.key[:])
	binary.BigEndian.PutUint32(buf[92:96], ^uint32(0)) // num_want: -1
	binary.BigEndian.PutUint16(buf[96:98], 0)          // port
	return buf
}

type announceResponse struct {
	action        uint32
	transactionID [4]byte
	interval      uint32
	peers         []byte
}

func readAnnounceResponse(buf []byte) (announceResponse, error) {
	if len(buf) < 20 {
		return announceResponse{}, fmt.Errorf("tracker: short announce response (%d bytes)", len(buf))
	}
	var r announceResponse
	r.action = binary.BigEndian.Uint32(buf[0:4])
	copy(r.transactionID[:], buf[4:8])
	r.interval = binary.BigEndian.Uint32(buf[8:12])
	// buf[12:16] leechers, buf[16:20] seeders: not decoded; peers start at byte 20
	r.peers = buf[20:]
	return r, nil
}

// udpAnnounce speaks BEP 15's connect/announce datagram exchange against a
// single "host:port" UDP tracker.
func udpAnnounce(hostport string, infoHash, peerID [20]byte, left int64) (registry.AnnounceResult, error) {
	raddr, err := net.ResolveUDPAddr("udp", hostport)
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(udpTimeout))

	connReq := newConnectRequest()
	if _, err := conn.Write(connReq.serialize()); err != nil {
		return registry.AnnounceResult{}, err
	}
	connBuf := make([]byte, connectRespLen)
	if _, err := conn.Read(connBuf); err != nil {
		return registry.AnnounceResult{}, err
	}
	connRes, err := readConnectResponse(connBuf)
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	if !bytes.Equal(connReq.transactionID[:], connRes.transactionID[:]) {
		return registry.AnnounceResult{}, fmt.Errorf("tracker: transaction ID mismatch on connect")
	}
	if connRes.action != actionConnect {
		return registry.AnnounceResult{}, fmt.Errorf("tracker: unexpected connect action %d", connRes.action)
	}

	annReq := newAnnounceRequest(connRes.connectionID, infoHash, peerID, left)
	if _, err := conn.Write(annReq.serialize()); err != nil {
		return registry.AnnounceResult{}, err
	}
	annBuf := make([]byte, 2048)
	n, err := conn.Read(annBuf)
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	annRes, err := readAnnounceResponse(annBuf[:n])
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	if !bytes.Equal(annReq.transactionID[:], annRes.transactionID[:]) {
		return registry.AnnounceResult{}, fmt.Errorf("tracker: transaction ID mismatch on announce")
	}
	if annRes.action != actionAnnounceOp {
		return registry.AnnounceResult{}, fmt.Errorf("tracker: unexpected announce action %d", annRes.action)
	}

	peers, err := unmarshalPeers(annRes.peers)
	if err != nil {
		return registry.AnnounceResult{}, err
	}
	return registry.AnnounceResult{
		Interval: time.Duration(annRes.interval) * time.Second,
		Peers:    peers,
	}, nil
}
