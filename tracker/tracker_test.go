package tracker

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
)

func TestUnmarshalPeersDecodesCompactFormat(t *testing.T) {
	compact := []byte{
		127, 0, 0, 1, 0x1A, 0xE1, // 127.0.0.1:6881
		10, 0, 0, 2, 0x1A, 0xE2, // 10.0.0.2:6882
	}
	peers, err := unmarshalPeers(compact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	if !peers[0].IP.Equal(net.IPv4(127, 0, 0, 1)) || peers[0].Port != 6881 {
		t.Fatalf("unexpected first peer: %+v", peers[0])
	}
	if !peers[1].IP.Equal(net.IPv4(10, 0, 0, 2)) || peers[1].Port != 6882 {
		t.Fatalf("unexpected second peer: %+v", peers[1])
	}
}

func TestUnmarshalPeersRejectsMisalignedLength(t *testing.T) {
	if _, err := unmarshalPeers([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for length not a multiple of 6")
	}
}

func TestConnectRequestRoundTripsAction(t *testing.T) {
	req := newConnectRequest()
	buf := req.serialize()
	if len(buf) != 16 {
		t.Fatalf("expected 16-byte connect request, got %d", len(buf))
	}
	if got := binary.BigEndian.Uint32(buf[8:12]); got != actionConnect {
		t.Fatalf("expected connect action %d, got %d", actionConnect, got)
	}
	if !bytes.Equal(buf[12:16], req.transactionID[:]) {
		t.Fatalf("expected transaction ID %x, got %x", req.transactionID, buf[12:16])
	}
}

func TestReadConnectResponseRejectsShortBuffer(t *testing.T) {
	if _, err := readConnectResponse([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short connect response")
	}
}

func TestReadAnnounceResponseRejectsShortBuffer(t *testing.T) {
	if _, err := readAnnounceResponse(make([]byte, 10)); err == nil {
		t.Fatal("expected error for short announce response")
	}
}
