package registry

import (
	"math/rand"
	"net"
	"testing"

	"furrent/torrentfile"
)

func testDescriptor(pieceCount int) *torrentfile.Descriptor {
	return &torrentfile.Descriptor{
		PieceHashes: make([][20]byte, pieceCount),
	}
}

func testPeers(n int) []Peer {
	peers := make([]Peer, n)
	for i := range peers {
		peers[i] = Peer{IP: net.IPv4(127, 0, 0, byte(i + 1)), Port: 6881}
	}
	return peers
}

func TestAddAllocatesIncreasingIDs(t *testing.T) {
	r := New()
	id1 := r.Add(testDescriptor(1), testPeers(1))
	id2 := r.Add(testDescriptor(1), testPeers(1))
	if id2 <= id1 {
		t.Fatalf("expected id2 > id1, got %d, %d", id2, id1)
	}
}

func TestNewTorrentStartsLoading(t *testing.T) {
	r := New()
	id := r.Add(testDescriptor(4), testPeers(2))
	tor, ok := r.Get(id)
	if !ok {
		t.Fatal("expected torrent to be found")
	}
	if tor.State() != StateLoading {
		t.Fatalf("expected Loading, got %v", tor.State())
	}
}

func TestCompareAndSwapStateOnlyMatchesExpectedOld(t *testing.T) {
	r := New()
	id := r.Add(testDescriptor(1), testPeers(1))
	tor, _ := r.Get(id)

	if tor.CompareAndSwapState(StateDownloading, StatePaused) {
		t.Fatal("CAS should fail when current state does not match old")
	}
	tor.SetState(StateDownloading)
	if !tor.CompareAndSwapState(StateDownloading, StatePaused) {
		t.Fatal("CAS should succeed when current state matches old")
	}
	if tor.State() != StatePaused {
		t.Fatalf("expected Paused, got %v", tor.State())
	}
}

func TestScoreConvergenceFavorsSuccessfulPeer(t *testing.T) {
	r := New()
	id := r.Add(testDescriptor(1000), testPeers(2))
	tor, _ := r.Get(id)

	// Peer 1 always succeeds; peer 0 never does.
	for i := 0; i < 100; i++ {
		tor.IncrementScore(1)
	}

	dist := tor.Distribution()
	if dist[1] <= dist[0] {
		t.Fatalf("expected peer 1's weight to dominate peer 0's: got %v", dist)
	}
}

func TestSamplePeerNoPeersReturnsFalse(t *testing.T) {
	r := New()
	id := r.Add(testDescriptor(1), nil)
	tor, _ := r.Get(id)

	rng := rand.New(rand.NewSource(1))
	if _, ok := tor.SamplePeer(rng); ok {
		t.Fatal("expected SamplePeer to fail with no peers")
	}
}

func TestIncrementProcessedIsMonotonic(t *testing.T) {
	r := New()
	id := r.Add(testDescriptor(3), testPeers(1))
	tor, _ := r.Get(id)

	if got := tor.IncrementProcessed(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := tor.IncrementProcessed(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if tor.PiecesProcessed() != 2 {
		t.Fatalf("expected PiecesProcessed()==2, got %d", tor.PiecesProcessed())
	}
}
