// Package registry holds per-torrent state: descriptor, peer set, peer
// scores, progress counters and lifecycle state, keyed by an
// ever-increasing TorrentID. Tasks reference a torrent only by TorrentID,
// never by pointer, so task lifetime never needs to track torrent lifetime.
package registry

import (
	"math/rand"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"furrent/torrentfile"
)

// TorrentID uniquely and permanently identifies a registered torrent.
// Allocation is monotonically increasing and IDs are never reused within a
// process.
type TorrentID uint64

// State is the lifecycle stage of a torrent. Completed, Stopped and Error
// are terminal.
type State int32

const (
	StateLoading State = iota
	StateDownloading
	StatePaused
	StateStopped
	StateCompleted
	StateError
)

func (s State) String() string {
	names := [...]string{"Loading", "Downloading", "Paused", "Stopped", "Completed", "Error"}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// baselineScore is the initial weight every peer starts with, so the very
// first sample of a torrent's distribution is uniform.
const baselineScore = 1

// Peer is a remote endpoint believed to hold (parts of) a torrent.
type Peer struct {
	IP   net.IP
	Port uint16
}

// String formats a peer as A.B.C.D:P.
func (p Peer) String() string {
	return net.JoinHostPort(p.IP.String(), strconv.Itoa(int(p.Port)))
}

// AnnounceResult is what a tracker announce collaborator returns.
type AnnounceResult struct {
	Interval time.Duration
	Peers    []Peer
}

// Torrent is one registry entry: an immutable descriptor plus mutable
// peer/score/progress/state under concurrency-safe access.
type Torrent struct {
	descriptor *torrentfile.Descriptor

	mu    sync.RWMutex
	peers []Peer

	scores          []atomic.Int64
	piecesProcessed atomic.Int64
	state           atomic.Int32
}

func newTorrent(d *torrentfile.Descriptor, peers []Peer) *Torrent {
	t := &Torrent{
		descriptor: d,
		peers:      peers,
		scores:     make([]atomic.Int64, len(peers)),
	}
	for i := range t.scores {
		t.scores[i].Store(baselineScore)
	}
	t.state.Store(int32(StateLoading))
	return t
}

// Descriptor returns the torrent's immutable metadata.
func (t *Torrent) Descriptor() *torrentfile.Descriptor { return t.descriptor }

// State returns the current lifecycle state.
func (t *Torrent) State() State { return State(t.state.Load()) }

// SetState unconditionally sets the lifecycle state.
func (t *Torrent) SetState(s State) { t.state.Store(int32(s)) }

// CompareAndSwapState transitions the state only if it currently equals old.
func (t *Torrent) CompareAndSwapState(old, new State) bool {
	return t.state.CompareAndSwap(int32(old), int32(new))
}

// Peers returns a snapshot copy of the peer list.
func (t *Torrent) Peers() []Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]Peer, len(t.peers))
	copy(cp, t.peers)
	return cp
}

// IncrementScore rewards the peer at peerIndex for a successful download.
func (t *Torrent) IncrementScore(peerIndex int) {
	if peerIndex < 0 || peerIndex >= len(t.scores) {
		return
	}
	t.scores[peerIndex].Add(1)
}

// PiecesProcessed returns the number of pieces successfully downloaded and
// saved so far.
func (t *Torrent) PiecesProcessed() int64 { return t.piecesProcessed.Load() }

// IncrementProcessed records one more completed piece and returns the new
// total.
func (t *Torrent) IncrementProcessed() int64 { return t.piecesProcessed.Add(1) }

// PiecesCount is the total number of pieces the torrent has.
func (t *Torrent) PiecesCount() int { return len(t.descriptor.PieceHashes) }

// SamplePeer draws a peer index from the current score distribution:
// weight[p] = score[p], normalized. Peers that have never succeeded keep
// the baseline weight, so the distribution only ever drifts toward peers
// that have actually served data — no explicit ban logic is needed.
func (t *Torrent) SamplePeer(r *rand.Rand) (int, bool) {
	t.mu.RLock()
	n := len(t.peers)
	t.mu.RUnlock()
	if n == 0 {
		return 0, false
	}

	weights := make([]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		w := float64(t.scores[i].Load())
		weights[i] = w
		sum += w
	}
	if sum <= 0 {
		return r.Intn(n), true
	}

	x := r.Float64() * sum
	var cum float64
	for i, w := range weights {
		cum += w
		if x < cum {
			return i, true
		}
	}
	return n - 1, true
}

// Distribution returns a snapshot of the normalized peer weights, for
// diagnostics and tests.
func (t *Torrent) Distribution() []float64 {
	t.mu.RLock()
	n := len(t.peers)
	t.mu.RUnlock()

	weights := make([]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		w := float64(t.scores[i].Load())
		weights[i] = w
		sum += w
	}
	if sum <= 0 {
		return weights
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// Registry maps TorrentID to Torrent. Map mutation (adding a torrent) takes
// the writer lock; everything else (peer reads, atomic score/progress
// updates) only needs the reader lock, since distinct memory locations
// don't need mutual exclusion between workers.
type Registry struct {
	mu       sync.RWMutex
	torrents map[TorrentID]*Torrent
	nextID   uint64
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{torrents: make(map[TorrentID]*Torrent)}
}

// Add registers a new torrent and returns its freshly allocated ID.
func (r *Registry) Add(d *torrentfile.Descriptor, peers []Peer) TorrentID {
	id := TorrentID(atomic.AddUint64(&r.nextID, 1))
	t := newTorrent(d, peers)

	r.mu.Lock()
	r.torrents[id] = t
	r.mu.Unlock()

	return id
}

// Get looks up a torrent by ID.
func (r *Registry) Get(id TorrentID) (*Torrent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.torrents[id]
	return t, ok
}

// Entry pairs a TorrentID with its Torrent, as returned by Snapshot.
type Entry struct {
	ID TorrentID
	T  *Torrent
}

// Snapshot returns every registered (id, torrent) pair, in no particular
// order.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.torrents))
	for id, t := range r.torrents {
		out = append(out, Entry{id, t})
	}
	return out
}
