// Package engine orchestrates torrent registration, the piece task queue
// and a worker pool that turns queued pieces into verified bytes on disk.
// It defines the collaborator interfaces it needs (Announcer, Downloader,
// Writer) at the point of use; concrete implementations live in sibling
// packages and satisfy them structurally, with no import back into engine.
package engine

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"furrent/config"
	"furrent/piece"
	"furrent/queue"
	"furrent/registry"
	"furrent/torrentfile"
)

// Announcer contacts a torrent's tracker(s) to obtain a peer list.
type Announcer interface {
	Announce(ctx context.Context, d *torrentfile.Descriptor, peerID [20]byte) (registry.AnnounceResult, error)
}

// Downloader fetches one piece's full bytes from a single peer.
type Downloader interface {
	TryDownload(ctx context.Context, d *torrentfile.Descriptor, p piece.Piece, peer registry.Peer) ([]byte, error)
}

// Writer persists a subpiece's bytes at an offset within a file.
type Writer interface {
	WriteBytes(path string, data []byte, offset int64) error
}

// ErrorKind classifies the ways AddTorrent, RemoveTorrent and friends can
// fail.
type ErrorKind int

const (
	ErrLoadingTorrentFailed ErrorKind = iota
	ErrUnknownTorrent
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLoadingTorrentFailed:
		return "LoadingTorrentFailed"
	case ErrUnknownTorrent:
		return "UnknownTorrent"
	default:
		return "Unknown"
	}
}

// Error reports a failed engine operation.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("engine: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// GUIData is the read-only snapshot handed to a front-end for one torrent.
type GUIData struct {
	ID        registry.TorrentID
	State     registry.State
	Name      string
	Processed int64
	Total     int
}

// Furrent is the piece-download engine: a torrent registry, a shared task
// queue and a pool of workers pulling from it.
type Furrent struct {
	registry *registry.Registry
	queue    *queue.TaskQueue

	announcer  Announcer
	downloader Downloader
	writer     Writer

	cfg    config.Config
	log    *logrus.Entry
	peerID [20]byte

	alive atomic.Bool
	wg    sync.WaitGroup
}

// New builds a Furrent engine and starts its worker pool.
func New(cfg config.Config, ann Announcer, dl Downloader, w Writer, log *logrus.Entry) *Furrent {
	f := &Furrent{
		registry:   registry.New(),
		queue:      queue.New(),
		announcer:  ann,
		downloader: dl,
		writer:     w,
		cfg:        cfg,
		log:        log,
		peerID:     randomPeerID(),
	}
	f.alive.Store(true)

	workers := cfg.WorkerCountOrDefault()
	f.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go f.workerLoop(i)
	}
	return f
}

func randomPeerID() [20]byte {
	var id [20]byte
	copy(id[:], "-FR0001-")
	rand.Read(id[8:])
	return id
}

// Close stops accepting work, wakes every worker and waits for them to
// drain, in that order so no worker can be left blocked on WaitWork.
func (f *Furrent) Close() {
	f.alive.Store(false)
	f.queue.BeginSkipWaiting()
	f.wg.Wait()
}

// AddTorrent parses path, announces to its tracker(s), registers it and
// enqueues every one of its pieces.
func (f *Furrent) AddTorrent(ctx context.Context, path string) (registry.TorrentID, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, &Error{Kind: ErrLoadingTorrentFailed, Err: err}
	}

	desc, err := torrentfile.Parse(raw)
	if err != nil {
		return 0, &Error{Kind: ErrLoadingTorrentFailed, Err: err}
	}

	result, err := f.announcer.Announce(ctx, desc, f.peerID)
	if err != nil {
		return 0, &Error{Kind: ErrLoadingTorrentFailed, Err: err}
	}

	id := f.registry.Add(desc, result.Peers)
	tor, _ := f.registry.Get(id)

	pieces := piece.Layout(desc.PieceLength, desc.TotalSize(), desc.PieceHashes, desc.Files)
	for _, p := range pieces {
		f.queue.Emplace(id, p)
	}

	tor.SetState(registry.StateDownloading)
	f.log.WithFields(logrus.Fields{
		"torrent": id,
		"name":    desc.Name,
		"pieces":  len(pieces),
		"peers":   len(result.Peers),
	}).Info("torrent added")

	return id, nil
}

// RemoveTorrent purges the torrent's queued tasks and, unless it already
// reached a terminal Completed or Error state, marks it Stopped. The
// terminal-state check runs after the purge so a torrent that errors mid-
// removal can never resurrect queued work for it.
func (f *Furrent) RemoveTorrent(id registry.TorrentID) error {
	tor, ok := f.registry.Get(id)
	if !ok {
		return &Error{Kind: ErrUnknownTorrent}
	}

	f.queue.Mutate(func(t queue.PieceTask) bool { return t.TorrentID == id })

	for {
		s := tor.State()
		if s == registry.StateCompleted || s == registry.StateError || s == registry.StateStopped {
			break
		}
		if tor.CompareAndSwapState(s, registry.StateStopped) {
			break
		}
	}
	return nil
}

// torrentError purges the torrent's queue entries before marking it Error,
// so no worker can pull a task for a torrent already given up on.
func (f *Furrent) torrentError(id registry.TorrentID) {
	f.queue.Mutate(func(t queue.PieceTask) bool { return t.TorrentID == id })
	tor, ok := f.registry.Get(id)
	if !ok {
		return
	}
	for {
		s := tor.State()
		if s == registry.StateCompleted || s == registry.StateError || s == registry.StateStopped {
			return
		}
		if tor.CompareAndSwapState(s, registry.StateError) {
			return
		}
	}
}

// Pause stops a downloading torrent from making further progress without
// discarding its queued tasks.
func (f *Furrent) Pause(id registry.TorrentID) bool {
	tor, ok := f.registry.Get(id)
	if !ok {
		return false
	}
	return tor.CompareAndSwapState(registry.StateDownloading, registry.StatePaused)
}

// Resume un-pauses a paused torrent.
func (f *Furrent) Resume(id registry.TorrentID) bool {
	tor, ok := f.registry.Get(id)
	if !ok {
		return false
	}
	return tor.CompareAndSwapState(registry.StatePaused, registry.StateDownloading)
}

// GetGUIData snapshots every registered torrent's progress. The slice is
// built empty and only ever appended to, so a torrent removed mid-snapshot
// simply doesn't appear rather than leaving a stale zero-value hole.
func (f *Furrent) GetGUIData() []GUIData {
	entries := f.registry.Snapshot()
	out := make([]GUIData, 0, len(entries))
	for _, e := range entries {
		out = append(out, guiDataOf(e.ID, e.T))
	}
	return out
}

// GetGUIDataOne returns the snapshot for a single torrent.
func (f *Furrent) GetGUIDataOne(id registry.TorrentID) (GUIData, bool) {
	tor, ok := f.registry.Get(id)
	if !ok {
		return GUIData{}, false
	}
	return guiDataOf(id, tor), true
}

func guiDataOf(id registry.TorrentID, tor *registry.Torrent) GUIData {
	return GUIData{
		ID:        id,
		State:     tor.State(),
		Name:      tor.Descriptor().Name,
		Processed: tor.PiecesProcessed(),
		Total:     tor.PiecesCount(),
	}
}

func (f *Furrent) workerLoop(index int) {
	defer f.wg.Done()
	rng := rand.New(rand.NewSource(int64(index) + 1))

	for f.alive.Load() {
		task, err := f.queue.TryExtract(queue.LIFO)
		if err != nil {
			f.queue.WaitWork()
			continue
		}
		f.processTask(rng, task)
	}
}

// processTask drives a single piece task to completion, failure, or
// re-queueing under a pause, retrying against freshly sampled peers up to
// cfg.MaxTry times before giving up on the whole torrent.
func (f *Furrent) processTask(rng *rand.Rand, task queue.PieceTask) {
	tor, ok := f.registry.Get(task.TorrentID)
	if !ok {
		return
	}

	if tor.State() == registry.StatePaused {
		f.queue.Insert(task)
		return
	}

	maxTry := f.cfg.MaxTryOrDefault()
	for attempt := 0; attempt < maxTry; attempt++ {
		peerIdx, ok := tor.SamplePeer(rng)
		if !ok {
			break
		}
		peer := tor.Peers()[peerIdx]

		data, err := f.downloader.TryDownload(context.Background(), tor.Descriptor(), task.Piece, peer)
		if err != nil {
			continue
		}
		if sha1.Sum(data) != task.Piece.Hash {
			continue
		}
		if err := f.writeSubpieces(task.Piece, data); err != nil {
			f.log.WithError(err).WithField("torrent", task.TorrentID).Error("write failed")
			continue
		}

		tor.IncrementScore(peerIdx)
		processed := tor.IncrementProcessed()

		if processed%100 == 0 {
			f.log.WithFields(logrus.Fields{
				"torrent":      task.TorrentID,
				"processed":    processed,
				"distribution": tor.Distribution(),
			}).Debug("peer distribution")
		}

		if processed == int64(tor.PiecesCount()) {
			tor.CompareAndSwapState(registry.StateDownloading, registry.StateCompleted)
		}
		return
	}

	f.torrentError(task.TorrentID)
}

func (f *Furrent) writeSubpieces(p piece.Piece, data []byte) error {
	var offset int64
	for _, sp := range p.Subpieces {
		end := offset + sp.Length
		if end > int64(len(data)) {
			return errors.New("engine: piece data shorter than its subpiece layout")
		}
		path := filepath.Join(f.cfg.DownloadFolder, sp.FilePath)
		if err := f.writer.WriteBytes(path, data[offset:end], sp.FileOffset); err != nil {
			return err
		}
		offset = end
	}
	return nil
}
