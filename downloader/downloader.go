package downloader

import (
	"context"
	"fmt"
	"time"

	"furrent/piece"
	"furrent/registry"
	"furrent/torrentfile"
)

// maxBlockSize is BitTorrent's conventional request granularity: pieces are
// downloaded in 16 KiB blocks, not in one shot, regardless of piece size.
const maxBlockSize = 16 * 1024

// maxPipelineDepth bounds how many outstanding block requests a Downloader
// keeps in flight against one peer at a time.
const maxPipelineDepth = 5

const pieceTimeout = 30 * time.Second

// Downloader fetches whole pieces over the peer wire protocol. It dials a
// fresh connection per call; callers wanting connection reuse across
// pieces should wrap it accordingly. It satisfies furrent/engine's
// Downloader interface structurally.
type Downloader struct {
	peerID [20]byte
}

// New builds a wire-protocol Downloader identifying itself with peerID.
func New(peerID [20]byte) *Downloader {
	return &Downloader{peerID: peerID}
}

// TryDownload fetches the full bytes of one piece from a single peer,
// pipelining block requests up to maxPipelineDepth once unchoked.
func (d *Downloader) TryDownload(ctx context.Context, desc *torrentfile.Descriptor, p piece.Piece, peer registry.Peer) ([]byte, error) {
	pc, err := dialPeer(peer, d.peerID, desc.InfoHash)
	if err != nil {
		return nil, fmt.Errorf("downloader: dial %s: %w", peer, err)
	}
	defer pc.close()

	if !pc.bitfield.hasPiece(p.Index) {
		return nil, fmt.Errorf("downloader: peer %s does not have piece %d", peer, p.Index)
	}

	if err := pc.send(msgUnchoke); err != nil {
		return nil, err
	}
	if err := pc.send(msgInterested); err != nil {
		return nil, err
	}

	return downloadBlocks(pc, p)
}

type blockState struct {
	buffer        []byte
	downloaded    int
	requested     int
	pipelineDepth int
}

func downloadBlocks(pc *peerConn, p piece.Piece) ([]byte, error) {
	state := blockState{buffer: make([]byte, p.Length)}

	pc.conn.SetDeadline(time.Now().Add(pieceTimeout))
	defer pc.conn.SetDeadline(time.Time{})

	length := int(p.Length)
	for state.downloaded < length {
		if !pc.choked {
			for state.pipelineDepth < maxPipelineDepth && state.requested < length {
				blockSize := maxBlockSize
				if length-state.requested < blockSize {
					blockSize = length - state.requested
				}
				if err := pc.sendRequest(p.Index, state.requested, blockSize); err != nil {
					return nil, err
				}
				state.pipelineDepth++
				state.requested += blockSize
			}
		}

		msg, err := pc.read()
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue // keep-alive
		}

		switch msg.id {
		case msgUnchoke:
			pc.choked = false
		case msgChoke:
			pc.choked = true
		case msgHave:
			if idx, err := readHaveMessage(msg); err == nil {
				pc.bitfield.setPiece(idx)
			}
		case msgPiece:
			n, err := readPieceMessage(p.Index, state.buffer, msg)
			if err != nil {
				return nil, err
			}
			state.downloaded += n
			state.pipelineDepth--
		}
	}

	return state.buffer, nil
}
