package engine

import (
	"os"
	"path/filepath"
	"testing"

	"furrent/bencode"
	"furrent/torrentfile"
)

// buildTorrentFile bencode-encodes desc back into a .torrent file on disk,
// so AddTorrent's Parse call has real bytes to work from. Only the
// single-file shape used by this package's tests is supported.
func buildTorrentFile(t *testing.T, dir string, desc *torrentfile.Descriptor) string {
	t.Helper()
	if len(desc.Files) != 1 {
		t.Fatalf("buildTorrentFile only supports single-file descriptors, got %d files", len(desc.Files))
	}

	pieces := make([]byte, 0, len(desc.PieceHashes)*20)
	for _, h := range desc.PieceHashes {
		pieces = append(pieces, h[:]...)
	}

	info := bencode.NewDict(map[string]*bencode.Value{
		"name":         bencode.NewString([]byte(desc.Name)),
		"piece length": bencode.NewInt(desc.PieceLength),
		"pieces":       bencode.NewString(pieces),
		"length":       bencode.NewInt(desc.Files[0].Length),
	})

	root := bencode.NewDict(map[string]*bencode.Value{
		"announce": bencode.NewString([]byte(desc.Announce)),
		"info":     info,
	})

	raw := bencode.Encode(root)
	path := filepath.Join(dir, "test.torrent")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write test torrent file: %v", err)
	}
	return path
}
