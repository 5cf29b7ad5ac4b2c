package torrentfile

import (
	"crypto/sha1"
	"testing"

	"furrent/bencode"
)

func encodedSingleFile() []byte {
	pieces := make([]byte, 40) // two dummy 20-byte hashes
	info := bencode.NewDict(map[string]*bencode.Value{
		"piece length": bencode.NewInt(10),
		"pieces":       bencode.NewString(pieces),
		"length":       bencode.NewInt(15),
		"name":         bencode.NewString([]byte("movie.mkv")),
	})
	root := bencode.NewDict(map[string]*bencode.Value{
		"announce": bencode.NewString([]byte("http://tracker.example/announce")),
		"info":     info,
	})
	return bencode.Encode(root)
}

func TestParseSingleFile(t *testing.T) {
	raw := encodedSingleFile()
	d, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Announce != "http://tracker.example/announce" {
		t.Fatalf("unexpected announce: %s", d.Announce)
	}
	if d.PieceLength != 10 {
		t.Fatalf("unexpected piece length: %d", d.PieceLength)
	}
	if len(d.PieceHashes) != 2 {
		t.Fatalf("expected 2 piece hashes, got %d", len(d.PieceHashes))
	}
	if len(d.Files) != 1 || d.Files[0].Path != "movie.mkv" || d.Files[0].Length != 15 {
		t.Fatalf("unexpected files: %+v", d.Files)
	}
	if d.TotalSize() != 15 {
		t.Fatalf("unexpected total size: %d", d.TotalSize())
	}
}

func TestParseInfoHashMatchesExactByteSpan(t *testing.T) {
	raw := encodedSingleFile()
	root, err := bencode.Decode(raw)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	top, _ := root.AsDict()
	infoVal := top["info"]
	want := sha1.Sum(raw[infoVal.Start:infoVal.End])

	d, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if d.InfoHash != want {
		t.Fatalf("info hash mismatch: got %x, want %x", d.InfoHash, want)
	}
}

func TestParseMultiFile(t *testing.T) {
	files := bencode.NewList(
		bencode.NewDict(map[string]*bencode.Value{
			"length": bencode.NewInt(5),
			"path":   bencode.NewList(bencode.NewString([]byte("a.bin"))),
		}),
		bencode.NewDict(map[string]*bencode.Value{
			"length": bencode.NewInt(7),
			"path":   bencode.NewList(bencode.NewString([]byte("sub")), bencode.NewString([]byte("b.bin"))),
		}),
	)
	info := bencode.NewDict(map[string]*bencode.Value{
		"piece length": bencode.NewInt(4),
		"pieces":       bencode.NewString(make([]byte, 60)),
		"files":        files,
		"name":         bencode.NewString([]byte("bundle")),
	})
	root := bencode.NewDict(map[string]*bencode.Value{
		"announce": bencode.NewString([]byte("udp://tracker.example:80")),
		"info":     info,
	})
	raw := bencode.Encode(root)

	d, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.TotalSize() != 12 {
		t.Fatalf("unexpected total size: %d", d.TotalSize())
	}
	if len(d.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(d.Files))
	}
}

func TestParseRejectsMissingAnnounce(t *testing.T) {
	info := bencode.NewDict(map[string]*bencode.Value{
		"piece length": bencode.NewInt(10),
		"pieces":       bencode.NewString(make([]byte, 20)),
		"length":       bencode.NewInt(10),
		"name":         bencode.NewString([]byte("f")),
	})
	root := bencode.NewDict(map[string]*bencode.Value{"info": info})
	_, err := Parse(bencode.Encode(root))
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrMissingAnnounce {
		t.Fatalf("expected ErrMissingAnnounce, got %v", err)
	}
}

func TestParseRejectsBadPiecesLength(t *testing.T) {
	info := bencode.NewDict(map[string]*bencode.Value{
		"piece length": bencode.NewInt(10),
		"pieces":       bencode.NewString(make([]byte, 19)),
		"length":       bencode.NewInt(10),
		"name":         bencode.NewString([]byte("f")),
	})
	root := bencode.NewDict(map[string]*bencode.Value{
		"announce": bencode.NewString([]byte("http://t")),
		"info":     info,
	})
	_, err := Parse(bencode.Encode(root))
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrBadPiecesLength {
		t.Fatalf("expected ErrBadPiecesLength, got %v", err)
	}
}
