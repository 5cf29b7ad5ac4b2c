// Package torrentfile builds an immutable torrent descriptor out of a
// decoded .torrent bencode tree.
package torrentfile

import (
	"crypto/sha1"
	"fmt"
	"path/filepath"

	"furrent/bencode"
	"furrent/piece"
)

const hashLen = 20

// ErrorKind distinguishes descriptor parse failures from bencode grammar
// failures; both surface to callers of Furrent.AddTorrent as
// LoadingTorrentFailed (see furrent/engine).
type ErrorKind int

const (
	ErrMissingAnnounce ErrorKind = iota
	ErrMissingInfo
	ErrMissingPieceLength
	ErrMissingPieces
	ErrBadPiecesLength
	ErrMissingName
	ErrMissingLength
	ErrBadFileEntry
)

func (k ErrorKind) String() string {
	names := [...]string{
		"MissingAnnounce", "MissingInfo", "MissingPieceLength", "MissingPieces",
		"BadPiecesLength", "MissingName", "MissingLength", "BadFileEntry",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// ParseError reports why a decoded bencode tree could not be turned into a
// Descriptor.
type ParseError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("torrentfile: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("torrentfile: %s", e.Kind)
}

// Descriptor is the immutable metadata extracted from a .torrent file.
type Descriptor struct {
	Announce     string
	AnnounceList []string
	InfoHash     [20]byte
	PieceLength  int64
	PieceHashes  [][20]byte
	Files        []piece.FileSpec
	Name         string
}

// TotalSize is the sum of every file's length.
func (d *Descriptor) TotalSize() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Length
	}
	return total
}

// PiecesCount is the number of piece hashes the descriptor carries.
func (d *Descriptor) PiecesCount() int {
	return len(d.PieceHashes)
}

// Parse decodes raw as a bencode tree and builds a Descriptor from it,
// computing InfoHash as the SHA-1 of the exact byte range the decoder
// recorded for the "info" dict.
func Parse(raw []byte) (*Descriptor, error) {
	root, err := bencode.Decode(raw)
	if err != nil {
		return nil, err
	}
	return build(root, raw)
}

func build(root *bencode.Value, raw []byte) (*Descriptor, error) {
	top, ok := root.AsDict()
	if !ok {
		return nil, &ParseError{Kind: ErrMissingInfo, Msg: "top-level value is not a dict"}
	}

	announceVal, ok := top["announce"]
	if !ok {
		return nil, &ParseError{Kind: ErrMissingAnnounce}
	}
	announceBytes, ok := announceVal.AsString()
	if !ok {
		return nil, &ParseError{Kind: ErrMissingAnnounce, Msg: "announce is not a string"}
	}

	infoVal, ok := top["info"]
	if !ok || infoVal.Kind != bencode.KindDict {
		return nil, &ParseError{Kind: ErrMissingInfo}
	}
	info := infoVal.Dict

	infoHash := sha1.Sum(raw[infoVal.Start:infoVal.End])

	pieceLengthVal, ok := info["piece length"]
	if !ok {
		return nil, &ParseError{Kind: ErrMissingPieceLength}
	}
	pieceLength, ok := pieceLengthVal.AsInt()
	if !ok || pieceLength <= 0 {
		return nil, &ParseError{Kind: ErrMissingPieceLength, Msg: "piece length is not a positive integer"}
	}

	piecesVal, ok := info["pieces"]
	if !ok {
		return nil, &ParseError{Kind: ErrMissingPieces}
	}
	piecesRaw, ok := piecesVal.AsString()
	if !ok {
		return nil, &ParseError{Kind: ErrMissingPieces, Msg: "pieces is not a string"}
	}
	if len(piecesRaw)%hashLen != 0 {
		return nil, &ParseError{Kind: ErrBadPiecesLength}
	}
	pieceHashes := make([][20]byte, len(piecesRaw)/hashLen)
	for i := range pieceHashes {
		copy(pieceHashes[i][:], piecesRaw[i*hashLen:(i+1)*hashLen])
	}

	nameVal, ok := info["name"]
	if !ok {
		return nil, &ParseError{Kind: ErrMissingName}
	}
	nameBytes, ok := nameVal.AsString()
	if !ok {
		return nil, &ParseError{Kind: ErrMissingName, Msg: "name is not a string"}
	}
	name := string(nameBytes)

	files, err := buildFiles(info, name)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		Announce:     string(announceBytes),
		AnnounceList: buildAnnounceList(top),
		InfoHash:     infoHash,
		PieceLength:  pieceLength,
		PieceHashes:  pieceHashes,
		Files:        files,
		Name:         name,
	}, nil
}

func buildFiles(info map[string]*bencode.Value, name string) ([]piece.FileSpec, error) {
	if filesVal, ok := info["files"]; ok {
		items, ok := filesVal.AsList()
		if !ok {
			return nil, &ParseError{Kind: ErrBadFileEntry, Msg: "files is not a list"}
		}
		files := make([]piece.FileSpec, 0, len(items))
		for _, item := range items {
			entry, ok := item.AsDict()
			if !ok {
				return nil, &ParseError{Kind: ErrBadFileEntry, Msg: "file entry is not a dict"}
			}
			lengthVal, ok := entry["length"]
			if !ok {
				return nil, &ParseError{Kind: ErrBadFileEntry, Msg: "file entry missing length"}
			}
			length, ok := lengthVal.AsInt()
			if !ok || length < 0 {
				return nil, &ParseError{Kind: ErrBadFileEntry, Msg: "file entry length is not a non-negative integer"}
			}
			pathVal, ok := entry["path"]
			if !ok {
				return nil, &ParseError{Kind: ErrBadFileEntry, Msg: "file entry missing path"}
			}
			pathParts, ok := pathVal.AsList()
			if !ok || len(pathParts) == 0 {
				return nil, &ParseError{Kind: ErrBadFileEntry, Msg: "file entry path is not a non-empty list"}
			}
			segs := make([]string, len(pathParts))
			for i, part := range pathParts {
				b, ok := part.AsString()
				if !ok {
					return nil, &ParseError{Kind: ErrBadFileEntry, Msg: "path component is not a string"}
				}
				segs[i] = string(b)
			}
			fullPath := filepath.Join(append([]string{name}, segs...)...)
			files = append(files, piece.FileSpec{Path: fullPath, Length: length})
		}
		return files, nil
	}

	lengthVal, ok := info["length"]
	if !ok {
		return nil, &ParseError{Kind: ErrMissingLength}
	}
	length, ok := lengthVal.AsInt()
	if !ok || length < 0 {
		return nil, &ParseError{Kind: ErrMissingLength, Msg: "length is not a non-negative integer"}
	}
	return []piece.FileSpec{{Path: name, Length: length}}, nil
}

// buildAnnounceList flattens the optional BEP 12 announce-list (a list of
// tiers, each a list of URLs) into a single fallback URL list, taking the
// first URL of each tier the way the original client's tracker rotation
// does.
func buildAnnounceList(top map[string]*bencode.Value) []string {
	listVal, ok := top["announce-list"]
	if !ok {
		return nil
	}
	tiers, ok := listVal.AsList()
	if !ok {
		return nil
	}
	var flat []string
	for _, tier := range tiers {
		urls, ok := tier.AsList()
		if !ok || len(urls) == 0 {
			continue
		}
		if b, ok := urls[0].AsString(); ok {
			flat = append(flat, string(b))
		}
	}
	return flat
}
