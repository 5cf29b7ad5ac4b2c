// Package piece maps a torrent's flat piece index space onto the file
// layout it covers, tiling every piece into the per-file writes needed to
// materialize it on disk.
package piece

// FileSpec is one file of a (possibly multi-file) torrent layout, in the
// order the torrent descriptor lists it.
type FileSpec struct {
	Path   string
	Length int64
}

// Subpiece is the portion of a piece that lands inside one file.
type Subpiece struct {
	FilePath   string
	FileOffset int64
	Length     int64
}

// Piece is one fixed-size (except possibly the last) unit of a torrent,
// independently hash-verified, decomposed into the Subpiece writes needed
// to save it.
type Piece struct {
	Index     int
	Hash      [20]byte
	Length    int64
	Subpieces []Subpiece
}

// Layout expands a torrent's piece hashes into Pieces, tiling each piece's
// byte range [i*pieceLength, i*pieceLength+len) across files. Subpiece
// order within a Piece equals file order. The last piece may be shorter
// than pieceLength; the sum of all Subpiece lengths across all Pieces
// equals totalSize.
func Layout(pieceLength int64, totalSize int64, hashes [][20]byte, files []FileSpec) []Piece {
	pieces := make([]Piece, len(hashes))

	// Running offset of each file's start within the concatenated stream.
	fileStarts := make([]int64, len(files))
	var acc int64
	for i, f := range files {
		fileStarts[i] = acc
		acc += f.Length
	}

	for i := range hashes {
		begin := int64(i) * pieceLength
		end := begin + pieceLength
		if end > totalSize {
			end = totalSize
		}

		pieces[i] = Piece{
			Index:     i,
			Hash:      hashes[i],
			Length:    end - begin,
			Subpieces: subpiecesFor(begin, end, files, fileStarts),
		}
	}
	return pieces
}

// subpiecesFor walks the file list accumulating a running offset, emitting
// one Subpiece for every file the [begin, end) range overlaps.
func subpiecesFor(begin, end int64, files []FileSpec, fileStarts []int64) []Subpiece {
	var subs []Subpiece
	for i, f := range files {
		fileBegin := fileStarts[i]
		fileEnd := fileBegin + f.Length

		overlapBegin := max64(begin, fileBegin)
		overlapEnd := min64(end, fileEnd)
		if overlapBegin >= overlapEnd {
			continue
		}

		subs = append(subs, Subpiece{
			FilePath:   f.Path,
			FileOffset: overlapBegin - fileBegin,
			Length:     overlapEnd - overlapBegin,
		})
	}
	return subs
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
