package piece

import "testing"

func TestLayoutSingleFileTilesExactly(t *testing.T) {
	hashes := make([][20]byte, 3)
	files := []FileSpec{{Path: "movie.mkv", Length: 25}}
	pieces := Layout(10, 25, hashes, files)

	if len(pieces) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(pieces))
	}
	if pieces[2].Length != 5 {
		t.Fatalf("expected last piece length 5, got %d", pieces[2].Length)
	}

	var total int64
	for _, p := range pieces {
		for _, sp := range p.Subpieces {
			total += sp.Length
		}
	}
	if total != 25 {
		t.Fatalf("expected subpieces to sum to 25 bytes, got %d", total)
	}
}

func TestLayoutMultiFileNoGapsOrOverlap(t *testing.T) {
	files := []FileSpec{
		{Path: "a.bin", Length: 7},
		{Path: "b.bin", Length: 13},
		{Path: "c.bin", Length: 5},
	}
	totalSize := int64(25)
	hashes := make([][20]byte, 5) // pieceLength 6 -> ceil(25/6) == 5
	pieces := Layout(6, totalSize, hashes, files)

	var total int64
	var cursor int64
	for _, p := range pieces {
		for _, sp := range p.Subpieces {
			total += sp.Length
			cursor += sp.Length
		}
	}
	if total != totalSize {
		t.Fatalf("subpieces must tile the whole stream: got %d want %d", total, totalSize)
	}

	// Reconstruct the global offset stream to check for gaps/overlaps: walk
	// pieces in order and verify each subpiece continues exactly where the
	// previous one (in the same file) left off.
	fileCursor := map[string]int64{}
	for _, p := range pieces {
		for _, sp := range p.Subpieces {
			want := fileCursor[sp.FilePath]
			if sp.FileOffset != want {
				t.Fatalf("gap/overlap in %s: got offset %d, want %d", sp.FilePath, sp.FileOffset, want)
			}
			fileCursor[sp.FilePath] = sp.FileOffset + sp.Length
		}
	}
	for i, f := range files {
		if fileCursor[f.Path] != f.Length {
			t.Fatalf("file %d (%s): covered %d bytes, want %d", i, f.Path, fileCursor[f.Path], f.Length)
		}
	}
}

func TestLayoutSubpieceOrderMatchesFileOrder(t *testing.T) {
	files := []FileSpec{
		{Path: "a.bin", Length: 4},
		{Path: "b.bin", Length: 4},
	}
	hashes := make([][20]byte, 1)
	pieces := Layout(8, 8, hashes, files)

	if len(pieces[0].Subpieces) != 2 {
		t.Fatalf("expected piece to span both files, got %d subpieces", len(pieces[0].Subpieces))
	}
	if pieces[0].Subpieces[0].FilePath != "a.bin" || pieces[0].Subpieces[1].FilePath != "b.bin" {
		t.Fatalf("expected subpiece order to follow file order, got %+v", pieces[0].Subpieces)
	}
}
