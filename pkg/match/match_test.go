package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/dupelink/pkg/index"
	"github.com/sdejongh/dupelink/pkg/models"
)

func build(root string, files map[string]string) *index.Index {
	idx := index.New(root)
	// map order is random; the matcher must not depend on insertion order
	for path, hash := range files {
		idx.Add(models.FileEntry{Path: path, Root: root, Hash: hash})
	}
	return idx
}

func TestMatch(t *testing.T) {
	a := build("/a", map[string]string{
		"/a/x/photo.jpg": "h1",
		"/a/photo.jpg":   "h1",
		"/a/doc.pdf":     "h2",
		"/a/only-a.txt":  "h3",
		"/a/z.txt":       "h5",
	})
	b := build("/b", map[string]string{
		"/b/photo.jpg":  "h1",
		"/b/report.pdf": "h2",
		"/b/only-b.txt": "h4",
		"/b/zz.txt":     "h5",
	})

	res := Match(a, b, Options{})

	require.Len(t, res.Groups, 3)
	assert.Equal(t, models.MatchGroup{Hash: "h2", FilesA: []string{"/a/doc.pdf"}, FilesB: []string{"/b/report.pdf"}}, res.Groups[0])
	assert.Equal(t, models.MatchGroup{Hash: "h1", FilesA: []string{"/a/photo.jpg", "/a/x/photo.jpg"}, FilesB: []string{"/b/photo.jpg"}}, res.Groups[1])
	assert.Equal(t, "h5", res.Groups[2].Hash)

	assert.Equal(t, []string{"/a/only-a.txt"}, res.UnmatchedA)
	assert.Equal(t, []string{"/b/only-b.txt"}, res.UnmatchedB)
}

func TestMatchDifferentNamesOnly(t *testing.T) {
	a := build("/a", map[string]string{
		"/a/photo.jpg":     "same-name",
		"/a/sub/photo.jpg": "same-name-a-dup",
		"/a/copy.jpg":      "renamed",
		"/a/mix.jpg":       "mixed",
		"/a/sub/mix.jpg":   "mixed",
	})
	b := build("/b", map[string]string{
		"/b/photo.jpg":       "same-name",
		"/b/x/photo.jpg":     "same-name-a-dup",
		"/b/original.jpg":    "renamed",
		"/b/mix-renamed.jpg": "mixed",
	})

	res := Match(a, b, Options{DifferentNamesOnly: true})

	var hashes []string
	for _, g := range res.Groups {
		hashes = append(hashes, g.Hash)
	}
	assert.ElementsMatch(t, []string{"renamed", "mixed"}, hashes)
	assert.Empty(t, res.UnmatchedA, "filtered groups do not feed the unmatched lists")
	assert.Empty(t, res.UnmatchedB)

	res = Match(a, b, Options{})
	assert.Len(t, res.Groups, 4)
}

func TestMatchEmpty(t *testing.T) {
	res := Match(index.New("/a"), build("/b", map[string]string{"/b/f": "h"}), Options{})
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.UnmatchedA)
	assert.Equal(t, []string{"/b/f"}, res.UnmatchedB)
}
