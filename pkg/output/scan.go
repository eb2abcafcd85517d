package output

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
)

const scanTemplate = `{{string . "tree"}} {{counters . }} {{string . "files"}} {{speed . }} {{string . "current"}}`

// ScanProgress shows indexing progress, one counter per tree: files and
// bytes hashed so far and the file currently being read
type ScanProgress struct {
	writer io.Writer
	mu     sync.Mutex
	bar    *pb.ProgressBar
	root   string
	files  int
	bytes  int64
}

// NewScanProgress creates an indexing progress display writing to w
func NewScanProgress(w io.Writer) *ScanProgress {
	return &ScanProgress{writer: w}
}

// StartTree starts a new counter for the tree at root
func (p *ScanProgress) StartTree(root string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
	}
	p.root, p.files, p.bytes = root, 0, 0

	p.bar = pb.ProgressBarTemplate(scanTemplate).New(0)
	p.bar.Set(pb.Bytes, true)
	p.bar.SetWriter(p.writer)
	p.bar.SetRefreshRate(100 * time.Millisecond)
	p.bar.Set("tree", "Indexing "+root)
	p.bar.Set("files", "0 files")
	p.bar.Start()
}

// FileIndexed counts a hashed file; it matches the indexer file callback
func (p *ScanProgress) FileIndexed(path string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.files++
	p.bytes += size
	if p.bar != nil {
		p.bar.SetCurrent(p.bytes)
		p.bar.Set("files", fmt.Sprintf("%d files", p.files))
		p.bar.Set("current", "")
	}
}

// Hashing shows how far the current file has been read; it matches the
// hasher progress callback
func (p *ScanProgress) Hashing(path string, current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || total <= 0 {
		return
	}
	p.bar.Set("current", fmt.Sprintf("%s %d%%", filepath.Base(path), current*100/total))
}

// FinishTree stops the counter and prints what the tree contributed
func (p *ScanProgress) FinishTree(files int, bytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
	fmt.Fprintf(p.writer, "Indexed %s: %d files, %s\n", p.root, files, humanize.IBytes(uint64(bytes)))
}
