package hasher

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Mismatch describes why two files are not byte-identical
type Mismatch struct {
	Reason string
}

func (m *Mismatch) Error() string {
	return "content mismatch: " + m.Reason
}

// Verify compares two files byte-by-byte and returns a *Mismatch when their
// contents differ. It is the slow but exact check behind --verify, used to
// rule out false positives of sampled fingerprints before a file is replaced.
func (h *Hasher) Verify(ctx context.Context, pathA, pathB string) error {
	fa, err := h.fs.Open(pathA)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", pathA, err)
	}
	defer fa.Close()

	fb, err := h.fs.Open(pathB)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", pathB, err)
	}
	defer fb.Close()

	infoA, err := fa.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", pathA, err)
	}
	infoB, err := fb.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", pathB, err)
	}

	if infoA.Size() != infoB.Size() {
		return &Mismatch{Reason: fmt.Sprintf("size mismatch: %d vs %d", infoA.Size(), infoB.Size())}
	}

	var ra, rb io.Reader = fa, fb
	if h.readerWrapper != nil {
		ra = h.readerWrapper(ctx, ra)
		rb = h.readerWrapper(ctx, rb)
	}

	bufAPtr := h.bufferPool.Get().(*[]byte)
	defer h.bufferPool.Put(bufAPtr)
	bufA := *bufAPtr

	bufBPtr := h.bufferPool.Get().(*[]byte)
	defer h.bufferPool.Put(bufBPtr)
	bufB := *bufBPtr

	var compared int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		na, errA := io.ReadFull(ra, bufA)
		nb, errB := io.ReadFull(rb, bufB)

		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			n := min(na, nb)
			for i := 0; i < n; i++ {
				if bufA[i] != bufB[i] {
					return &Mismatch{Reason: fmt.Sprintf("content differs at byte offset %d", compared+int64(i))}
				}
			}
			return &Mismatch{Reason: fmt.Sprintf("length differs after byte offset %d", compared+int64(n))}
		}
		compared += int64(na)

		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if errA != nil && !doneA {
			return fmt.Errorf("failed to read %s: %w", pathA, errA)
		}
		if errB != nil && !doneB {
			return fmt.Errorf("failed to read %s: %w", pathB, errB)
		}
		if doneA && doneB {
			return nil
		}
		if doneA != doneB {
			return &Mismatch{Reason: fmt.Sprintf("length differs after byte offset %d", compared)}
		}
	}
}
