// Package ratelimit throttles the read bandwidth used while hashing and
// verifying, so a scan of a busy disk can be kept in the background.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBucket keeps refills smooth for very low limits
const minBucket = 64 * 1024

// Limiter is a token bucket shared by every reader it wraps
type Limiter struct {
	bytesPerSecond int64
	bucketSize     int64

	mu         sync.Mutex
	tokens     int64
	lastRefill time.Time
	now        func() time.Time
}

// NewLimiter returns a limiter for the given rate, or nil for no limit.
// A nil *Limiter is valid and never throttles.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	bucket := bytesPerSecond
	if bucket < minBucket {
		bucket = minBucket
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		bucketSize:     bucket,
		tokens:         bucket,
		lastRefill:     time.Now(),
		now:            time.Now,
	}
}

// Rate returns the configured limit in bytes per second (0 when unlimited)
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return l.bytesPerSecond
}

// Wait blocks until n bytes may be read or ctx is done
func (l *Limiter) Wait(ctx context.Context, n int64) error {
	if l == nil {
		return nil
	}
	if n > l.bucketSize {
		n = l.bucketSize
	}

	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= n {
			l.tokens -= n
			l.mu.Unlock()
			return nil
		}
		deficit := n - l.tokens
		l.mu.Unlock()

		delay := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if delay < time.Millisecond {
			delay = time.Millisecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill must be called with l.mu held
func (l *Limiter) refill() {
	now := l.now()
	add := int64(now.Sub(l.lastRefill).Seconds() * float64(l.bytesPerSecond))
	if add <= 0 {
		return
	}
	l.tokens += add
	if l.tokens > l.bucketSize {
		l.tokens = l.bucketSize
	}
	l.lastRefill = now
}

// Wrap returns r throttled by the limiter. The signature matches
// hasher.ReaderWrapper.
func (l *Limiter) Wrap(ctx context.Context, r io.Reader) io.Reader {
	if l == nil {
		return r
	}
	return &reader{ctx: ctx, r: r, limiter: l}
}

type reader struct {
	ctx     context.Context
	r       io.Reader
	limiter *Limiter
}

// Read reserves len(p) tokens (capped at the bucket size) before reading;
// unused tokens are returned after a short read.
func (r *reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	want := int64(len(p))
	if want > r.limiter.bucketSize {
		want = r.limiter.bucketSize
		p = p[:want]
	}
	if err := r.limiter.Wait(r.ctx, want); err != nil {
		return 0, err
	}

	n, err := r.r.Read(p)
	if unused := want - int64(n); unused > 0 {
		r.limiter.mu.Lock()
		r.limiter.tokens += unused
		if r.limiter.tokens > r.limiter.bucketSize {
			r.limiter.tokens = r.limiter.bucketSize
		}
		r.limiter.mu.Unlock()
	}
	return n, err
}
