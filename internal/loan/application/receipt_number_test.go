package application

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceiptNumbers_Format(t *testing.T) {
	g := NewReceiptNumbers()
	g.now = func() time.Time { return time.UnixMilli(1760692200123) }

	assert.Equal(t, "GFN-1760692200123", g.Next())
	assert.Regexp(t, ReceiptNumberPattern, g.Next())
}

func TestReceiptNumbers_StrictlyIncreasingWithinSameMillisecond(t *testing.T) {
	g := NewReceiptNumbers()
	g.now = func() time.Time { return time.UnixMilli(1000) }

	assert.Equal(t, "GFN-1000", g.Next())
	assert.Equal(t, "GFN-1001", g.Next())
	assert.Equal(t, "GFN-1002", g.Next())
}

func TestReceiptNumbers_ClockGoingBackwards(t *testing.T) {
	g := NewReceiptNumbers()
	ms := int64(5000)
	g.now = func() time.Time { return time.UnixMilli(ms) }

	assert.Equal(t, "GFN-5000", g.Next())
	ms = 4000
	assert.Equal(t, "GFN-5001", g.Next())
}

func TestReceiptNumbers_ConcurrentUnique(t *testing.T) {
	g := NewReceiptNumbers()
	g.now = func() time.Time { return time.UnixMilli(42) }

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := g.Next()
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}
