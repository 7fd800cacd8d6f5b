package application

import (
	"fmt"
	"regexp"
	"sync"
	"time"
)

// ReceiptNumberPattern matches every receipt number this service issues.
var ReceiptNumberPattern = regexp.MustCompile(`^GFN-\d+$`)

// ReceiptNumbers issues "GFN-<epochMillis>" references that strictly increase within
// the process even when two requests land in the same millisecond. Uniqueness across
// processes is enforced by the receipt_number UNIQUE constraint.
type ReceiptNumbers struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewReceiptNumbers() *ReceiptNumbers {
	return &ReceiptNumbers{now: time.Now}
}

func (g *ReceiptNumbers) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("GFN-%d", ms)
}
