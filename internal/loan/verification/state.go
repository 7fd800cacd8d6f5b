package verification

import "time"

// State is one of Pending, Issued or Consumed.
type State interface {
	Name() string
	isState()
}

// Pending: the application exists but no code has been issued.
type Pending struct {
	ReceiptNumber string `json:"receiptNumber"`
}

// Issued: a code is outstanding until ExpiresAt.
type Issued struct {
	Code          string    `json:"code"`
	ExpiresAt     time.Time `json:"expiresAt"`
	ReceiptNumber string    `json:"receiptNumber"`
}

// Consumed: the code was used once and the receipt is unlocked.
type Consumed struct {
	ReceiptNumber string    `json:"receiptNumber"`
	ConsumedAt    time.Time `json:"consumedAt"`
}

func (Pending) Name() string  { return "pending" }
func (Issued) Name() string   { return "issued" }
func (Consumed) Name() string { return "consumed" }

func (Pending) isState()  {}
func (Issued) isState()   {}
func (Consumed) isState() {}

// Expired reports whether the code can no longer be used at now.
func (i Issued) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
