// Package verification gates receipt download behind a code distributed by a loan officer.
package verification

import (
	"context"
)

// Gate decides whether a candidate code unlocks the receipt for an application.
type Gate interface {
	Mode() string
	Verify(ctx context.Context, receiptNumber, candidate string) (bool, error)
}

// staticCodes is the fixed table loan officers hand out. Membership is exact,
// case-sensitive string equality.
var staticCodes = [...]string{
	"102388", "104098", "114798", "120034", "123456", "128280", "142763", "166035", "179511", "187236",
	"199162", "237316", "263296", "263325", "282628", "283859", "287163", "319267", "345049", "365065",
	"398235", "401003", "403538", "407561", "412851", "417667", "428397", "431933", "435651", "436023",
	"436168", "441671", "450812", "472968", "493117", "502621", "520647", "538518", "558839", "559385",
	"559429", "562705", "563131", "567275", "576063", "587070", "589309", "600754", "602762", "614296",
	"618443", "621085", "635917", "636671", "642233", "643043", "651769", "661795", "663262", "667022",
	"670575", "696806", "703000", "703719", "708972", "713664", "715795", "716944", "727587", "747073",
	"750696", "751591", "755683", "781035", "787661", "791173", "792559", "793264", "803742", "808690",
	"814442", "837040", "838308", "843195", "846460", "852244", "855820", "885092", "887739", "915573",
	"918088", "922641", "947199", "969349", "981018", "983872", "985832", "988930", "990356", "991026",
}

// AllowlistGate accepts any code from the fixed table. Codes are not bound to an
// application, never expire and may be reused.
type AllowlistGate struct {
	codes map[string]struct{}
}

func NewAllowlistGate() *AllowlistGate {
	return NewAllowlistGateWithCodes(staticCodes[:])
}

// NewAllowlistGateWithCodes builds a gate over a custom table.
func NewAllowlistGateWithCodes(codes []string) *AllowlistGate {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return &AllowlistGate{codes: m}
}

// SubmitCode reports whether candidate is in the table.
func (g *AllowlistGate) SubmitCode(candidate string) bool {
	_, ok := g.codes[candidate]
	return ok
}

func (g *AllowlistGate) Size() int {
	return len(g.codes)
}

func (g *AllowlistGate) Mode() string {
	return "allowlist"
}

func (g *AllowlistGate) Verify(_ context.Context, _ string, candidate string) (bool, error) {
	return g.SubmitCode(candidate), nil
}
