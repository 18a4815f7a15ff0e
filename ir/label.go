package ir

import "github.com/sarchlab/akita/v4/sim"

// Label names a position in an instruction stream that control can be
// transferred to.
type Label string

// NoLabel marks the absence of a continuation.
const NoLabel Label = ""

// NewLabel returns a label whose name is unique within the process.
func NewLabel() Label {
	return Label(".L" + sim.GetIDGenerator().Generate())
}

func (l Label) String() string {
	return string(l)
}
