package verify

import (
	"fmt"

	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/liveness"
	"github.com/sarchlab/tilecc/regalloc"
)

// RunLint performs static checks on an allocated stream. The stream must be
// the one the mapping was computed for, before no-op moves are dropped.
// Returns the issues found, or an empty list.
func RunLint(
	items []instr.Item,
	mapping *regalloc.Allocation,
	palette []ir.HardwareRegister,
) []Issue {
	var issues []Issue

	issues = append(issues, checkMapping(items, mapping, palette)...)

	labelIssues := checkLabels(items)
	issues = append(issues, labelIssues...)

	// Interference needs a well formed control flow.
	if len(labelIssues) == 0 {
		issues = append(issues, checkInterference(items, mapping)...)
	}

	return issues
}

func checkMapping(
	items []instr.Item,
	mapping *regalloc.Allocation,
	palette []ir.HardwareRegister,
) []Issue {
	var issues []Issue

	inPalette := make(map[ir.HardwareRegister]bool, len(palette))
	for _, h := range palette {
		inPalette[h] = true
	}

	reported := make(map[ir.Register]bool)
	for idx, item := range items {
		i, ok := item.(instr.Instruction)
		if !ok {
			continue
		}

		for _, r := range instr.Registers(i) {
			if reported[r] {
				continue
			}

			h, ok := mapping.Lookup(r)
			switch {
			case !ok:
				reported[r] = true
				issues = append(issues, Issue{
					Type:    IssueMapping,
					Index:   idx,
					Message: fmt.Sprintf("register %s of %q has no physical register", r, i),
					Details: map[string]interface{}{"register": r.String()},
				})

			case ir.IsHardware(r) && h != r:
				reported[r] = true
				issues = append(issues, Issue{
					Type:    IssueMapping,
					Index:   idx,
					Message: fmt.Sprintf("physical register %s is mapped to %s", r, h),
					Details: map[string]interface{}{"register": r.String(), "mapped": h.String()},
				})

			case !ir.IsHardware(r) && !inPalette[h]:
				reported[r] = true
				issues = append(issues, Issue{
					Type:    IssuePalette,
					Index:   idx,
					Message: fmt.Sprintf("register %s is mapped to %s outside the palette", r, h),
					Details: map[string]interface{}{"register": r.String(), "mapped": h.String()},
				})
			}
		}
	}

	return issues
}

func checkLabels(items []instr.Item) []Issue {
	var issues []Issue

	defined := make(map[ir.Label]int)
	for idx, item := range items {
		l, ok := item.(ir.Label)
		if !ok {
			continue
		}

		if prev, seen := defined[l]; seen {
			issues = append(issues, Issue{
				Type:    IssueLabel,
				Index:   idx,
				Message: fmt.Sprintf("label %s defined at %d and %d", l, prev, idx),
				Details: map[string]interface{}{"label": string(l), "first": prev},
			})
			continue
		}
		defined[l] = idx
	}

	for idx, item := range items {
		i, ok := item.(instr.Instruction)
		if !ok {
			continue
		}

		target, jumps := i.JumpTarget()
		if !jumps {
			continue
		}
		if _, ok := defined[target]; !ok {
			issues = append(issues, Issue{
				Type:    IssueLabel,
				Index:   idx,
				Message: fmt.Sprintf("%q jumps to undefined label %s", i, target),
				Details: map[string]interface{}{"label": string(target)},
			})
		}
	}

	return issues
}

func checkInterference(items []instr.Item, mapping *regalloc.Allocation) []Issue {
	var issues []Issue

	g := liveness.Analyze(items).Interference
	order := make(map[ir.Register]int, g.Len())
	for i, n := range g.Nodes() {
		order[n] = i
	}

	for _, a := range g.Nodes() {
		ha, ok := mapping.Lookup(a)
		if !ok {
			continue
		}

		for _, b := range g.Neighbors(a) {
			if order[b] < order[a] {
				continue
			}

			hb, ok := mapping.Lookup(b)
			if ok && ha == hb {
				issues = append(issues, Issue{
					Type:    IssueInterference,
					Index:   -1,
					Message: fmt.Sprintf("%s and %s are live together but share %s", a, b, ha),
					Details: map[string]interface{}{
						"first": a.String(), "second": b.String(), "physical": ha.String(),
					},
				})
			}
		}
	}

	return issues
}
