// Package verify provides debugging tools that check the output of the
// backend.
//
// This package implements two complementary stages:
//
// 1. Lint (lint.go): static checks of an allocated stream
//   - MAPPING checks: every register has a physical register, physical
//     registers keep their own
//   - PALETTE checks: virtual registers only receive palette registers
//   - INTERFERENCE checks: registers live at the same time never share a
//     physical register
//   - LABEL checks: labels are defined once and every jump lands on one
//
// 2. Functional simulator (funcsim.go): a small interpreter for the
// instruction subset the catalogue emits
//   - Executes a stream with registers and memory modeled as maps
//   - Poisons caller-saved registers at calls
//   - Useful to compare a stream before and after allocation
//
// # Usage Example
//
//	res := backend.Compile(body, f)
//
//	issues := verify.RunLint(res.Allocated, res.Mapping, target.Palette)
//	if len(issues) > 0 {
//	    for _, issue := range issues {
//	        log.Printf("[%s] %d: %s", issue.Type, issue.Index, issue.Message)
//	    }
//	    panic("lint found issues")
//	}
//
//	sim := verify.NewFunctionalSimulator(res.Physical())
//	if err := sim.Run(10000); err != nil {
//	    panic(err)
//	}
//	fmt.Println(sim.Result())
//
// # Limitations
//
// - Memory is word addressed by byte offsets; partial overlaps are not
// modeled
// - Flags are only produced by cmp
// - Calls must be registered with WithCall
package verify

// IssueType categorizes lint issues
type IssueType string

const (
	IssueMapping      IssueType = "MAPPING"
	IssuePalette      IssueType = "PALETTE"
	IssueInterference IssueType = "INTERFERENCE"
	IssueLabel        IssueType = "LABEL"
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType              // Category of the issue
	Index   int                    // Position in the stream or -1
	Message string                 // Human-readable description
	Details map[string]interface{} // Additional structured data
}
