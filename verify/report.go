package verify

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nikandfor/errors"

	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/regalloc"
)

// VerificationReport represents a complete verification report of one
// function
type VerificationReport struct {
	Name          string
	ItemCount     int
	LintIssues    []Issue
	SimulationErr error
	SimulationOK  bool
	Result        int64
	Steps         int
}

// GenerateReport runs both lint and functional simulation, returns a
// report. allocated is the stream the mapping was computed for.
func GenerateReport(
	name string,
	allocated []instr.Item,
	mapping *regalloc.Allocation,
	palette []ir.HardwareRegister,
	maxSimSteps int,
) *VerificationReport {
	report := &VerificationReport{
		Name:      name,
		ItemCount: len(allocated),
	}

	report.LintIssues = RunLint(allocated, mapping, palette)

	fs := NewFunctionalSimulator(mapping.Apply(allocated))
	report.SimulationErr = fs.Run(maxSimSteps)
	report.SimulationOK = report.SimulationErr == nil
	report.Result = fs.Result()
	report.Steps = fs.Steps()

	return report
}

// Passed tells if lint found nothing and the simulation returned.
func (r *VerificationReport) Passed() bool {
	return len(r.LintIssues) == 0 && r.SimulationOK
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "VERIFICATION REPORT: %s\n", r.Name)
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "\n✓ Checked %d stream items\n", r.ItemCount)

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 1: STATIC LINT CHECKS")
	fmt.Fprintln(w, separator)

	if len(r.LintIssues) == 0 {
		fmt.Fprintln(w, "✓ No lint issues found!")
	} else {
		fmt.Fprintf(w, "⚠ Found %d lint issues:\n\n", len(r.LintIssues))

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Type", "Index", "Message"})
		for _, issue := range r.LintIssues {
			t.AppendRow(table.Row{issue.Type, issue.Index, issue.Message})
		}
		t.Render()
	}

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 2: FUNCTIONAL SIMULATION")
	fmt.Fprintln(w, separator)

	if r.SimulationOK {
		fmt.Fprintf(w, "✓ Returned %d after %d steps\n", r.Result, r.Steps)
	} else {
		fmt.Fprintf(w, "⚠ Simulation error: %v\n", r.SimulationErr)
	}

	fmt.Fprintln(w, "\n"+separator)
	if r.Passed() {
		fmt.Fprintln(w, "✓ PASSED ALL CHECKS")
	} else {
		fmt.Fprintln(w, "⚠ CHECKS FAILED")
	}
	fmt.Fprintln(w)
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create report file")
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
