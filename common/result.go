package common

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// OperationResult is the outcome of one modify run.
type OperationResult struct {
	Applied bool
	// Reason explains why nothing was written. Empty when Applied.
	Reason string

	Input      string
	Output     string
	OutputSize uint64
	// Resized is the number of sections whose size changed.
	Resized int
}

// NewSkipped creates a result for a run that did not produce an output.
func NewSkipped(input, reason string) *OperationResult {
	return &OperationResult{Input: input, Reason: reason}
}

// NewApplied creates a result for a run that wrote output.
func NewApplied(input, output string, outputSize uint64, resized int) *OperationResult {
	return &OperationResult{
		Applied:    true,
		Input:      input,
		Output:     output,
		OutputSize: outputSize,
		Resized:    resized,
	}
}

func (r *OperationResult) String() string {
	if !r.Applied {
		return fmt.Sprintf("SKIPPED %s (%s)", r.Input, r.Reason)
	}
	return fmt.Sprintf("APPLIED %s -> %s (%s, %d sections resized)",
		r.Input, r.Output, humanize.IBytes(r.OutputSize), r.Resized)
}
