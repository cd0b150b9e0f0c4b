// Package model holds the types shared by the pipeline engine and its options: step descriptions,
// typed step outputs and the PipelineOption hooks.
package model
