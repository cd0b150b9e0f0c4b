// Package pipeline runs typed channel pipelines.
//
// A pipeline is built from a root step producing elements, intermediate steps transforming them,
// splitters broadcasting them to several branches, mergers joining branches and sinks consuming
// them. Every step runs in its own goroutines and hands elements to the next step through a
// channel. Steps can run several workers with StepConcurrency.
//
// Nothing runs until Run is called. Run returns the first error raised by any step and cancels the
// others.
//
// Options implementing model.PipelineOption observe the pipeline: the measure package records
// durations per step and the drawer package writes a DOT graph of the run.
package pipeline
