// Package pipeline provides a pipeline for processing streams of data.
//
// A pipeline is a graph of steps connected by channels. Each step runs in its own goroutine
// and pushes its results to the next step, so no other synchronisation is needed between
// steps. The package offers root steps (producers), one-to-one and filter steps, trailing
// edge debounce steps, mergers and sinks.
//
// The pipeline stops on the first error returned by a step: every other step is cancelled
// and Run returns the error once all of them have returned. Cancelling the context given to
// New, or calling Cancel, stops every step the same way but Run returns nil.
//
// Options implementing model.PipelineOption observe the pipeline while it is built and while
// it runs; the measure and drawer packages provide such options.
package pipeline
