// Package batch sends many prompts through one target with bounded
// concurrency.
//
// Each prompt is rendered and dispatched independently, so a failure or a
// slow reply only affects its own slot:
//
//	runner := batch.NewRunner(tgt, batch.WithConcurrency(8))
//	summary, err := runner.Run(ctx, prompts)
//
// Results come back in input order together with latency percentiles.
package batch
