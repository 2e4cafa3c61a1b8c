// Package operations runs multi-step dataset workflows.
//
// A Step is one unit of work (load metadata, aggregate labels, export a
// table). Steps declare the steps they depend on; the Registry orders them
// topologically, keeping registration order among independent steps, and
// the Runner executes them sequentially against a shared OperationState.
// The first failing step stops the run and every later step is marked
// skipped.
//
// Example usage:
//
//	registry := operations.NewRegistry()
//	registry.Register(operations.NewStep("meta", "Load metadata", nil, loadMeta))
//	registry.Register(operations.NewStep("labels", "Aggregate labels", []string{"meta"}, addLabels))
//
//	runner := operations.NewRunner(registry, logger)
//	state, err := runner.Run(ctx, "pipeline")
package operations
