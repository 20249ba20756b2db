// cmd/btreebench/main.go
// Command btreebench drives the in-memory B+-tree under concurrent
// insert/lookup load and reports throughput plus, for the HTM variant,
// its abort and fallback counters (spec section 6).
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"olctree/pkg/benchstat"
	"olctree/pkg/bptree"
	"olctree/pkg/bptree/htm"
	"olctree/pkg/treeconfig"
	"olctree/pkg/workload"
)

func main() {
	cmd := treeconfig.NewCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "btreebench:", err)
		os.Exit(1)
	}
}

func run(cfg treeconfig.Config) error {
	runID := uuid.New()
	fmt.Fprintf(os.Stderr, "btreebench: run=%s variant=%s threads=%d ops=%d percent_insert=%.2f htm_retry_max=%d weaved=%t htm_capable=%t\n",
		runID, cfg.Variant, cfg.NumThreads, cfg.Ops, cfg.PercentInsert, cfg.HTMRetryMax, cfg.Weaved, htm.Capable())

	if cfg.Variant == treeconfig.VariantSingle && cfg.NumThreads != 1 {
		return fmt.Errorf("btreebench: variant %q is not safe for concurrent use; rerun with numThreads=1", cfg.Variant)
	}

	tree, err := newTree(cfg)
	if err != nil {
		return err
	}
	metrics := benchstat.NewMetrics(string(cfg.Variant))

	workloads := workload.GenerateParallel(cfg.PercentInsert, cfg.Ops, cfg.NumThreads, cfg.Seed)

	var wg sync.WaitGroup
	start := time.Now()
	for _, ops := range workloads {
		wg.Add(1)
		go func(ops []workload.Operation) {
			defer wg.Done()
			runWorker(tree, ops, metrics)
		}(ops)
	}
	wg.Wait()
	elapsed := time.Since(start)

	treeOK := tree.CheckTree()
	if !treeOK {
		metrics.ObserveCheckFailure()
		fmt.Fprintln(os.Stderr, "btreebench: checkTree() failed after run")
	}

	fmt.Fprintf(os.Stderr, "btreebench: completed %d ops in %s (%.0f ops/sec)\n",
		cfg.Ops, elapsed, float64(cfg.Ops)/elapsed.Seconds())

	reportFallbacksAndRetries(tree, metrics)

	if closer, ok := tree.(interface{ Close() }); ok {
		closer.Close()
	}

	if err := metrics.WriteReport(os.Stdout); err != nil {
		return err
	}
	if !treeOK {
		return fmt.Errorf("btreebench: checkTree() invariant violated")
	}
	return nil
}

func runWorker(tree bptree.Tree[int64, int64], ops []workload.Operation, metrics *benchstat.Metrics) {
	var discard int64
	for _, op := range ops {
		started := time.Now()
		switch op.Type {
		case workload.OpInsert:
			tree.Insert(op.Key, op.Value)
			metrics.ObserveOp("insert", time.Since(started))
		case workload.OpLookup:
			tree.Lookup(op.Key, &discard)
			metrics.ObserveOp("lookup", time.Since(started))
		}
	}
}

func reportFallbacksAndRetries(tree bptree.Tree[int64, int64], metrics *benchstat.Metrics) {
	metrics.ObserveFallback("insert", tree.InsertFallbackTimes())
	metrics.ObserveFallback("lookup", tree.LookupFallbackTimes())
	metrics.ObserveRetryHistogram("insert", abortCauseName, tree.InsertRetries())
	metrics.ObserveRetryHistogram("lookup", abortCauseName, tree.LookupRetries())
}

func abortCauseName(i int) string {
	code := htm.AbortCode(i)
	switch code {
	case htm.AbortNone:
		return "none"
	case htm.AbortExplicit:
		return "explicit"
	case htm.AbortRetry:
		return "retry"
	case htm.AbortConflict:
		return "conflict"
	case htm.AbortCapacity:
		return "capacity"
	case htm.AbortDebug:
		return "debug"
	case htm.AbortNested:
		return "nested"
	case htm.AbortLockObserved:
		return "lock_observed"
	case htm.AbortObsoleteObserved:
		return "obsolete_observed"
	case htm.AbortUnknownNode:
		return "unknown_node"
	case htm.AbortSplitRequired:
		return "split_required"
	case htm.AbortReadValidationFailed:
		return "read_validation_failed"
	case htm.AbortWriteSetOverflow:
		return "write_set_overflow"
	case htm.AbortEmulatedAlwaysAbort:
		return "emulated_always_abort"
	case htm.AbortInterrupt:
		return "interrupt"
	case htm.AbortInit:
		return "init"
	case htm.AbortInstructionFault:
		return "instruction_fault"
	default:
		return "other"
	}
}

func newTree(cfg treeconfig.Config) (bptree.Tree[int64, int64], error) {
	switch cfg.Variant {
	case treeconfig.VariantSingle:
		return bptree.NewSingleThreadedTree[int64, int64](), nil
	case treeconfig.VariantOLC:
		return bptree.NewOLCTree[int64, int64](), nil
	case treeconfig.VariantHTM:
		return bptree.NewHTMTree[int64, int64](cfg.HTMRetryMax, cfg.Weaved), nil
	case treeconfig.VariantCoarse:
		return bptree.NewCoarseTree[int64, int64](), nil
	default:
		return nil, fmt.Errorf("%w: %q", treeconfig.ErrUnsupportedVariant, cfg.Variant)
	}
}
