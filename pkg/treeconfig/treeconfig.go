// pkg/treeconfig/treeconfig.go
// Package treeconfig parses the benchmark driver's command line: two
// required positional arguments plus a handful of optional flags,
// entirely via github.com/spf13/cobra and github.com/spf13/pflag — no
// environment variables, per spec section 6.
package treeconfig

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// Variant names the synchronization strategy to benchmark.
type Variant string

const (
	VariantSingle Variant = "single"
	VariantOLC    Variant = "olc"
	VariantHTM    Variant = "htm"
	VariantCoarse Variant = "coarse"
)

var (
	// ErrBadThreadCount is returned when numThreads is not a positive
	// integer.
	ErrBadThreadCount = errors.New("treeconfig: numThreads must be a positive integer")
	// ErrBadPercentInsert is returned when percentInsert is not in [0,1].
	ErrBadPercentInsert = errors.New("treeconfig: percentInsert must be between 0 and 1")
	// ErrUnsupportedVariant is returned for an unrecognized --variant value.
	ErrUnsupportedVariant = errors.New("treeconfig: unsupported variant")
)

// Config is the fully validated set of parameters one benchmark run
// needs. The two fields without defaults (NumThreads, PercentInsert) are
// spec.md section 6's required positional arguments; everything else is
// an optional flag recovered from original_source/BTreeOLC/BTreeTest.cpp's
// several hand-edited main() variants.
type Config struct {
	NumThreads    int
	PercentInsert float64
	Variant       Variant
	Ops           int
	Seed          uint64
	Weaved        bool
	HTMRetryMax   int
}

func (c Config) validate() error {
	if c.NumThreads <= 0 {
		return ErrBadThreadCount
	}
	if c.PercentInsert < 0 || c.PercentInsert > 1 {
		return ErrBadPercentInsert
	}
	switch c.Variant {
	case VariantSingle, VariantOLC, VariantHTM, VariantCoarse:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedVariant, c.Variant)
	}
	if c.Ops <= 0 {
		return fmt.Errorf("treeconfig: --ops must be positive, got %d", c.Ops)
	}
	if c.HTMRetryMax < 0 {
		return errors.New("treeconfig: --htm-retry-max must not be negative")
	}
	return nil
}

// NewCommand builds the btreebench root command. run is invoked once
// with a validated Config after cobra has parsed and checked the
// command line; NewCommand itself never calls os.Exit, matching the
// teacher's cmd/freyja pattern of keeping Execute() as the only exit
// point.
func NewCommand(run func(Config) error) *cobra.Command {
	cfg := Config{
		Variant:     VariantOLC,
		Ops:         100_000,
		Seed:        1,
		HTMRetryMax: 8,
	}

	cmd := &cobra.Command{
		Use:   "btreebench <numThreads> <percentInsert>",
		Short: "Benchmark the in-memory B+-tree under concurrent load",
		Long: `btreebench drives a configurable number of worker goroutines against
one of the tree's synchronization variants with a generated insert/lookup
workload, then reports throughput and (for the HTM variant) its abort and
fallback counters.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			numThreads, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", ErrBadThreadCount, args[0])
			}
			percentInsert, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrBadPercentInsert, args[1])
			}
			cfg.NumThreads = numThreads
			cfg.PercentInsert = percentInsert
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar((*string)(&cfg.Variant), "variant", string(cfg.Variant),
		"synchronization variant: single, olc, htm, or coarse")
	cmd.Flags().IntVar(&cfg.Ops, "ops", cfg.Ops, "total operations across all threads")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "base PRNG seed for workload generation")
	cmd.Flags().BoolVar(&cfg.Weaved, "weaved", cfg.Weaved, "allow the HTM variant to interleave fallback mid-operation")
	cmd.Flags().IntVar(&cfg.HTMRetryMax, "htm-retry-max", cfg.HTMRetryMax, "HTM transaction retries after the first attempt before falling back to the latched path (0 skips HTM entirely)")

	return cmd
}
