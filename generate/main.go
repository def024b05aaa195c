// Command generate simulates sequences from a hidden semi-Markov model with
// known parameters and writes them as a gob dataset for the estimate
// command.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Aretrius/HMM/emissions"
	"github.com/Aretrius/HMM/hsmmlib"
)

type genConfig struct {
	outname  string
	emission string
	nstate   int
	maxdur   int
	nsymbol  int
	ncomp    int
	nseq     int
	seqlen   int
	seed     uint64
	snr      float64
}

// trueParams builds a diagonal-heavy parameter set: uniform initial states,
// uniform off-diagonal transitions, and a geometrically decaying duration
// row per state.
func trueParams(nstate, maxdur int) *hsmmlib.ModelParams {

	par := &hsmmlib.ModelParams{
		Pi:     make([]float64, nstate),
		A:      make([]float64, nstate*nstate),
		D:      make([]float64, nstate*maxdur),
		NState: nstate,
		MaxDur: maxdur,
		Kind:   hsmmlib.Semi,
	}

	for j := 0; j < nstate; j++ {
		par.Pi[j] = -math.Log(float64(nstate))
		for k := 0; k < nstate; k++ {
			if j == k {
				par.A[j*nstate+k] = math.Inf(-1)
			} else {
				par.A[j*nstate+k] = -math.Log(float64(nstate - 1))
			}
		}

		var tot float64
		for d := 0; d < maxdur; d++ {
			tot += math.Pow(0.6, float64(d))
		}
		for d := 0; d < maxdur; d++ {
			par.D[j*maxdur+d] = float64(d)*math.Log(0.6) - math.Log(tot)
		}
	}

	return par
}

func newEmission(cfg *genConfig) (hsmmlib.EmissionModel, error) {

	switch cfg.emission {
	case "categorical":
		return emissions.NewCategorical(cfg.nstate, cfg.nsymbol, 1), nil
	case "gaussian":
		return emissions.NewGaussian(cfg.nstate, cfg.ncomp), nil
	case "poisson":
		return emissions.NewPoisson(cfg.nstate, cfg.ncomp), nil
	default:
		return nil, fmt.Errorf("generate: unknown emission kind %q", cfg.emission)
	}
}

// setTrueEmission overwrites the sampled emission parameters with
// well-separated true values.
func setTrueEmission(em hsmmlib.EmissionModel, cfg *genConfig) {

	switch e := em.(type) {
	case *emissions.Categorical:
		for j := 0; j < cfg.nstate; j++ {
			for k := 0; k < cfg.nsymbol; k++ {
				if k == j%cfg.nsymbol {
					e.Logits[j*cfg.nsymbol+k] = math.Log(0.8)
				} else {
					e.Logits[j*cfg.nsymbol+k] = math.Log(0.2 / float64(cfg.nsymbol-1))
				}
			}
		}
	case *emissions.Gaussian:
		for j := 0; j < cfg.nstate; j++ {
			for q := 0; q < cfg.ncomp; q++ {
				e.Mean[j*cfg.ncomp+q] = cfg.snr * float64(j)
				e.Std[j*cfg.ncomp+q] = 1
			}
		}
	case *emissions.Poisson:
		for j := 0; j < cfg.nstate; j++ {
			for q := 0; q < cfg.ncomp; q++ {
				e.Lambda[j*cfg.ncomp+q] = cfg.snr * float64(j+1)
			}
		}
	}
}

func run(cfg *genConfig, logger *zap.SugaredLogger) error {

	em, err := newEmission(cfg)
	if err != nil {
		return err
	}

	model, err := hsmmlib.New(cfg.nstate, cfg.maxdur, hsmmlib.Semi, 1,
		em, hsmmlib.WithSeed(cfg.seed), hsmmlib.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := model.SetParams(trueParams(cfg.nstate, cfg.maxdur)); err != nil {
		return err
	}
	setTrueEmission(em, cfg)

	p := em.EventShape()
	ds := &hsmmlib.Dataset{
		Lengths:    make([]int, cfg.nseq),
		EventShape: p,
		NState:     cfg.nstate,
		MaxDur:     cfg.maxdur,
		NSymbol:    cfg.nsymbol,
	}

	for i := 0; i < cfg.nseq; i++ {
		states, data := model.Sample(cfg.seqlen)
		ds.States = append(ds.States, states...)
		ds.Data = append(ds.Data, data...)
		ds.Lengths[i] = cfg.seqlen
	}

	if err := hsmmlib.WriteDataset(cfg.outname, ds); err != nil {
		return err
	}
	logger.Infow("dataset written", "file", cfg.outname,
		"sequences", cfg.nseq, "samples", cfg.nseq*cfg.seqlen)

	return nil
}

func generateCmd() *cobra.Command {

	cfg := &genConfig{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "simulate sequences from a known HSMM",
		RunE: func(_ *cobra.Command, _ []string) error {
			if cfg.outname == "" {
				return fmt.Errorf("'outname' is a required argument")
			}

			zl, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer zl.Sync()

			return run(cfg, zl.Sugar())
		},
	}

	cmd.Flags().StringVar(&cfg.outname, "outname", "", "Output file name")
	cmd.Flags().StringVar(&cfg.emission, "emission", "categorical", "Emission kind: categorical, gaussian, poisson")
	cmd.Flags().IntVar(&cfg.nstate, "nstate", 3, "Number of states")
	cmd.Flags().IntVar(&cfg.maxdur, "maxdur", 5, "Maximum sojourn duration")
	cmd.Flags().IntVar(&cfg.nsymbol, "nsymbol", 4, "Number of symbols (categorical)")
	cmd.Flags().IntVar(&cfg.ncomp, "ncomp", 1, "Components per emission (gaussian, poisson)")
	cmd.Flags().IntVar(&cfg.nseq, "nseq", 10, "Number of sequences")
	cmd.Flags().IntVar(&cfg.seqlen, "seqlen", 200, "Length of each sequence")
	cmd.Flags().Uint64Var(&cfg.seed, "seed", 1, "Random seed")
	cmd.Flags().Float64Var(&cfg.snr, "snr", 4, "Separation of the emission means")

	return cmd
}

func main() {
	if err := generateCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
