// Command estimate fits a hidden semi-Markov model to a dataset produced by
// the generate command, reports the fitted parameters and, when the dataset
// carries true states, the decoding error rate.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Aretrius/HMM/emissions"
	"github.com/Aretrius/HMM/hsmmlib"
)

func newEmission(kind string, ds *hsmmlib.Dataset) (hsmmlib.EmissionModel, error) {

	switch kind {
	case "categorical":
		return emissions.NewCategorical(ds.NState, ds.NSymbol, 1), nil
	case "gaussian":
		return emissions.NewGaussian(ds.NState, ds.EventShape), nil
	case "poisson":
		return emissions.NewPoisson(ds.NState, ds.EventShape), nil
	default:
		return nil, errors.Wrapf(hsmmlib.ErrConfiguration, "unknown emission kind %q", kind)
	}
}

func run(logger *zap.SugaredLogger) error {

	ds, err := hsmmlib.ReadDataset(viper.GetString("gobfile"))
	if err != nil {
		return err
	}

	em, err := newEmission(viper.GetString("emission"), ds)
	if err != nil {
		return err
	}

	model, err := hsmmlib.New(ds.NState, ds.MaxDur, hsmmlib.Semi, 1,
		em, hsmmlib.WithSeed(viper.GetUint64("seed")), hsmmlib.WithLogger(logger))
	if err != nil {
		return err
	}

	cfg := hsmmlib.FitConfig{
		Tol:             viper.GetFloat64("tol"),
		MaxIter:         viper.GetInt("maxiter"),
		NInit:           viper.GetInt("ninit"),
		PostConvIter:    viper.GetInt("postconviter"),
		SampleEmissions: viper.GetString("emission") != "categorical",
	}

	if err := model.Fit(ds.Data, ds.Lengths, nil, 0, cfg); err != nil {
		return err
	}

	llf, err := model.Score(ds.Data, ds.Lengths, false)
	if err != nil {
		return err
	}
	aic, err := model.IC(hsmmlib.AIC, ds.Data, ds.Lengths)
	if err != nil {
		return err
	}
	bic, err := model.IC(hsmmlib.BIC, ds.Data, ds.Lengths)
	if err != nil {
		return err
	}
	logger.Infow("fit complete", "llf", llf[0], "aic", aic, "bic", bic)

	if len(ds.States) == 0 {
		return nil
	}

	paths, err := model.Predict(ds.Data, "map", ds.Lengths)
	if err != nil {
		return err
	}

	bar := progressbar.New(len(paths))
	var e, n, off int
	for i, path := range paths {
		q, m := hsmmlib.CompareStates(path, ds.States[off:off+ds.Lengths[i]])
		e += q
		n += m
		off += ds.Lengths[i]
		_ = bar.Add(1)
	}
	fmt.Println()
	logger.Infow("state reconstruction", "errors", e, "positions", n,
		"rate", float64(e)/float64(n))

	return nil
}

func estimateCmd() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "fit an HSMM to a generated dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cf, _ := cmd.Flags().GetString("config"); cf != "" {
				viper.SetConfigFile(cf)
				if err := viper.ReadInConfig(); err != nil {
					return err
				}
			}
			if viper.GetString("gobfile") == "" {
				return errors.New("'gobfile' is a required argument")
			}

			zl, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer zl.Sync()

			return run(zl.Sugar())
		},
	}

	cmd.Flags().String("config", "", "Optional yaml config file")
	cmd.Flags().String("gobfile", "", "The data file")
	cmd.Flags().String("emission", "categorical", "Emission kind: categorical, gaussian, poisson")
	cmd.Flags().Float64("tol", 0.01, "Convergence tolerance")
	cmd.Flags().Int("maxiter", 50, "Maximum number of EM iterations")
	cmd.Flags().Int("ninit", 3, "Number of random restarts")
	cmd.Flags().Int("postconviter", 2, "Trailing window for the convergence test")
	cmd.Flags().Uint64("seed", 1, "Random seed")

	viper.SetEnvPrefix("hsmm")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}

	return cmd
}

func main() {
	if err := estimateCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
