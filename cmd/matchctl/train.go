package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"care-match/internal/model"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a linear model on JSON-lines samples and write a model artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

		in, out := viper.GetString("train.in"), viper.GetString("train.out")
		if in == "" || out == "" {
			return errors.New("--in and --out are required")
		}

		samples, err := readSamples(in)
		if err != nil {
			return err
		}
		artifact, err := model.FitLinear(samples, viper.GetFloat64("train.lambda"), viper.GetString("train.version"))
		if err != nil {
			return err
		}
		reg, err := artifact.Regressor()
		if err != nil {
			return err
		}
		mse, err := model.MeanSquaredError(reg, samples)
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create artifact: %w", err)
		}
		defer f.Close()
		if err := model.Encode(f, artifact); err != nil {
			return err
		}

		logger.Info("model trained",
			zap.String("version", artifact.Version),
			zap.Int("samples", len(samples)),
			zap.Float64("train_mse", mse),
			zap.String("artifact", out),
		)
		return nil
	},
}

func readSamples(path string) ([]model.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer f.Close()

	var samples []model.Sample
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var s model.Sample
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode sample %d: %w", len(samples)+1, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringP("in", "i", "", "JSON-lines samples produced by synthesize")
	trainCmd.Flags().StringP("out", "o", "", "artifact output path")
	trainCmd.Flags().Float64("lambda", 1.0, "ridge regularisation strength")
	trainCmd.Flags().String("version", "linear-v1", "model version recorded in the artifact")

	viper.BindPFlag("train.in", trainCmd.Flags().Lookup("in"))
	viper.BindPFlag("train.out", trainCmd.Flags().Lookup("out"))
	viper.BindPFlag("train.lambda", trainCmd.Flags().Lookup("lambda"))
	viper.BindPFlag("train.version", trainCmd.Flags().Lookup("version"))
}
