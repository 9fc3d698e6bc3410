package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/dataset"
	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/logger"
)

func genCmd() *cli.Command {
	var (
		outDir   string
		samples  int64
		frames   int64
		vocab    int64
		queryLen int64
		genSeed  int64
		genVDim  int64
	)

	return &cli.Command{
		Name:  "gen",
		Usage: "Generate a synthetic dataset for smoke runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Usage:       "output directory",
				Value:       "data",
				Destination: &outDir,
			},
			&cli.Int64Flag{
				Name:        "samples",
				Usage:       "total sample count",
				Value:       200,
				Destination: &samples,
			},
			&cli.Int64Flag{
				Name:        "frames",
				Usage:       "video frames per sample",
				Value:       48,
				Destination: &frames,
			},
			&cli.Int64Flag{
				Name:        "vocab",
				Usage:       "vocabulary size",
				Value:       200,
				Destination: &vocab,
			},
			&cli.Int64Flag{
				Name:        "query-len",
				Usage:       "tokens per query",
				Value:       8,
				Destination: &queryLen,
			},
			&cli.Int64Flag{
				Name:        "video-dim",
				Usage:       "video feature dimension",
				Value:       128,
				Destination: &genVDim,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "random seed",
				Value:       12345,
				Destination: &genSeed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			all := dataset.Synthetic(dataset.SyntheticConfig{
				Samples:   int(samples),
				VocabSize: int(vocab),
				QueryLen:  int(queryLen),
				Frames:    int(frames),
				VideoDim:  int(genVDim),
				Seed:      genSeed,
			})
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}

			// 70/15/15 split
			nTrain := len(all) * 70 / 100
			nVal := len(all) * 15 / 100
			splits := map[string][]dataset.Sample{
				"train.json": all[:nTrain],
				"val.json":   all[nTrain : nTrain+nVal],
				"test.json":  all[nTrain+nVal:],
			}
			for name, set := range splits {
				path := filepath.Join(outDir, name)
				if err := dataset.Save(path, set); err != nil {
					return err
				}
				log.Info("wrote dataset", "path", path, "samples", len(set))
			}
			return nil
		},
	}
}
