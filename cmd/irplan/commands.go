package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/irplan/internal/config"
	"github.com/ayusman/irplan/internal/geometry"
	"github.com/ayusman/irplan/internal/gesture"
	"github.com/ayusman/irplan/internal/pointer"
)

func newImportCmd(load loadFunc) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <category> <file.csv>",
		Short: "Load training values for a category into the database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, path := args[0], args[1]
			if _, err := gesture.ParseCategory(category); err != nil {
				return err
			}

			cfg, err := load()
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := openStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			repo := st.Training()
			if replace {
				if err := repo.Delete(category); err != nil {
					return err
				}
			}

			n, err := repo.ImportCSV(category, f)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			total, err := repo.Count(category)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s values (%d total)\n", n, category, total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "delete existing values for the category first")
	return cmd
}

func newTrainCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the shake classifier and report its training accuracy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			var src gesture.CorpusSource
			if cfg.Gesture.Source == config.SourceCSV {
				src = gesture.CSVSource{Dir: cfg.Gesture.CSVDir}
			} else {
				st, err := openStore(cfg.Store.Path)
				if err != nil {
					return err
				}
				defer st.Close()
				src = st.Training()
			}

			corpus, err := gesture.LoadCorpus(src)
			if err != nil {
				return err
			}
			return train(cmd.OutOrStdout(), corpus)
		},
	}
}

// train fits a classifier on corpus and writes the per-category counts
// and the accuracy on the balanced training set to w.
func train(w io.Writer, corpus gesture.Corpus) error {
	for _, c := range gesture.Categories {
		fmt.Fprintf(w, "%-8s %d values\n", c, len(corpus[c]))
	}

	c := gesture.New()
	if err := c.Train(corpus); err != nil {
		return err
	}

	values, labels, perClass, err := gesture.Balance(corpus)
	if err != nil {
		return err
	}
	score, err := c.Model().Score(values, labels)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "trained on %d per category, %d support vectors, accuracy %.3f\n",
		perClass, c.Model().SupportVectors(), score)
	return nil
}

func newMapCmd(load loadFunc) *cobra.Command {
	var width, height float64

	cmd := &cobra.Command{
		Use:   "map <x,y> <x,y> <x,y> <x,y>",
		Short: "Map four blob positions to a display coordinate",
		Long: `map runs one frame through the homography without smoothing and prints
the display coordinate of the boresight. Blobs are given in sensor space.`,
		Args: cobra.ExactArgs(pointer.RequiredBlobs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if width > 0 {
				cfg.Display.Width = width
			}
			if height > 0 {
				cfg.Display.Height = height
			}

			blobs := make([]pointer.Blob, len(args))
			for i, arg := range args {
				p, err := parsePair(arg)
				if err != nil {
					return err
				}
				blobs[i] = pointer.Blob{X: p.X, Y: p.Y, Size: 1}
			}

			m := pointer.NewMapper(pointer.Config{
				Width:     cfg.Display.Width,
				Height:    cfg.Display.Height,
				InvertY:   cfg.Display.InvertY,
				Boresight: geometry.Point2D{X: cfg.Display.BoresightX, Y: cfg.Display.BoresightY},
			})
			p, err := m.Raw(blobs)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%.2f %.2f\n", p.X, p.Y)
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "display width (default from config)")
	cmd.Flags().Float64Var(&height, "height", 0, "display height (default from config)")
	return cmd
}

// parsePair parses "x,y".
func parsePair(s string) (geometry.Point2D, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geometry.Point2D{}, fmt.Errorf("invalid point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geometry.Point2D{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geometry.Point2D{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return geometry.Point2D{X: x, Y: y}, nil
}
