package features

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-mlprep/pkg/logging"
	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// SplitConfig controls the size and the randomness of the validation split.
type SplitConfig struct {
	Validation  float64 `mapstructure:"validation" yaml:"validation"`
	RandomState int64   `mapstructure:"random_state" yaml:"random_state"`
}

// Validate checks the validation fraction lies in (0, 1).
func (c SplitConfig) Validate() error {
	if !(c.Validation > 0 && c.Validation < 1) {
		return &mlerr.ConfigError{
			Field:  "split.validation",
			Value:  fmt.Sprint(c.Validation),
			Reason: "must lie in (0, 1), got",
		}
	}

	return nil
}

// Split holds paired train and validation subsets. The indexes point to rows of the input table.
type Split struct {
	TrainFeatures dataframe.DataFrame
	ValFeatures   dataframe.DataFrame
	TrainTarget   series.Series
	ValTarget     series.Series
	TrainIndex    []int
	ValIndex      []int
}

// SplitData partitions features and target into train and validation sets, keeping the class
// proportions of target in both. The same configuration always yields the same partition.
func SplitData(ctx context.Context, features dataframe.DataFrame, target series.Series, cfg SplitConfig) (*Split, error) {
	logger := logging.FromContext(ctx)
	logger.Debug("splitting the dataset", zap.Float64("validation", cfg.Validation), zap.Int64("random_state", cfg.RandomState))

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid split configuration", zap.Error(err))

		return nil, err
	}

	if features.Nrow() != target.Len() {
		err := mlerr.NewConfigError("split", fmt.Sprintf("%d feature rows for %d target values", features.Nrow(), target.Len()))
		logger.Error("features and target are not paired", zap.Error(err))

		return nil, err
	}

	for i, na := range target.IsNaN() {
		if na {
			err := mlerr.NewConfigError("split", fmt.Sprintf("target %s is missing at row %d", target.Name, i))
			logger.Error("unable to stratify on a missing target", zap.Error(err))

			return nil, err
		}
	}

	trainIdx, valIdx, err := StratifiedIndexes(target.Records(), cfg)
	if err != nil {
		logger.Error("unable to split the dataset", zap.Error(err))

		return nil, err
	}

	split := &Split{
		TrainFeatures: features.Subset(trainIdx),
		ValFeatures:   features.Subset(valIdx),
		TrainTarget:   target.Subset(trainIdx),
		ValTarget:     target.Subset(valIdx),
		TrainIndex:    trainIdx,
		ValIndex:      valIdx,
	}

	for _, e := range []error{split.TrainFeatures.Err, split.ValFeatures.Err, split.TrainTarget.Err, split.ValTarget.Err} {
		if e != nil {
			logger.Error("unable to subset rows", zap.Error(e))

			return nil, errors.Wrap(e, "unable to subset rows")
		}
	}

	logger.Debug("dataset split", zap.Int("train", len(trainIdx)), zap.Int("validation", len(valIdx)))

	return split, nil
}

// StratifiedIndexes returns shuffled train and validation row indexes for labels.
//
// The validation set holds ceil(Validation*n) rows. Each class needs at least two members so it can
// appear on both sides.
func StratifiedIndexes(labels []string, cfg SplitConfig) ([]int, []int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	n := len(labels)
	nVal := int(math.Ceil(cfg.Validation * float64(n)))
	nTrain := n - nVal

	classes, members := groupByClass(labels)

	counts := make([]int, len(classes))
	for i, idx := range members {
		counts[i] = len(idx)
		if counts[i] < 2 {
			return nil, nil, errors.Wrapf(mlerr.ErrStratify,
				"class %q has %d member, at least 2 are required", classes[i], counts[i])
		}
	}

	if nTrain < len(classes) || nVal < len(classes) {
		return nil, nil, errors.Wrapf(mlerr.ErrStratify,
			"train size %d and validation size %d must both be at least the number of classes %d", nTrain, nVal, len(classes))
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.RandomState), uint64(cfg.RandomState)^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible split

	trainCounts := approximateMode(counts, nTrain)

	remaining := make([]int, len(counts))
	for i := range counts {
		remaining[i] = counts[i] - trainCounts[i]
	}

	valCounts := approximateMode(remaining, nVal)

	train := make([]int, 0, nTrain)
	val := make([]int, 0, nVal)

	for i, idx := range members {
		perm := rng.Perm(len(idx))
		for _, p := range perm[:trainCounts[i]] {
			train = append(train, idx[p])
		}

		for _, p := range perm[trainCounts[i] : trainCounts[i]+valCounts[i]] {
			val = append(val, idx[p])
		}
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(val), func(i, j int) { val[i], val[j] = val[j], val[i] })

	return train, val, nil
}

// groupByClass returns the sorted distinct labels and, for each, its row indexes in order.
func groupByClass(labels []string) ([]string, [][]int) {
	byLabel := make(map[string][]int)
	for i, label := range labels {
		byLabel[label] = append(byLabel[label], i)
	}

	classes := make([]string, 0, len(byLabel))
	for label := range byLabel {
		classes = append(classes, label)
	}

	sort.Strings(classes)

	members := make([][]int, len(classes))
	for i, label := range classes {
		members[i] = byLabel[label]
	}

	return classes, members
}

// approximateMode spreads draws over classes proportionally to counts, handing the rounding
// leftovers to the largest remainders. Ties go to the first class.
func approximateMode(counts []int, draws int) []int {
	total := 0
	for _, c := range counts {
		total += c
	}

	allocated := make([]int, len(counts))
	remainders := make([]float64, len(counts))
	assigned := 0

	for i, c := range counts {
		exact := float64(draws) * float64(c) / float64(total)
		allocated[i] = int(math.Floor(exact))
		remainders[i] = exact - float64(allocated[i])
		assigned += allocated[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})

	for need := draws - assigned; need > 0; {
		progressed := false

		for _, i := range order {
			if need == 0 {
				break
			}

			if allocated[i] < counts[i] {
				allocated[i]++
				need--
				progressed = true
			}
		}

		if !progressed {
			break
		}
	}

	return allocated
}
