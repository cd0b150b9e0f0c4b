// Package transform turns feature tables into numeric matrices: imputers, scalers, kernel PCA and
// categorical encoders, grouped into stages and assembled into a Plan fitted on training rows.
package transform

import (
	"context"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-mlprep/pkg/logging"
	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// Plan routes disjoint numeric and categorical column groups through their own stage and
// concatenates the results, numeric block first.
type Plan struct {
	numeric     []string
	categorical []string

	numImputer *NumericImputer
	catImputer *CategoricalImputer
	num        *NumericStage
	cat        *CategoricalStage

	dropUnclaimed bool
	fitted        bool
}

// PlanOption configures a Plan.
type PlanOption func(*Plan)

// DropUnclaimed lets Fit ignore table columns that belong to neither group.
func DropUnclaimed() PlanOption {
	return func(p *Plan) {
		p.dropUnclaimed = true
	}
}

// WithFillValue sets the value used by the Constant imputer. It defaults to 0.
func WithFillValue(v float64) PlanOption {
	return func(p *Plan) {
		p.numImputer.FillValue = v
	}
}

// Assemble returns an unfitted plan. A nil stage is accepted only for an empty group.
func Assemble(
	categorical, numeric []string,
	numImputer ImputeStrategy,
	num *NumericStage,
	cat *CategoricalStage,
	opts ...PlanOption,
) (*Plan, error) {
	if len(categorical) == 0 && len(numeric) == 0 {
		return nil, mlerr.NewConfigError("features", "numeric and categorical groups are both empty")
	}

	if numImputer.String() == "unknown" {
		return nil, mlerr.InvalidChoice("imputer", numImputer.String(), imputeNames)
	}

	seen := make(map[string]string, len(categorical)+len(numeric))

	groups := []struct {
		name string
		cols []string
	}{{"numeric", numeric}, {"categorical", categorical}}

	for _, group := range groups {
		for _, col := range group.cols {
			if other, ok := seen[col]; ok {
				return nil, mlerr.NewConfigError("features", "column "+col+" is claimed by "+other+" and "+group.name)
			}

			seen[col] = group.name
		}
	}

	if len(numeric) > 0 && num == nil {
		return nil, mlerr.NewConfigError("features", "numeric columns given without a numeric stage")
	}

	if len(categorical) > 0 && cat == nil {
		return nil, mlerr.NewConfigError("features", "categorical columns given without a categorical stage")
	}

	plan := &Plan{
		numeric:     append([]string(nil), numeric...),
		categorical: append([]string(nil), categorical...),
		numImputer:  &NumericImputer{Strategy: numImputer},
		catImputer:  &CategoricalImputer{},
		num:         num,
		cat:         cat,
	}

	for _, opt := range opts {
		opt(plan)
	}

	return plan, nil
}

// AssembleFromNames parses numImputerStrategy before calling Assemble.
func AssembleFromNames(
	categorical, numeric []string,
	numImputerStrategy string,
	num *NumericStage,
	cat *CategoricalStage,
	opts ...PlanOption,
) (*Plan, error) {
	strategy, err := ParseImputeStrategy(numImputerStrategy)
	if err != nil {
		return nil, err
	}

	return Assemble(categorical, numeric, strategy, num, cat, opts...)
}

// Fit learns every step of the plan from df, which must hold the training rows only.
func (p *Plan) Fit(ctx context.Context, df dataframe.DataFrame) error {
	logger := logging.FromContext(ctx)
	logger.Debug("fitting preprocessing plan",
		zap.Strings("numeric", p.numeric), zap.Strings("categorical", p.categorical), zap.Int("rows", df.Nrow()))

	if err := p.checkClaims(logger, df); err != nil {
		logger.Error("unable to fit preprocessing plan", zap.Error(err))

		return err
	}

	p.fitted = false

	g, _ := errgroup.WithContext(ctx)

	if len(p.numeric) > 0 {
		g.Go(func() error {
			x, err := numericBlock(df, p.numeric)
			if err != nil {
				return err
			}

			if x, err = FitTransform(p.numImputer, x); err != nil {
				return errors.Wrap(err, "numeric group")
			}

			return errors.Wrap(p.num.Fit(x), "numeric group")
		})
	}

	if len(p.categorical) > 0 {
		g.Go(func() error {
			cols, err := categoricalBlock(df, p.categorical)
			if err != nil {
				return err
			}

			if err := p.catImputer.Fit(cols); err != nil {
				return errors.Wrap(err, "categorical group")
			}

			if cols, err = p.catImputer.Transform(cols); err != nil {
				return errors.Wrap(err, "categorical group")
			}

			return errors.Wrap(p.cat.Fit(cols), "categorical group")
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("unable to fit preprocessing plan", zap.Error(err))

		return err
	}

	p.fitted = true

	logger.Info("preprocessing plan fitted", zap.Int("features", len(p.FeatureNames())))

	return nil
}

// Transform applies the fitted plan to df.
func (p *Plan) Transform(ctx context.Context, df dataframe.DataFrame) (*mat.Dense, error) {
	if !p.fitted {
		return nil, errors.Wrap(mlerr.ErrNotFitted, "preprocessing plan")
	}

	if err := checkColumns(df, p.claimed()); err != nil {
		return nil, err
	}

	var numOut, catOut *mat.Dense

	g, _ := errgroup.WithContext(ctx)

	if len(p.numeric) > 0 {
		g.Go(func() error {
			x, err := numericBlock(df, p.numeric)
			if err != nil {
				return err
			}

			if x, err = p.numImputer.Transform(x); err != nil {
				return errors.Wrap(err, "numeric group")
			}

			numOut, err = p.num.Transform(x)

			return errors.Wrap(err, "numeric group")
		})
	}

	if len(p.categorical) > 0 {
		g.Go(func() error {
			cols, err := categoricalBlock(df, p.categorical)
			if err != nil {
				return err
			}

			if cols, err = p.catImputer.Transform(cols); err != nil {
				return errors.Wrap(err, "categorical group")
			}

			catOut, err = p.cat.Transform(cols)

			return errors.Wrap(err, "categorical group")
		})
	}

	if err := g.Wait(); err != nil {
		logging.FromContext(ctx).Error("unable to transform table", zap.Error(err))

		return nil, err
	}

	switch {
	case numOut == nil:
		return catOut, nil
	case catOut == nil:
		return numOut, nil
	}

	var out mat.Dense
	out.Augment(numOut, catOut)

	return &out, nil
}

// FitTransform fits the plan on df and returns df transformed.
func (p *Plan) FitTransform(ctx context.Context, df dataframe.DataFrame) (*mat.Dense, error) {
	if err := p.Fit(ctx, df); err != nil {
		return nil, err
	}

	return p.Transform(ctx, df)
}

// FeatureNames returns the output column names of the fitted plan, prefixed by num__ or cat__.
// It is nil before Fit.
func (p *Plan) FeatureNames() []string {
	if !p.fitted {
		return nil
	}

	var names []string

	if len(p.numeric) > 0 {
		for _, n := range p.num.FeatureNames(p.numeric) {
			names = append(names, "num__"+n)
		}
	}

	if len(p.categorical) > 0 {
		for _, n := range p.cat.FeatureNames(p.categorical) {
			names = append(names, "cat__"+n)
		}
	}

	return names
}

func (p *Plan) claimed() []string {
	return append(append([]string(nil), p.numeric...), p.categorical...)
}

func (p *Plan) checkClaims(logger *zap.Logger, df dataframe.DataFrame) error {
	if err := checkColumns(df, p.claimed()); err != nil {
		return err
	}

	claimed := make(map[string]struct{}, len(p.numeric)+len(p.categorical))
	for _, col := range p.claimed() {
		claimed[col] = struct{}{}
	}

	var unclaimed []string

	for _, name := range df.Names() {
		if _, ok := claimed[name]; !ok {
			unclaimed = append(unclaimed, name)
		}
	}

	if len(unclaimed) == 0 {
		return nil
	}

	sort.Strings(unclaimed)

	if p.dropUnclaimed {
		logger.Warn("dropping columns claimed by no group", zap.Strings("columns", unclaimed))

		return nil
	}

	return &mlerr.ConfigError{
		Field:  "features",
		Value:  strings.Join(unclaimed, ", "),
		Reason: "columns claimed by no group",
	}
}
