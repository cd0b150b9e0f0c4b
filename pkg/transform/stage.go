package transform

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

type numericStep struct {
	name string
	Transformer
}

// NumericStage scales numeric columns and optionally reduces them with kernel PCA. Fitting a stage
// replaces what it learned before.
type NumericStage struct {
	scaler     Scaler
	components int
	kernel     Kernel
	steps      []numericStep
}

// NumericOption configures a NumericStage.
type NumericOption func(*NumericStage)

// WithPrincipalComponents appends a kernel PCA step keeping n components. Zero keeps every column.
func WithPrincipalComponents(n int) NumericOption {
	return func(s *NumericStage) {
		s.components = n
	}
}

// WithKernel sets the kernel of the PCA step.
func WithKernel(k Kernel) NumericOption {
	return func(s *NumericStage) {
		s.kernel = k
	}
}

// NewNumericStage returns a stage running scaler, then kernel PCA when principal components are requested.
func NewNumericStage(scaler Scaler, opts ...NumericOption) (*NumericStage, error) {
	stage := &NumericStage{scaler: scaler, kernel: Linear}
	for _, opt := range opts {
		opt(stage)
	}

	switch scaler {
	case Standard:
		stage.steps = append(stage.steps, numericStep{name: "standardscaler", Transformer: &StandardScaler{}})
	case Robust:
		stage.steps = append(stage.steps, numericStep{name: "robustscaler", Transformer: &RobustScaler{}})
	default:
		return nil, mlerr.InvalidChoice("scaler", scaler.String(), scalerNames)
	}

	if stage.components < 0 {
		return nil, &mlerr.ConfigError{
			Field:  "principal_components",
			Value:  strconv.Itoa(stage.components),
			Reason: "must not be negative, got",
		}
	}

	if stage.kernel.String() == "unknown" {
		return nil, mlerr.InvalidChoice("kernel", stage.kernel.String(), kernelNames)
	}

	if stage.components > 0 {
		stage.steps = append(stage.steps, numericStep{
			name:        "kernelpca",
			Transformer: NewKernelPCA(stage.components, stage.kernel),
		})
	}

	return stage, nil
}

// NumericStageFromNames parses scalerType and kernel before calling NewNumericStage.
func NumericStageFromNames(scalerType string, components int, kernel string) (*NumericStage, error) {
	scaler, err := ParseScaler(scalerType)
	if err != nil {
		return nil, err
	}

	k, err := ParseKernel(kernel)
	if err != nil {
		return nil, err
	}

	return NewNumericStage(scaler, WithPrincipalComponents(components), WithKernel(k))
}

// Steps returns the step names in application order.
func (s *NumericStage) Steps() []string {
	names := make([]string, len(s.steps))
	for i, step := range s.steps {
		names[i] = step.name
	}

	return names
}

func (s *NumericStage) Fit(x mat.Matrix) error {
	_, err := s.fit(x, false)

	return err
}

func (s *NumericStage) FitTransform(x mat.Matrix) (*mat.Dense, error) {
	return s.fit(x, true)
}

func (s *NumericStage) fit(x mat.Matrix, transformLast bool) (*mat.Dense, error) {
	var out *mat.Dense

	for i, step := range s.steps {
		if err := step.Fit(x); err != nil {
			return nil, err
		}

		if i == len(s.steps)-1 && !transformLast {
			return nil, nil
		}

		var err error
		if out, err = step.Transform(x); err != nil {
			return nil, err
		}

		x = out
	}

	return out, nil
}

func (s *NumericStage) Transform(x mat.Matrix) (*mat.Dense, error) {
	var out *mat.Dense

	for _, step := range s.steps {
		var err error
		if out, err = step.Transform(x); err != nil {
			return nil, err
		}

		x = out
	}

	return out, nil
}

func (s *NumericStage) FeatureNames(in []string) []string {
	for _, step := range s.steps {
		in = step.FeatureNames(in)
	}

	return in
}

// CategoricalStage encodes categorical columns into numbers.
type CategoricalStage struct {
	encoder Encoder
	name    string
	CategoricalTransformer
}

// NewCategoricalStage returns a stage holding a single encoder.
func NewCategoricalStage(encoder Encoder) (*CategoricalStage, error) {
	switch encoder {
	case OneHot:
		return &CategoricalStage{encoder: encoder, name: "onehotencoder", CategoricalTransformer: &OneHotEncoder{}}, nil
	case Ordinal:
		return &CategoricalStage{encoder: encoder, name: "ordinalencoder", CategoricalTransformer: &OrdinalEncoder{}}, nil
	default:
		return nil, mlerr.InvalidChoice("encoder", encoder.String(), encoderNames)
	}
}

// CategoricalStageFromName parses encoderType before calling NewCategoricalStage.
func CategoricalStageFromName(encoderType string) (*CategoricalStage, error) {
	encoder, err := ParseEncoder(encoderType)
	if err != nil {
		return nil, err
	}

	return NewCategoricalStage(encoder)
}

func (s *CategoricalStage) Steps() []string { return []string{s.name} }

func (s *CategoricalStage) FitTransform(columns [][]string) (*mat.Dense, error) {
	if err := s.Fit(columns); err != nil {
		return nil, err
	}

	return s.Transform(columns)
}
