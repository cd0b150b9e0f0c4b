package transform

import (
	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// Scaler selects how numeric columns are rescaled.
type Scaler int

const (
	// Standard centres each column on its mean and divides by its standard deviation.
	Standard Scaler = iota
	// Robust centres each column on its median and divides by its interquartile range.
	Robust
)

var scalerNames = []string{"standard", "robust"}

// ParseScaler returns the scaler named s.
func ParseScaler(s string) (Scaler, error) {
	switch s {
	case "standard":
		return Standard, nil
	case "robust":
		return Robust, nil
	default:
		return 0, mlerr.InvalidChoice("scaler", s, scalerNames)
	}
}

func (s Scaler) String() string {
	switch s {
	case Standard:
		return "standard"
	case Robust:
		return "robust"
	default:
		return "unknown"
	}
}

// Encoder selects how categorical columns are turned into numbers.
type Encoder int

const (
	// OneHot emits one indicator column per category.
	OneHot Encoder = iota
	// Ordinal emits a single integer code per column.
	Ordinal
)

var encoderNames = []string{"ohe", "ordinal"}

// ParseEncoder returns the encoder named s.
func ParseEncoder(s string) (Encoder, error) {
	switch s {
	case "ohe":
		return OneHot, nil
	case "ordinal":
		return Ordinal, nil
	default:
		return 0, mlerr.InvalidChoice("encoder", s, encoderNames)
	}
}

func (e Encoder) String() string {
	switch e {
	case OneHot:
		return "ohe"
	case Ordinal:
		return "ordinal"
	default:
		return "unknown"
	}
}

// Kernel is the similarity function used by kernel PCA.
type Kernel int

const (
	Linear Kernel = iota
	Poly
	RBF
	Sigmoid
	Cosine
)

var kernelNames = []string{"linear", "poly", "rbf", "sigmoid", "cosine"}

// ParseKernel returns the kernel named s. An empty name selects Linear.
func ParseKernel(s string) (Kernel, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "poly":
		return Poly, nil
	case "rbf":
		return RBF, nil
	case "sigmoid":
		return Sigmoid, nil
	case "cosine":
		return Cosine, nil
	default:
		return 0, mlerr.InvalidChoice("kernel", s, kernelNames)
	}
}

func (k Kernel) String() string {
	if int(k) < 0 || int(k) >= len(kernelNames) {
		return "unknown"
	}

	return kernelNames[k]
}

// ImputeStrategy selects the statistic used to fill missing numeric values.
type ImputeStrategy int

const (
	Mean ImputeStrategy = iota
	Median
	MostFrequent
	Constant
)

var imputeNames = []string{"mean", "median", "most_frequent", "constant"}

// ParseImputeStrategy returns the strategy named s.
func ParseImputeStrategy(s string) (ImputeStrategy, error) {
	for i, name := range imputeNames {
		if s == name {
			return ImputeStrategy(i), nil
		}
	}

	return 0, mlerr.InvalidChoice("imputer", s, imputeNames)
}

func (s ImputeStrategy) String() string {
	if int(s) < 0 || int(s) >= len(imputeNames) {
		return "unknown"
	}

	return imputeNames[s]
}

func (s Scaler) MarshalText() ([]byte, error)         { return []byte(s.String()), nil }
func (e Encoder) MarshalText() ([]byte, error)        { return []byte(e.String()), nil }
func (k Kernel) MarshalText() ([]byte, error)         { return []byte(k.String()), nil }
func (s ImputeStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
