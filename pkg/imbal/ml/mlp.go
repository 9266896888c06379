package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Defaults for the multilayer perceptron.
const (
	DefaultHidden       = 8
	DefaultLearningRate = 0.1
	DefaultEpochs       = 200
)

// MLP is a feed forward network with one sigmoid hidden layer and two
// sigmoid output nodes (false/true) trained by per row back
// propagation.  The order of the rows is shuffled for each epoch.
type MLP struct {
	Hidden       int
	LearningRate float64
	Epochs       int
}

// NN is a fitted network.
type NN struct {
	features []string
	scaler   scaler
	wh, wo   mat.Dense
	lr       float64
	epochs   int
}

// Fit trains the network.  The initial weights and the row order are
// drawn from rng.
func (m MLP) Fit(ctx context.Context, train *imbal.Dataset, features []string, rng *rand.Rand) (Model, error) {
	x, y, features, err := prepare("mlp", train, features)
	if err != nil {
		return nil, err
	}
	hidden, lr, epochs := m.Hidden, m.LearningRate, m.Epochs
	if hidden <= 0 {
		hidden = DefaultHidden
	}
	if lr <= 0 {
		lr = DefaultLearningRate
	}
	if epochs <= 0 {
		epochs = DefaultEpochs
	}
	r, c := x.Dims()
	nn := NN{features: features, scaler: normalize(x), lr: lr, epochs: epochs}
	nn.wh.ReuseAs(hidden, c)
	randomInit(&nn.wh, float64(c), rng)
	nn.wo.ReuseAs(2, hidden)
	randomInit(&nn.wo, float64(hidden), rng)
	ys := targets(y)
	order := make([]int, r)
	for i := range order {
		order[i] = i
	}
	for e := 0; e < epochs; e++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("mlp: %w", err)
		}
		rng.Shuffle(r, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			nn.train(x.RowView(i), ys.RowView(i))
		}
		if !finite(nn.wh.RawMatrix().Data) || !finite(nn.wo.RawMatrix().Data) {
			return nil, &imbal.SeparationError{Op: "mlp", Iterations: e + 1, Reason: "diverging weights"}
		}
	}
	imbal.Log().Debug("mlp: trained",
		zap.Int("hidden", hidden), zap.Int("epochs", epochs), zap.Int("rows", r))
	return &nn, nil
}

// targets converts 0/1 labels to rows of (false, true) target values.
func targets(y []float64) *mat.Dense {
	ys := make([]float64, 0, len(y)*2)
	for i := range y {
		if y[i] == True {
			ys = append(ys, .01, .99)
		} else {
			ys = append(ys, .99, .01)
		}
	}
	return mat.NewDense(len(y), 2, ys)
}

func (nn *NN) forward(inputs mat.Matrix) (hiddenOut, finalOut mat.Matrix) {
	hiddenOut = apply(logistic, dot(&nn.wh, inputs))
	finalOut = apply(logistic, dot(&nn.wo, hiddenOut))
	return hiddenOut, finalOut
}

func (nn *NN) train(inputs, targets mat.Vector) {
	hiddenOut, finalOut := nn.forward(inputs)

	// Errors.
	outErr := sub(targets, finalOut)
	hiddenErr := dot(nn.wo.T(), outErr)

	// Backward propagation.
	nn.wo.Add(&nn.wo, scale(nn.lr,
		dot(multiply(outErr, sigmoidp(finalOut)), hiddenOut.T())))
	nn.wh.Add(&nn.wh, scale(nn.lr,
		dot(multiply(hiddenErr, sigmoidp(hiddenOut)), inputs.T())))
}

// Features returns the features of the network.
func (nn *NN) Features() []string {
	return append([]string(nil), nn.features...)
}

// PredictProb returns the normalized activation of the true output
// node for each row of the dataset.
func (nn *NN) PredictProb(d *imbal.Dataset) ([]float64, error) {
	x, err := d.Matrix(nn.features)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	nn.scaler.transform(x)
	r, _ := x.Dims()
	ret := make([]float64, r)
	for i := range ret {
		_, out := nn.forward(x.RowView(i))
		f, t := out.At(0, 0), out.At(1, 0)
		ret[i] = t / (f + t)
	}
	return ret, nil
}

type nndata struct {
	Hidden       int         `json:"hidden"`
	LearningRate float64     `json:"learningRate"`
	Epochs       int         `json:"epochs"`
	Hiddens      [][]float64 `json:"hiddenWeights"`
	Outputs      [][]float64 `json:"outputWeights"`
}

// MarshalJSON implements the json.Marshaler interface.
func (nn *NN) MarshalJSON() ([]byte, error) {
	r, _ := nn.wh.Dims()
	return json.Marshal(nndata{
		Hidden:       r,
		LearningRate: nn.lr,
		Epochs:       nn.epochs,
		Hiddens:      rowsOf(&nn.wh),
		Outputs:      rowsOf(&nn.wo),
	})
}

func rowsOf(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	ret := make([][]float64, r)
	for i := range ret {
		ret[i] = mat.Row(nil, i, m)
	}
	return ret
}

func dot(m, n mat.Matrix) mat.Matrix {
	r, _ := m.Dims()
	_, c := n.Dims()
	o := mat.NewDense(r, c, nil)
	o.Product(m, n)
	return o
}

func apply(fn func(i, j int, v float64) float64, m mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Apply(fn, m)
	return o
}

func scale(s float64, m mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Scale(s, m)
	return o
}

func multiply(m, n mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.MulElem(m, n)
	return o
}

func sub(m, n mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Sub(m, n)
	return o
}

func logistic(_, _ int, z float64) float64 {
	return sigmoid(z)
}

// sigmoidp calculates the derivative m*(1-m) of sigmoid outputs m.
func sigmoidp(m mat.Matrix) mat.Matrix {
	return apply(func(_, _ int, v float64) float64 { return v * (1 - v) }, m)
}

func randomInit(m *mat.Dense, v float64, rng *rand.Rand) {
	bound := 1 / math.Sqrt(v)
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, bound*(2*rng.Float64()-1))
		}
	}
}

var _ Classifier = MLP{}
var _ Model = &NN{}
