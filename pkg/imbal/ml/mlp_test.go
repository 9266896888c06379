package ml

import (
	"context"
	"encoding/json"
	"testing"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMLP(t *testing.T) {
	train := gaussian(50, 50, 3)
	fit := func() Model {
		m, err := MLP{}.Fit(context.Background(), train, nil, imbal.NewRand(9, imbal.StreamClassifier))
		require.NoError(t, err)
		return m
	}
	m := fit()
	assert.Greater(t, accuracy(t, m, train), .8)
	probs, err := m.PredictProb(train)
	require.NoError(t, err)
	for _, p := range probs {
		assert.True(t, p > 0 && p < 1)
	}
	again, err := fit().PredictProb(train)
	require.NoError(t, err)
	assert.Equal(t, probs, again)

	buf, err := json.Marshal(m)
	require.NoError(t, err)
	var data nndata
	require.NoError(t, json.Unmarshal(buf, &data))
	assert.Equal(t, DefaultHidden, data.Hidden)
	assert.Len(t, data.Outputs, 2)
	assert.Len(t, data.Hiddens[0], 2)
}

func BenchmarkMLP(b *testing.B) {
	train := gaussian(50, 50, 3)
	for i := 0; i < b.N; i++ {
		MLP{Epochs: 20}.Fit(context.Background(), train, nil, imbal.NewRand(1, 1))
	}
}
