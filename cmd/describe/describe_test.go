package describe

import (
	"bytes"
	"testing"

	"git.sr.ht/~flobar/imbal/pkg/imbal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	d := testkit.Must([]string{"alcohol"}, [][]float64{{9}, {13}, {10}, {11}, {12}}, 1, 1, 0, 0, 0)
	var buf bytes.Buffer
	require.NoError(t, describe(&buf, d))
	want := "rows 5\npositive 2\nnegative 3\nratio 0.666667\n" +
		"class,feature,mean,sd,min,median,max\n" +
		"1,\"alcohol\",11,2.8284271247461903,9,11,13\n" +
		"0,\"alcohol\",11,1,10,11,12\n"
	assert.Equal(t, want, buf.String())
}
