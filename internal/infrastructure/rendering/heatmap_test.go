package rendering

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/EconSOM/pkg/errors"
)

func TestRender_DistanceMapIsDecodablePNG(t *testing.T) {
	grid := [][]float64{
		{0.1, 0.4, 0.9},
		{0.3, 0.2, 0.7},
	}
	out, err := Render(KindDistance, grid)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestRender_ConstantHitMap(t *testing.T) {
	out, err := Render(KindHit, IntGrid([][]int{{2, 2}, {2, 2}}))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("contour", [][]float64{{1}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedMapType))

	_, err = Render(KindHit, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRenderFailed))

	_, err = Render(KindHit, [][]float64{{1, 2}, {3}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeRenderFailed))

	_, err = RenderWithOptions([][]float64{{1}}, Options{Palette: "jet"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeRenderFailed))
}

func TestEncodeDataURI(t *testing.T) {
	out, err := Render(KindHit, [][]float64{{1, 0}, {0, 3}})
	require.NoError(t, err)

	uri := EncodeDataURI(out)
	require.True(t, strings.HasPrefix(uri, DataURIPrefix))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	require.NoError(t, err)
	assert.Equal(t, out, decoded)
}

func TestParseMapKind(t *testing.T) {
	k, err := ParseMapKind("hit")
	require.NoError(t, err)
	assert.Equal(t, KindHit, k)

	_, err = ParseMapKind("Distance")
	assert.Error(t, err)
}

//Personal.AI order the ending
