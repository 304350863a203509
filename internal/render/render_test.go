package render

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"chessagent/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (m *memUploader) Upload(_ context.Context, object string, data []byte, contentType string) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[object] = data
	m.types[object] = contentType
	return nil
}

func TestSVG(t *testing.T) {
	data, err := SVG(engine.StartingFEN)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	_, err = SVG("nonsense")
	assert.Error(t, err)
}

func TestInline(t *testing.T) {
	img, err := Inline{}.Render(context.Background(), engine.StartingFEN)
	require.NoError(t, err)

	assert.Equal(t, MimeSVG, img.MimeType)
	assert.True(t, strings.HasSuffix(img.Name, ".svg"))
	assert.Empty(t, img.URI)

	decoded, err := base64.StdEncoding.DecodeString(img.Base64())
	require.NoError(t, err)
	assert.Equal(t, img.Bytes, decoded)
}

func TestPublished(t *testing.T) {
	up := &memUploader{}
	r := NewPublished(up, "media", "")

	img, err := r.Render(context.Background(), engine.StartingFEN)
	require.NoError(t, err)

	object := ObjectDir + "/" + img.Name
	assert.Equal(t, "https://media.tifi.tv/media/public/chessagent/"+img.Name, img.URI)
	assert.Contains(t, string(up.objects[object]), "<svg")
	assert.Equal(t, MimeSVG, up.types[object])
	assert.Empty(t, img.Base64())
}

func TestPublished_UploadError(t *testing.T) {
	r := NewPublished(&memUploader{err: errors.New("denied")}, "media", "https://cdn.example.com/")

	_, err := r.Render(context.Background(), engine.StartingFEN)
	assert.ErrorContains(t, err, "denied")
}

func TestNewMinioUploader_RequiresBucket(t *testing.T) {
	_, err := NewMinioUploader("localhost:9000", "k", "s", "", false)
	assert.Error(t, err)
}
