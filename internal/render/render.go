// Package render draws board positions and publishes them as file references.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"chessagent/internal/engine"

	"github.com/corentings/chess/v2/image"
	"github.com/google/uuid"
)

const (
	MimeSVG = "image/svg+xml"

	// ObjectDir is the path prefix for uploaded boards inside the bucket.
	ObjectDir = "public/chessagent"

	DefaultMediaBaseURL = "https://media.tifi.tv"
)

// Image is a rendered board, referenced by URI or carried inline.
type Image struct {
	Name     string
	MimeType string
	URI      string
	Bytes    []byte
}

// Base64 returns the inline payload encoded for a file part.
func (i Image) Base64() string {
	if len(i.Bytes) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(i.Bytes)
}

// Renderer turns a FEN position into an image reference.
type Renderer interface {
	Render(ctx context.Context, fen string) (Image, error)
}

// SVG draws the position at fen.
func SVG(fen string) ([]byte, error) {
	g, err := engine.GameFromFEN(fen)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := image.SVG(&buf, g.Position().Board()); err != nil {
		return nil, fmt.Errorf("drawing board: %w", err)
	}
	return buf.Bytes(), nil
}

func newFilename() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ".svg"
}

// Inline returns the SVG itself as file bytes. Used when no object storage is configured.
type Inline struct{}

func (Inline) Render(_ context.Context, fen string) (Image, error) {
	data, err := SVG(fen)
	if err != nil {
		return Image{}, err
	}
	return Image{Name: newFilename(), MimeType: MimeSVG, Bytes: data}, nil
}

// Uploader stores an object and makes it publicly reachable.
type Uploader interface {
	Upload(ctx context.Context, object string, data []byte, contentType string) error
}

// Published uploads each board and returns its public URL.
type Published struct {
	uploader Uploader
	bucket   string
	baseURL  string
}

func NewPublished(uploader Uploader, bucket, baseURL string) *Published {
	if baseURL == "" {
		baseURL = DefaultMediaBaseURL
	}
	return &Published{
		uploader: uploader,
		bucket:   bucket,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (p *Published) Render(ctx context.Context, fen string) (Image, error) {
	data, err := SVG(fen)
	if err != nil {
		return Image{}, err
	}

	name := newFilename()
	object := ObjectDir + "/" + name
	if err := p.uploader.Upload(ctx, object, data, MimeSVG); err != nil {
		return Image{}, fmt.Errorf("uploading board image: %w", err)
	}

	return Image{
		Name:     name,
		MimeType: MimeSVG,
		URI:      fmt.Sprintf("%s/%s/%s", p.baseURL, p.bucket, object),
	}, nil
}
