package rasterize

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner pretends to be pdftoppm: it writes n fake PNG files under
// the output prefix instead of shelling out.
type fakeRunner struct {
	pages int
	err   error
	calls [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	prefix := args[len(args)-1]
	for i := 1; i <= f.pages; i++ {
		content := []byte(fmt.Sprintf("png-bytes-%d", i))
		if err := os.WriteFile(fmt.Sprintf("%s-%02d.png", prefix, i), content, 0o644); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func TestRenderReturnsPagesInOrder(t *testing.T) {
	runner := &fakeRunner{pages: 3}
	r := NewRasterizer(Config{DPI: 150}, nil)
	r.runner = runner

	pages, err := r.Render(context.Background(), "missing.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 3)

	for i, page := range pages {
		assert.Equal(t, i+1, page.Number)
		assert.Equal(t, "image/png", page.Image.MIMEType)
		decoded, err := base64.StdEncoding.DecodeString(page.Image.Base64Data)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("png-bytes-%d", i+1), string(decoded))
	}

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"pdftoppm", "-r", "150", "-png", "missing.pdf"}, runner.calls[0][:5])
}

func TestRenderCapsAtMaxPages(t *testing.T) {
	runner := &fakeRunner{pages: 5}
	r := NewRasterizer(Config{MaxPages: 2}, nil)
	r.runner = runner

	pages, err := r.Render(context.Background(), "missing.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, 2, pages[1].Number)
}

func TestRenderCommandFailure(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("exit status 1")}
	r := NewRasterizer(Config{}, nil)
	r.runner = runner

	_, err := r.Render(context.Background(), "missing.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftoppm failed")
}

func TestRenderRejectsNonPDF(t *testing.T) {
	runner := &fakeRunner{pages: 1}
	r := NewRasterizer(Config{}, nil)
	r.runner = runner

	_, err := r.Render(context.Background(), "notes.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
	assert.Empty(t, runner.calls)
}

func TestRenderNoImages(t *testing.T) {
	runner := &fakeRunner{pages: 0}
	r := NewRasterizer(Config{}, nil)
	r.runner = runner

	_, err := r.Render(context.Background(), "missing.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no images")
}
