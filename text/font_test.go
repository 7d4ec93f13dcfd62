package text_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devblok/torero/gpu"
	"github.com/devblok/torero/gpu/gputest"
	"github.com/devblok/torero/resource"
	"github.com/devblok/torero/text"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const description = `info face="Mono Sans" size=32 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=4,4,4,4 spacing=0,0
common lineHeight=40 base=30 scaleW=256 scaleH=128 pages=1 packed=0
page id=0 file="atlas.png"
chars count=3
char id=32   x=0     y=0     width=0     height=0     xoffset=0     yoffset=0     xadvance=16    page=0  chnl=15
char id=65   x=64    y=32    width=32    height=40    xoffset=4     yoffset=8     xadvance=40    page=0  chnl=15
char id=66   x=128   y=64    width=24    height=40    xoffset=2     yoffset=4     xadvance=24    page=0  chnl=15
`

func writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0755))
	require.NoError(t, ioutil.WriteFile(name, data, 0644))
}

func atlasBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseBMFont(t *testing.T) {
	m, chars, err := text.ParseBMFont(strings.NewReader(description))
	require.NoError(t, err)

	assert.Equal(t, "Mono Sans", m.Face)
	assert.Equal(t, float32(32), m.Size)
	assert.Equal(t, float32(30), m.Base)
	assert.Equal(t, float32(256), m.ScaleW)
	assert.Equal(t, float32(128), m.ScaleH)
	assert.Equal(t, [4]float32{4, 4, 4, 4}, m.Padding)
	assert.Equal(t, "atlas.png", m.Page)

	require.Len(t, chars, 3)
	a := chars['A']
	assert.Equal(t, 'A', a.Code)
	assert.InDelta(t, 0.25, a.U1, 1e-6)
	assert.InDelta(t, 0.25, a.V1, 1e-6)
	assert.InDelta(t, 0.375, a.U2, 1e-6)
	assert.InDelta(t, 0.5625, a.V2, 1e-6)
	assert.InDelta(t, 1.0, a.Width, 1e-6)
	assert.InDelta(t, 1.25, a.Height, 1e-6)
	assert.InDelta(t, 1.0, a.Advance, 1e-6)
	assert.InDelta(t, 0.0, a.OffsetX, 1e-6)
	assert.InDelta(t, 0.125, a.OffsetY, 1e-6)

	assert.True(t, chars[' '].Valid())
	_, ok := chars['!']
	assert.False(t, ok)
}

func TestParseBMFontMalformed(t *testing.T) {
	for name, src := range map[string]string{
		"no common":    "info size=32\n",
		"bad number":   "info size=32\ncommon scaleW=x scaleH=1\n",
		"bad padding":  "info size=32 padding=1,2\ncommon scaleW=1 scaleH=1\n",
		"huge id":      "info size=32\ncommon scaleW=256 scaleH=256\nchar id=1500000000 x=0 y=0 width=1 height=1 xadvance=1\n",
		"past unicode": "info size=32\ncommon scaleW=256 scaleH=256\nchar id=1114112 x=0 y=0 width=1 height=1 xadvance=1\n",
		"negative id":  "info size=32\ncommon scaleW=256 scaleH=256\nchar id=-1 x=0 y=0 width=1 height=1 xadvance=1\n",
		"fraction id":  "info size=32\ncommon scaleW=256 scaleH=256\nchar id=65.5 x=0 y=0 width=1 height=1 xadvance=1\n",
		"missing id":   "info size=32\ncommon scaleW=256 scaleH=256\nchar x=0 y=0 width=1 height=1 xadvance=1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := text.ParseBMFont(strings.NewReader(src))
			assert.True(t, errors.Is(err, resource.ErrMalformed), "%v", err)
		})
	}
}

func TestFontLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "fonts", "mono.fnt"), []byte(description))
	writeFile(t, filepath.Join(dir, "fonts", "atlas.png"), atlasBytes(t))

	dev := gputest.NewDevice()
	log, hook := logtest.NewNullLogger()
	l := text.NewLoader("fonts/mono.fnt", "", resource.NewDir(dir), dev, log)

	l.Run(context.Background())
	require.Equal(t, resource.Ready, l.State(), "%v", l.Err())

	l.Finalize()
	require.True(t, l.IsFinalized())
	require.Len(t, dev.Calls(), 1)
	assert.Equal(t, gpu.Distance, dev.Calls()[0].Slot)

	font := l.Body()
	w, h := font.Texture().Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)

	assert.Equal(t, "Mono Sans", font.Metrics().Face)
	assert.Len(t, font.Characters(), 3)

	c, ok := font.Character('B')
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.U1, 1e-6)
	_, ok = font.Character('Z')
	assert.False(t, ok)

	assert.InDelta(t, 1.0+0.25+0.5, font.Measure("A B?"), 1e-6)
	assert.InDelta(t, 0.0, font.Measure("A\u0301"), 1e-6, "composed to a glyph the font lacks")

	l.Draw()
	assert.Len(t, dev.Calls(), 1, "fonts issue no draw calls")
	assert.Empty(t, hook.AllEntries())

	l.Release()
	assert.Equal(t, 0, dev.Live())
}

func TestFontLoaderMissingAtlas(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mono.fnt"), []byte(description))

	dev := gputest.NewDevice()
	log, hook := logtest.NewNullLogger()
	l := text.NewLoader("mono.fnt", "distance.png", resource.NewDir(dir), dev, log)

	l.Run(context.Background())
	l.Finalize()

	assert.Equal(t, resource.Failed, l.State())
	assert.True(t, errors.Is(l.Err(), resource.ErrNotFound))
	assert.Equal(t, 0, dev.Count(""))
	assert.Len(t, hook.AllEntries(), 1)
}

func TestFontLoaderHugeCharacterID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "huge.fnt"), []byte(strings.Replace(description, "char id=66", "char id=1500000000", 1)))
	writeFile(t, filepath.Join(dir, "atlas.png"), atlasBytes(t))

	dev := gputest.NewDevice()
	log, hook := logtest.NewNullLogger()
	l := text.NewLoader("huge.fnt", "", resource.NewDir(dir), dev, log)

	l.Run(context.Background())
	l.Finalize()

	assert.Equal(t, resource.Failed, l.State())
	assert.True(t, errors.Is(l.Err(), resource.ErrMalformed), "%v", l.Err())
	assert.Equal(t, 0, dev.Count(""))
	assert.Len(t, hook.AllEntries(), 1)
}
