package resource

import (
	"path"
	"sort"

	"github.com/devblok/torero/gpu"
)

// MaterialFiles maps the texture slots of a physically based material
// to their file names inside an asset folder.
var MaterialFiles = map[gpu.TextureSlot]string{
	gpu.Albedo:      "albedo.png",
	gpu.Normal:      "normal.png",
	gpu.PBREmission: "pbr_emission.png",
}

// Textures is a set of decoded pictures and, once uploaded,
// the textures created from them.
type Textures struct {
	images   map[gpu.TextureSlot]*gpu.Image
	textures []gpu.Texture
}

// Load decodes every file of files found in folder. Missing files are
// skipped, pictures that fail to decode are an error.
func (t *Textures) Load(src Source, folder string, files map[gpu.TextureSlot]string, flip bool) error {
	t.images = make(map[gpu.TextureSlot]*gpu.Image, len(files))
	for slot, file := range files {
		img, err := OptionalImage(src, path.Join(folder, file), flip)
		if err != nil {
			return err
		}
		if img != nil {
			t.images[slot] = img
		}
	}
	return nil
}

// Len returns the number of decoded or uploaded textures.
func (t *Textures) Len() int {
	if t.textures != nil {
		return len(t.textures)
	}
	return len(t.images)
}

// Upload creates the textures in slot order and drops the pixels.
func (t *Textures) Upload(dev gpu.Device) error {
	slots := make([]int, 0, len(t.images))
	for slot := range t.images {
		slots = append(slots, int(slot))
	}
	sort.Ints(slots)

	for _, slot := range slots {
		tex, err := dev.CreateTexture(gpu.TextureSlot(slot), t.images[gpu.TextureSlot(slot)])
		if err != nil {
			return err
		}
		t.textures = append(t.textures, tex)
	}
	t.images = nil
	return nil
}

// Bound returns the uploaded textures.
func (t *Textures) Bound() []gpu.Texture {
	return t.textures
}

// Release frees the textures and pixels.
func (t *Textures) Release() {
	for _, tex := range t.textures {
		tex.Release()
	}
	t.textures = nil
	t.images = nil
}
