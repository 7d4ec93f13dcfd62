package text

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/devblok/torero/resource"
)

// Metrics is the font-wide part of a BMFont description.
type Metrics struct {
	Face    string
	Size    float32
	Base    float32
	ScaleW  float32
	ScaleH  float32
	Padding [4]float32 // top, right, bottom, left
	Spacing [2]float32
	Page    string
}

// Character locates one glyph in the atlas. Texture coordinates are
// normalised by the atlas size, every distance by the font size.
type Character struct {
	Code rune

	U1, V1, U2, V2 float32
	Width, Height  float32

	OffsetX, OffsetY float32
	Advance          float32
}

// Valid reports whether the glyph is defined by the font.
func (c Character) Valid() bool {
	return c.Width > 0 || c.Advance > 0
}

// ParseBMFont reads a font description in the BMFont text format.
// The returned characters are keyed by code point.
func ParseBMFont(r io.Reader) (Metrics, map[rune]Character, error) {
	var (
		m      Metrics
		glyphs []Character
		line   int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++
		tag, attrs := splitLine(scanner.Text())
		fail := func(err error) (Metrics, map[rune]Character, error) {
			return Metrics{}, nil, fmt.Errorf("%w: font line %d: %v", resource.ErrMalformed, line, err)
		}

		switch tag {
		case "info":
			m.Face = attrs["face"]
			if err := parseFloats(attrs, &m.Size, "size"); err != nil {
				return fail(err)
			}
			if m.Size < 0 {
				m.Size = -m.Size
			}
			if err := parseList(attrs["padding"], m.Padding[:]); err != nil {
				return fail(err)
			}
			if err := parseList(attrs["spacing"], m.Spacing[:]); err != nil {
				return fail(err)
			}
		case "common":
			if err := parseFloats(attrs, &m.Base, "base", &m.ScaleW, "scaleW", &m.ScaleH, "scaleH"); err != nil {
				return fail(err)
			}
		case "page":
			if m.Page == "" {
				m.Page = attrs["file"]
			}
		case "chars":
			if count, err := strconv.Atoi(attrs["count"]); err == nil && count > 0 {
				glyphs = make([]Character, 0, count)
			}
		case "char":
			id, err := strconv.ParseInt(attrs["id"], 10, 32)
			if err != nil {
				return fail(fmt.Errorf("character id: %v", err))
			}
			if id < 0 || id > unicode.MaxRune {
				return fail(fmt.Errorf("character id %d is not a code point", id))
			}

			var x, y float32
			c := Character{Code: rune(id)}
			if err := parseFloats(attrs,
				&x, "x", &y, "y",
				&c.Width, "width", &c.Height, "height",
				&c.OffsetX, "xoffset", &c.OffsetY, "yoffset", &c.Advance, "xadvance"); err != nil {
				return fail(err)
			}
			c.U1, c.V1 = x, y
			glyphs = append(glyphs, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return Metrics{}, nil, fmt.Errorf("%w: font: %v", resource.ErrMalformed, err)
	}
	if m.Size == 0 || m.ScaleW == 0 || m.ScaleH == 0 {
		return Metrics{}, nil, fmt.Errorf("%w: font: missing size or atlas scale", resource.ErrMalformed)
	}

	characters := make(map[rune]Character, len(glyphs))
	for _, c := range glyphs {
		characters[c.Code] = m.normalise(c)
	}
	return m, characters, nil
}

func (m Metrics) normalise(c Character) Character {
	x, y := c.U1, c.V1
	c.U1 = x / m.ScaleW
	c.V1 = y / m.ScaleH
	c.U2 = (x + c.Width) / m.ScaleW
	c.V2 = (y + c.Height) / m.ScaleH

	c.Width /= m.Size
	c.Height /= m.Size
	c.Advance = (c.Advance - m.Padding[3] - m.Padding[1]) / m.Size
	c.OffsetX = (c.OffsetX - m.Padding[3]) / m.Size
	c.OffsetY = (c.OffsetY - m.Padding[0]) / m.Size
	return c
}

// splitLine splits `tag key=value key="quoted value"` pairs.
func splitLine(line string) (string, map[string]string) {
	line = strings.TrimSpace(line)
	end := strings.IndexAny(line, " \t")
	if end < 0 {
		return line, nil
	}
	tag, rest := line[:end], line[end:]

	attrs := make(map[string]string)
	for {
		rest = strings.TrimLeft(rest, " \t")
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			return tag, attrs
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			closing := strings.IndexByte(rest[1:], '"')
			if closing < 0 {
				value, rest = rest[1:], ""
			} else {
				value, rest = rest[1:closing+1], rest[closing+2:]
			}
		} else {
			stop := strings.IndexAny(rest, " \t")
			if stop < 0 {
				stop = len(rest)
			}
			value, rest = rest[:stop], rest[stop:]
		}
		attrs[key] = value
	}
}

// parseFloats reads pairs of destination and attribute name.
// Absent attributes leave their destination untouched.
func parseFloats(attrs map[string]string, pairs ...interface{}) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		dst, key := pairs[i].(*float32), pairs[i+1].(string)
		raw, ok := attrs[key]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		*dst = float32(f)
	}
	return nil
}

func parseList(raw string, out []float32) error {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != len(out) {
		return fmt.Errorf("expected %d values in %q", len(out), raw)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return err
		}
		out[i] = float32(f)
	}
	return nil
}
