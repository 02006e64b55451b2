// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture_test

import (
	"bytes"
	"errors"
	goimage "image"
	stdcolor "image/color"
	"testing"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend/software"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/texture"
)

// checker returns a w by h image with a distinct opaque color per texel.
func checker(w, h int) *goimage.NRGBA {
	img := goimage.NewNRGBA(goimage.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, stdcolor.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func TestPackUnpack(t *testing.T) {
	src := checker(5, 3)
	tests := []struct {
		f     format.Format
		texel int
	}{
		{format.RGBA8Unorm, 4},
		{format.RGBA8Srgb, 4},
		{format.BGRA8Unorm, 4},
		{format.RGBA16Float, 8},
		{format.RGBA32Float, 16},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			data, err := texture.Pack(src, tt.f)
			if err != nil {
				t.Fatalf("Pack() = %v", err)
			}
			if len(data) != 5*3*tt.texel {
				t.Fatalf("Pack() returned %d bytes, want %d", len(data), 5*3*tt.texel)
			}
			got, err := texture.Unpack(data, 5, 3, tt.f)
			if err != nil {
				t.Fatalf("Unpack() = %v", err)
			}
			if !bytes.Equal(got.Pix, src.Pix) {
				t.Errorf("round trip changed pixels:\n got %v\nwant %v", got.Pix, src.Pix)
			}
		})
	}
}

func TestPackBGRA(t *testing.T) {
	src := goimage.NewNRGBA(goimage.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, stdcolor.NRGBA{R: 1, G: 2, B: 3, A: 4})
	data, err := texture.Pack(src, format.BGRA8Unorm)
	if err != nil {
		t.Fatalf("Pack() = %v", err)
	}
	if want := []byte{3, 2, 1, 4}; !bytes.Equal(data, want) {
		t.Errorf("Pack() = %v, want %v", data, want)
	}
}

func TestPackGray(t *testing.T) {
	src := goimage.NewNRGBA(goimage.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, stdcolor.NRGBA{R: 255, G: 255, B: 255, A: 255})
	src.SetNRGBA(1, 0, stdcolor.NRGBA{A: 255})
	data, err := texture.Pack(src, format.R8Unorm)
	if err != nil {
		t.Fatalf("Pack() = %v", err)
	}
	if want := []byte{255, 0}; !bytes.Equal(data, want) {
		t.Errorf("Pack() = %v, want %v", data, want)
	}
}

func TestPackSubImage(t *testing.T) {
	src := checker(8, 8)
	sub := src.SubImage(goimage.Rect(2, 3, 4, 5))
	got := texture.NRGBA(sub)
	if got.Bounds() != goimage.Rect(0, 0, 2, 2) {
		t.Fatalf("bounds = %v, want origin at zero", got.Bounds())
	}
	if got.NRGBAAt(1, 1) != src.NRGBAAt(3, 4) {
		t.Errorf("texel (1,1) = %v, want %v", got.NRGBAAt(1, 1), src.NRGBAAt(3, 4))
	}
	if texture.NRGBA(got) != got {
		t.Error("NRGBA copied an image that was already packed")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	src := checker(1, 1)
	if _, err := texture.Pack(src, format.D32Float); !errors.Is(err, hal.ErrUnsupportedFormat) {
		t.Errorf("Pack(D32Float) = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := texture.Unpack(make([]byte, 4), 1, 1, format.R32Uint); !errors.Is(err, hal.ErrUnsupportedFormat) {
		t.Errorf("Unpack(R32Uint) = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := texture.Unpack(make([]byte, 3), 1, 1, format.RGBA8Unorm); !errors.Is(err, texture.ErrSize) {
		t.Errorf("Unpack(short) = %v, want ErrSize", err)
	}
}

func TestMipChain(t *testing.T) {
	chain := texture.MipChain(checker(8, 4), 10)
	want := []goimage.Rectangle{
		goimage.Rect(0, 0, 8, 4),
		goimage.Rect(0, 0, 4, 2),
		goimage.Rect(0, 0, 2, 1),
		goimage.Rect(0, 0, 1, 1),
	}
	if len(chain) != len(want) {
		t.Fatalf("MipChain() has %d levels, want %d", len(chain), len(want))
	}
	for i, img := range chain {
		if img.Bounds() != want[i] {
			t.Errorf("level %d bounds = %v, want %v", i, img.Bounds(), want[i])
		}
	}
	if n := len(texture.MipChain(checker(8, 4), 2)); n != 2 {
		t.Errorf("MipChain(2) has %d levels", n)
	}
}

func TestResize(t *testing.T) {
	src := goimage.NewNRGBA(goimage.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	dst := texture.Resize(src, 2, 3)
	if dst.Bounds() != goimage.Rect(0, 0, 2, 3) {
		t.Fatalf("bounds = %v", dst.Bounds())
	}
	if c := dst.NRGBAAt(1, 1); c.R < 190 || c.R > 210 {
		t.Errorf("uniform image resized to %v", c)
	}
}

func openQueue(t *testing.T) (*gfx.Device, *gfx.Queue) {
	t.Helper()
	inst, err := gfx.CreateInstance("texture-test", 1, gfx.WithHALBackend(software.New()))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	a := inst.EnumerateAdapters()[0]
	g, err := a.Open([]gfx.QueueRequest{{Family: software.FamilyGeneral, Priorities: []queue.Priority{1}}}, 0)
	if err != nil {
		inst.Destroy()
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		g.Device.Destroy()
		inst.Destroy()
	})
	return g.Device, g.QueueGroup(software.FamilyGeneral).Queues[0]
}

func newImage(t *testing.T, d *gfx.Device, w, h uint32, levels uint8, f format.Format) *gfx.Image {
	t.Helper()
	img, mem, err := d.CreateBoundImage(image.Desc{
		Label:     "texture",
		Kind:      image.Kind2D(w, h, 1, 1),
		MipLevels: levels,
		Format:    f,
		Usage:     image.TransferSrc | image.TransferDst | image.Sampled,
	}, memory.DeviceLocal)
	if err != nil {
		t.Fatalf("CreateBoundImage: %v", err)
	}
	t.Cleanup(func() {
		d.DestroyImage(img)
		d.FreeMemory(mem)
	})
	return img
}

func TestUploadReadback(t *testing.T) {
	for _, f := range []format.Format{format.RGBA8Unorm, format.BGRA8Unorm, format.RGBA32Float} {
		t.Run(f.String(), func(t *testing.T) {
			d, q := openQueue(t)
			img := newImage(t, d, 6, 4, 1, f)
			src := checker(6, 4)
			if err := texture.Upload(q, img, 0, src); err != nil {
				t.Fatalf("Upload() = %v", err)
			}
			got, err := texture.Readback(q, img, 0, image.LayoutShaderReadOnlyOptimal)
			if err != nil {
				t.Fatalf("Readback() = %v", err)
			}
			if !bytes.Equal(got.Pix, src.Pix) {
				t.Errorf("read back %v, want %v", got.Pix, src.Pix)
			}
		})
	}
}

func TestUploadSizeMismatch(t *testing.T) {
	d, q := openQueue(t)
	img := newImage(t, d, 4, 4, 1, format.RGBA8Unorm)
	if err := texture.Upload(q, img, 0, checker(3, 4)); !errors.Is(err, texture.ErrSize) {
		t.Errorf("Upload() = %v, want ErrSize", err)
	}
}

func TestUploadMips(t *testing.T) {
	d, q := openQueue(t)
	img := newImage(t, d, 8, 8, 4, format.RGBA8Unorm)
	src := checker(8, 8)
	if err := texture.UploadMips(q, img, src); err != nil {
		t.Fatalf("UploadMips() = %v", err)
	}
	chain := texture.MipChain(src, 4)
	for l := range chain {
		got, err := texture.Readback(q, img, uint8(l), image.LayoutShaderReadOnlyOptimal)
		if err != nil {
			t.Fatalf("Readback(level %d) = %v", l, err)
		}
		if !bytes.Equal(got.Pix, chain[l].Pix) {
			t.Errorf("level %d differs from the generated chain", l)
		}
	}
}

func BenchmarkPackRGBA16Float(b *testing.B) {
	src := checker(256, 256)
	for b.Loop() {
		if _, err := texture.Pack(src, format.RGBA16Float); err != nil {
			b.Fatal(err)
		}
	}
}
