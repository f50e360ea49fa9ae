package hal

import "testing"

func TestRGB565RoundTripPrimaries(t *testing.T) {
	for _, c := range [][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {255, 255, 255}, {0, 0, 0}} {
		r, g, b := rgb888From565(rgb565(c[0], c[1], c[2]))
		if r != c[0] || g != c[1] || b != c[2] {
			t.Fatalf("rgb888From565(rgb565(%v)) = %d,%d,%d", c, r, g, b)
		}
	}
}

func TestDecodeRGB565(t *testing.T) {
	p := rgb565(255, 0, 0)
	src := []byte{byte(p), byte(p >> 8), 0, 0}
	dst := make([]byte, 8)
	decodeRGB565(dst, src)
	want := []byte{255, 0, 0, 255, 0, 0, 0, 255}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("decodeRGB565() = %v, want %v", dst, want)
		}
	}
}

type testFB struct {
	w, h int
	buf  []byte
}

func (f *testFB) Width() int             { return f.w }
func (f *testFB) Height() int            { return f.h }
func (f *testFB) Format() PixelFormat    { return PixelFormatRGB565 }
func (f *testFB) StrideBytes() int       { return f.w * 2 }
func (f *testFB) Buffer() []byte         { return f.buf }
func (f *testFB) ClearRGB(_, _, _ uint8) {}
func (f *testFB) Present() error         { return nil }

func TestSetPixelRGB565(t *testing.T) {
	fb := &testFB{w: 4, h: 2, buf: make([]byte, 16)}
	SetPixelRGB565(fb, 1, 1, 255, 255, 255)
	SetPixelRGB565(fb, 9, 9, 255, 255, 255)
	off := 1*8 + 1*2
	if fb.buf[off] != 0xFF || fb.buf[off+1] != 0xFF {
		t.Fatalf("pixel = %#x %#x, want 0xff 0xff", fb.buf[off], fb.buf[off+1])
	}
	for i, b := range fb.buf {
		if i != off && i != off+1 && b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}
}

func TestFillRGB565(t *testing.T) {
	buf := make([]byte, 7)
	fillRGB565(buf, 255, 0, 0)
	for i := 0; i < 6; i += 2 {
		if buf[i] != 0x00 || buf[i+1] != 0xF8 {
			t.Fatalf("pixel %d = %#x %#x, want 0x0 0xf8", i/2, buf[i], buf[i+1])
		}
	}
	if buf[6] != 0 {
		t.Fatalf("trailing byte = %#x, want 0", buf[6])
	}
}
