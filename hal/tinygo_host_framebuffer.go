//go:build tinygo && !baremetal

package hal

// tinyGoHostFramebuffer keeps frames in memory only; there is no panel to
// present them on. Frames counts Present calls.
type tinyGoHostFramebuffer struct {
	w, h   int
	buf    []byte
	frames uint32
}

func newTinyGoHostFramebuffer(w, h int) *tinyGoHostFramebuffer {
	return &tinyGoHostFramebuffer{w: w, h: h, buf: make([]byte, w*h*2)}
}

func (f *tinyGoHostFramebuffer) Width() int             { return f.w }
func (f *tinyGoHostFramebuffer) Height() int            { return f.h }
func (f *tinyGoHostFramebuffer) Format() PixelFormat    { return PixelFormatRGB565 }
func (f *tinyGoHostFramebuffer) StrideBytes() int       { return f.w * 2 }
func (f *tinyGoHostFramebuffer) Buffer() []byte         { return f.buf }
func (f *tinyGoHostFramebuffer) ClearRGB(r, g, b uint8) { fillRGB565(f.buf, r, g, b) }

func (f *tinyGoHostFramebuffer) Present() error {
	f.frames++
	return nil
}
