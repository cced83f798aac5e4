// Package screen is a character display, rows by columns of text, drawn
// onto the robot's small framebuffer.
package screen

import (
	"context"
	"image"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog/log"
)

const (
	Rows = 6
	Cols = 12

	size       = 128
	lineHeight = 20
)

type Screen struct {
	lock sync.Mutex
	grid [Rows][Cols]byte
}

func New() *Screen {
	s := &Screen{}
	s.Clear()
	return s
}

func (s *Screen) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for r := range s.grid {
		for c := range s.grid[r] {
			s.grid[r][c] = ' '
		}
	}
}

// Write places text at row, col. Text past the right edge is dropped.
func (s *Screen) Write(row, col int, text string) {
	if row < 0 || row >= Rows || col < 0 {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for i := 0; i < len(text) && col+i < Cols; i++ {
		s.grid[row][col+i] = text[i]
	}
}

func (s *Screen) Lines() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	lines := make([]string, Rows)
	for r := range s.grid {
		lines[r] = strings.TrimRight(string(s.grid[r][:]), " ")
	}
	return lines
}

func (s *Screen) Render() image.Image {
	dc := gg.NewContext(size, size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 0.9, 0, 1)
	for r, line := range s.Lines() {
		dc.DrawString(line, 4, float64((r+1)*lineHeight))
	}
	return dc.Image()
}

// Loop redraws the framebuffer at dev every 500ms until ctx is done, then
// blanks it.
func (s *Screen) Loop(ctx context.Context, dev string) {
	f, err := os.OpenFile(dev, os.O_RDWR, 0666)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open screen, ignoring")
		return
	}
	defer f.Close()

	var buf [size * size * 2]byte
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var blank [size * size * 2]byte
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(blank[:])
			return
		case <-ticker.C:
		}
		toRGB565(s.Render(), buf[:])
		if _, err := f.Seek(0, 0); err != nil {
			log.Error().Err(err).Msg("Screen failure")
			return
		}
		for i := 0; i < size; i++ {
			if _, err := f.Write(buf[i*size*2 : (i+1)*size*2]); err != nil {
				log.Error().Err(err).Msg("Screen failure")
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// toRGB565 packs img into the panel's rotated, little-endian RGB565 layout.
func toRGB565(img image.Image, buf []byte) {
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := img.At(x, y).RGBA()

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6))
			bb := byte(b >> (16 - 5))

			buf[(size-1-y)*2+x*size*2+1] = (rb << 3) | (gb >> 3)
			buf[(size-1-y)*2+x*size*2] = bb | (gb << 5)
		}
	}
}
