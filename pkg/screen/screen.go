package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"github.com/tigerbot-team/notechaser/pkg/approach"
)

const (
	Size        = 128
	frameLength = Size * Size * 2
)

// Status is what the screen shows.
type Status struct {
	RedAlliance   bool
	Autonomous    bool
	NoteAvailable bool
	Phase         approach.Phase
	LastEvent     string
	YawBias       float64
	PoseX         float64
}

type StatusFunc func() Status

// Screen draws the robot's status on the little SPI display.  It also
// observes the approach so the last event is shown.
type Screen struct {
	Device string
	Status StatusFunc

	lock      sync.Mutex
	lastEvent string
	phase     approach.Phase
}

func New(device string, status StatusFunc) *Screen {
	return &Screen{Device: device, Status: status}
}

func (s *Screen) OnApproachEvent(e approach.Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lastEvent = e.String()
	s.phase = e.Phase
	if e.Type == approach.EventStopped {
		s.phase = approach.Finished
	}
}

func (s *Screen) snapshot() Status {
	var st Status
	if s.Status != nil {
		st = s.Status()
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	st.LastEvent = s.lastEvent
	st.Phase = s.phase
	return st
}

func (s *Screen) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	f, err := os.OpenFile(s.Device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Screen: failed to open screen, ignoring:", err)
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var buf [frameLength]byte
			_ = writeFrame(f, buf[:])
			return
		case <-ticker.C:
		}

		buf := EncodeRGB565(Render(s.snapshot()))
		if err := writeFrame(f, buf); err != nil {
			fmt.Println("Screen failure:", err)
			return
		}
	}
}

func writeFrame(f *os.File, buf []byte) error {
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for i := 0; i < Size; i++ {
		if _, err := f.Write(buf[i*Size*2 : (i+1)*Size*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

func Render(st Status) image.Image {
	dc := gg.NewContext(Size, Size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	// Alliance banner.
	if st.RedAlliance {
		dc.SetRGB(0.9, 0.1, 0.1)
	} else {
		dc.SetRGB(0.1, 0.3, 1)
	}
	dc.DrawRectangle(0, 0, Size, 20)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	mode := "TELEOP"
	if st.Autonomous {
		mode = "AUTO"
	}
	dc.DrawString(mode, 4, 14)

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(fmt.Sprintf("APPROACH %s", st.Phase), 4, 36)
	dc.DrawString(fmt.Sprintf("X %.2fm", st.PoseX), 4, 52)
	dc.DrawString(fmt.Sprintf("BIAS %.1f", st.YawBias), 4, 68)
	if st.LastEvent != "" {
		dc.DrawString(st.LastEvent, 4, 84)
	}

	// Note indicator.
	if st.NoteAvailable {
		dc.SetRGB(1, 0.5, 0)
		dc.DrawCircle(Size/2, 108, 14)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawCircle(Size/2, 108, 7)
		dc.Fill()
	} else {
		dc.SetRGB(0.4, 0.4, 0.4)
		dc.SetLineWidth(2)
		dc.DrawCircle(Size/2, 108, 14)
		dc.Stroke()
	}
	return dc.Image()
}

// EncodeRGB565 packs the image for the display, which is mounted rotated
// by 90 degrees.
func EncodeRGB565(img image.Image) []byte {
	buf := make([]byte, frameLength)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(Size-1-y)*2+x*Size*2+1] = (rb << 3) | (gb >> 3)
			buf[(Size-1-y)*2+x*Size*2] = bb | (gb << 5)
		}
	}
	return buf
}
