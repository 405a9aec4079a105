package cvgrabber

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/tigerbot-team/notechaser/pkg/config"
	"github.com/tigerbot-team/notechaser/pkg/notecamera"
)

// Grabber reads frames from a V4L camera and finds orange blobs with an HSV
// mask.
type Grabber struct {
	cfg    config.Camera
	webcam *gocv.VideoCapture
	img    gocv.Mat
}

var _ notecamera.Grabber = (*Grabber)(nil)

func Open(cfg config.Camera) (*Grabber, error) {
	webcam, err := gocv.VideoCaptureDevice(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", cfg.Device, err)
	}
	if cfg.FramePeriod > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(time.Second/cfg.FramePeriod))
	}
	return &Grabber{
		cfg:    cfg,
		webcam: webcam,
		img:    gocv.NewMat(),
	}, nil
}

func (g *Grabber) Grab() ([]notecamera.Blob, int, int, error) {
	if ok := g.webcam.Read(&g.img); !ok || g.img.Empty() {
		return nil, 0, 0, fmt.Errorf("failed to read from camera %d", g.cfg.Device)
	}
	hsv := scaleAndConvertToHSV(g.img, g.cfg.Width)
	defer hsv.Close()

	blobs := findBlobs(hsv, g.cfg.Note)
	return blobs, hsv.Cols(), hsv.Rows(), nil
}

func (g *Grabber) Close() error {
	_ = g.img.Close()
	return g.webcam.Close()
}

func scaleAndConvertToHSV(img gocv.Mat, desiredWidth int) gocv.Mat {
	scaleFactor := float64(desiredWidth) / float64(img.Cols())
	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(img, &scaled, image.Point{}, scaleFactor, scaleFactor, gocv.InterpolationLinear)

	hsv := gocv.NewMat()
	gocv.CvtColor(scaled, &hsv, gocv.ColorBGRToHSV)
	return hsv
}

func maskNoWrapAround(hsv gocv.Mat, r config.HSVRange) gocv.Mat {
	lb, _ := gocv.NewMatFromBytes(1, 3, gocv.MatTypeCV8U, []byte{r.HueMin, r.SatMin, r.ValMin})
	defer lb.Close()
	ub, _ := gocv.NewMatFromBytes(1, 3, gocv.MatTypeCV8U, []byte{r.HueMax, r.SatMax, r.ValMax})
	defer ub.Close()
	mask := gocv.NewMatWithSize(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
	gocv.InRange(hsv, lb, ub, &mask)
	return mask
}

// hsvMask handles hue ranges that wrap through red.
func hsvMask(hsv gocv.Mat, r config.HSVRange) gocv.Mat {
	if r.HueMax > r.HueMin {
		return maskNoWrapAround(hsv, r)
	}
	upper := r
	upper.HueMax = 180
	mask1 := maskNoWrapAround(hsv, upper)
	defer mask1.Close()
	lower := r
	lower.HueMin = 0
	mask2 := maskNoWrapAround(hsv, lower)
	defer mask2.Close()
	mask := gocv.NewMatWithSize(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
	gocv.BitwiseOr(mask1, mask2, &mask)
	return mask
}

func findBlobs(hsv gocv.Mat, r config.HSVRange) []notecamera.Blob {
	mask := hsvMask(hsv, r)
	defer mask.Close()

	// Two rounds of erode then dilate to remove speckle.
	nullMat := gocv.NewMat()
	defer nullMat.Close()
	gocv.Erode(mask, &mask, nullMat)
	gocv.Erode(mask, &mask, nullMat)
	gocv.Dilate(mask, &mask, nullMat)
	gocv.Dilate(mask, &mask, nullMat)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var blobs []notecamera.Blob
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		rect := gocv.BoundingRect(c)
		blobs = append(blobs, notecamera.Blob{
			CX:     float64(rect.Min.X+rect.Max.X) / 2,
			CY:     float64(rect.Min.Y+rect.Max.Y) / 2,
			Width:  rect.Dx(),
			Height: rect.Dy(),
			Area:   gocv.ContourArea(c),
		})
	}
	return blobs
}
