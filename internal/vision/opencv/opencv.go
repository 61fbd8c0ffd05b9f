// Package opencv backs the vision contracts with a local camera and a Haar
// cascade face detector through gocv.
package opencv

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/face-attend/internal/vision"
)

// Webcam reads frames from a camera index or a device/stream path.
type Webcam struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenWebcam opens device, which is either a numeric index ("0") or a path.
func OpenWebcam(device string) (*Webcam, error) {
	var id any = device
	if n, err := strconv.Atoi(device); err == nil {
		id = n
	}

	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %s is not available", device)
	}
	return &Webcam{capture: capture, mat: gocv.NewMat()}, nil
}

func (w *Webcam) Read(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := w.capture.Read(&w.mat); !ok {
		if !w.capture.IsOpened() {
			return nil, vision.ErrSourceClosed
		}
		return nil, vision.ErrEmptyFrame
	}
	if w.mat.Empty() {
		return nil, vision.ErrEmptyFrame
	}

	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vision.ErrEmptyFrame, err)
	}
	return vision.ToRGBA(img), nil
}

func (w *Webcam) Close() error {
	w.mat.Close()
	return w.capture.Close()
}

// CascadeLocator detects faces with a Haar cascade. A classifier is not safe
// for concurrent use, so calls are serialized.
type CascadeLocator struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewCascadeLocator loads the cascade XML at path.
func NewCascadeLocator(path string) (*CascadeLocator, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier %s", path)
	}
	return &CascadeLocator{classifier: classifier}, nil
}

func (l *CascadeLocator) Locate(frame *image.RGBA) ([]vision.Region, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	if gray.Empty() {
		return nil, fmt.Errorf("failed to convert frame to grayscale")
	}

	l.mu.Lock()
	rects := l.classifier.DetectMultiScale(gray)
	l.mu.Unlock()

	regions := make([]vision.Region, len(rects))
	for i, r := range rects {
		// Translate back into frame coordinates.
		regions[i] = vision.Region{Rect: r.Add(frame.Bounds().Min), Confidence: 1}
	}
	return regions, nil
}

func (l *CascadeLocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.classifier.Close()
}
