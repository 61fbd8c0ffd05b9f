package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/model"
	"github.com/kozaktomas/face-attend/internal/samplestore"
	"github.com/kozaktomas/face-attend/internal/state"
	"github.com/kozaktomas/face-attend/internal/trainer"
	"github.com/kozaktomas/face-attend/internal/vision"
	"github.com/kozaktomas/face-attend/internal/vision/opencv"
)

// dirSourceInterval paces replayed frames when CAMERA_DEVICE is "dir:<path>".
const dirSourceInterval = 100 * time.Millisecond

// pipeline holds the storage-backed components shared by the commands.
type pipeline struct {
	cfg     *config.Config
	samples *samplestore.Store
	models  *model.Store
	ledger  *attendance.Ledger
	trainer *trainer.Trainer
}

func newPipeline(cfg *config.Config) *pipeline {
	p := cfg.Pipeline
	samples := samplestore.New(cfg.Storage.SamplesDir, p.JPEGQuality)
	models := model.NewStore(cfg.Storage.ModelPath, cfg.Storage.LabelsPath, lbphFactory(p.LBPH))
	return &pipeline{
		cfg:     cfg,
		samples: samples,
		models:  models,
		ledger:  attendance.NewLedger(cfg.Storage.LedgerPath),
		trainer: trainer.New(samples, models, p.FaceSize),
	}
}

// newShared seeds the training flag from the presence of both model files.
func (p *pipeline) newShared() *state.Shared {
	return state.New(p.cfg.Pipeline.SamplesPerSession, p.models.Exists())
}

// lbphFactory creates OpenCV LBPH recognizers with the configured operator.
func lbphFactory(c config.LBPHConfig) model.Factory {
	return func() model.Classifier {
		return opencv.NewLBPH(c.Radius, c.Neighbors)
	}
}

// sourceOpener returns an opener for the configured camera. "dir:<path>"
// replays the images of a directory in a loop instead of opening a device.
func sourceOpener(device string) vision.SourceOpener {
	if dir, ok := strings.CutPrefix(device, "dir:"); ok {
		return func() (vision.FrameSource, error) {
			src, err := vision.OpenDir(dir, true, dirSourceInterval)
			if err != nil {
				return nil, fmt.Errorf("opening frame directory: %w", err)
			}
			return src, nil
		}
	}
	return func() (vision.FrameSource, error) {
		cam, err := opencv.OpenWebcam(device)
		if err != nil {
			return nil, fmt.Errorf("opening camera %s: %w", device, err)
		}
		return cam, nil
	}
}
