// Package trainer rebuilds the face model from every stored sample.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/kozaktomas/face-attend/internal/model"
	"github.com/kozaktomas/face-attend/internal/samplestore"
	"github.com/kozaktomas/face-attend/internal/state"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// ErrNoData is returned when there is no readable sample to train on.
var ErrNoData = errors.New("no face images found for training")

// Summary describes a finished training run.
type Summary struct {
	Identities int            `json:"identities"`
	Samples    int            `json:"samples"`
	Skipped    int            `json:"skipped"`
	Labels     model.LabelMap `json:"labels"`
	Duration   time.Duration  `json:"duration"`
}

// ProgressFunc is called after each processed sample.
type ProgressFunc func(done, total int)

// FinishedFunc observes the outcome of a background run.
type FinishedFunc func(job state.TrainingJob, summary *Summary, err error)

// ModelStore creates and persists classifiers.
type ModelStore interface {
	NewClassifier() model.Classifier
	Save(c model.Classifier, labels model.LabelMap) error
}

type Trainer struct {
	samples  *samplestore.Store
	store    ModelStore
	faceSize int
	logger   *slog.Logger
}

func New(samples *samplestore.Store, store ModelStore, faceSize int) *Trainer {
	return &Trainer{
		samples:  samples,
		store:    store,
		faceSize: faceSize,
		logger:   slog.Default().With("component", "trainer"),
	}
}

// Run trains from scratch over every sample and replaces the persisted model.
// Identities get labels in key order; unreadable images are skipped.
func (t *Trainer) Run(ctx context.Context, progress ProgressFunc) (*Summary, error) {
	start := time.Now()

	groups, err := t.samples.Groups()
	if err != nil {
		return nil, err
	}
	total := 0
	for _, g := range groups {
		total += len(g.Paths)
	}
	t.logger.Info("trainer: training started", "identities", len(groups), "samples", total)

	summary := &Summary{Labels: make(model.LabelMap)}
	var (
		faces  []*image.Gray
		labels []int
	)
	done := 0
	for _, g := range groups {
		for _, path := range g.Paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			img, err := samplestore.Open(path)
			done++
			if err != nil {
				t.logger.Warn("trainer: skipping unreadable sample", "path", path, "error", err)
				summary.Skipped++
			} else {
				label, ok := summary.Labels[g.Identity.Key()]
				if !ok {
					label = len(summary.Labels)
					summary.Labels[g.Identity.Key()] = label
				}
				faces = append(faces, vision.NormalizeFace(img, t.faceSize))
				labels = append(labels, label)
			}
			if progress != nil {
				progress(done, total)
			}
		}
	}

	if len(faces) == 0 {
		t.logger.Error("trainer: no face images found for training")
		return nil, ErrNoData
	}

	c := t.store.NewClassifier()
	defer c.Close()
	if err := c.Train(faces, labels); err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}
	if err := t.store.Save(c, summary.Labels); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	summary.Identities = len(summary.Labels)
	summary.Samples = len(faces)
	summary.Duration = time.Since(start)
	t.logger.Info("trainer: training complete", "identities", summary.Identities, "samples", summary.Samples, "duration", summary.Duration)
	return summary, nil
}

// Start validates the training precondition on shared and runs the trainer in
// the background. It returns as soon as the run is launched; the outcome is
// recorded on shared and passed to every finished callback.
func (t *Trainer) Start(shared *state.Shared, progress ProgressFunc, finished ...FinishedFunc) (state.TrainingJob, error) {
	job, err := shared.BeginTraining()
	if err != nil {
		return job, err
	}

	go func() {
		summary, err := t.Run(context.Background(), progress)
		if err != nil {
			t.logger.Error("trainer: training failed", "job", job.ID, "error", err)
			shared.FinishTraining(job.ID, 0, 0, err)
		} else {
			shared.FinishTraining(job.ID, summary.Identities, summary.Samples, nil)
		}

		final, _ := shared.Job(job.ID)
		for _, fn := range finished {
			fn(final, summary, err)
		}
	}()
	return job, nil
}
