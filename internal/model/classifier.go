package model

import "image"

// Classifier is a trainable face classifier. Predict returns the label of the
// closest training face and its distance; lower distances are better matches.
// Model files are read and written by path because the OpenCV recognizer
// picks its serialization format from the file extension.
type Classifier interface {
	Train(faces []*image.Gray, labels []int) error
	Predict(face *image.Gray) (label int, distance float64, err error)
	SaveFile(path string) error
	LoadFile(path string) error
	Close() error
}

// Factory creates an empty classifier.
type Factory func() Classifier
