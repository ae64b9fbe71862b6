//go:build dlib
// +build dlib

package visionsvc

import (
	"context"

	goface "github.com/Kagami/go-face"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/face"
	"github.com/trezcool/mahudhurio/core/session"
)

// dlibDetector runs dlib in-process. Requires the native dlib toolchain and
// the shape predictor / resnet model files in modelsDir.
type dlibDetector struct {
	rec *goface.Recognizer
}

var _ session.Detector = (*dlibDetector)(nil)

func NewDlibDetector(modelsDir string) (*dlibDetector, error) {
	rec, err := goface.NewRecognizer(modelsDir)
	if err != nil {
		return nil, errors.Wrap(err, "initializing dlib recognizer")
	}
	return &dlibDetector{rec: rec}, nil
}

func (d *dlibDetector) DetectFaces(ctx context.Context, frame session.Frame) ([]session.DetectedFace, error) {
	found, err := d.rec.Recognize(frame.Data)
	if err != nil {
		return nil, errors.Wrap(err, "recognizing faces")
	}

	faces := make([]session.DetectedFace, 0, len(found))
	for _, f := range found {
		desc := make(face.Descriptor, len(f.Descriptor))
		for i, v := range f.Descriptor {
			desc[i] = float64(v)
		}
		faces = append(faces, session.DetectedFace{
			Box: session.Box{
				X: f.Rectangle.Min.X,
				Y: f.Rectangle.Min.Y,
				W: f.Rectangle.Dx(),
				H: f.Rectangle.Dy(),
			},
			Descriptor: desc,
		})
	}
	return faces, nil
}

func (d *dlibDetector) Close() {
	d.rec.Close()
}
