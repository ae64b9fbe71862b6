// Package visionsvc provides face detection backends for the capture loop.
//
// The default backend delegates to a descriptor-extraction HTTP service
// (a small dlib/insightface sidecar); an in-process dlib backend is
// available behind the `dlib` build tag for hosts with the native toolchain.
package visionsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/face"
	"github.com/trezcool/mahudhurio/core/session"
)

type httpDetector struct {
	baseURL string
	client  *http.Client
}

var _ session.Detector = (*httpDetector)(nil)

func NewHTTPDetector(conf *core.Config) *httpDetector {
	return &httpDetector{
		baseURL: conf.Vision.BaseURL,
		client:  &http.Client{Timeout: conf.Vision.Timeout},
	}
}

type (
	detectResponse struct {
		Faces []detectedFace `json:"faces"`
	}

	detectedFace struct {
		Box        session.Box `json:"box"`
		Descriptor []float64   `json:"descriptor"`
	}
)

func (d *httpDetector) DetectFaces(ctx context.Context, frame session.Frame) ([]session.DetectedFace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/detect", bytes.NewReader(frame.Data))
	if err != nil {
		return nil, errors.Wrap(err, "building detect request")
	}
	req.Header.Set("Content-Type", "image/jpeg")

	res, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling detect")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("detect: unexpected status %d", res.StatusCode)
	}

	var body detectResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decoding detect response")
	}

	faces := make([]session.DetectedFace, 0, len(body.Faces))
	for i, f := range body.Faces {
		if len(f.Descriptor) == 0 {
			return nil, fmt.Errorf("detect: face %d has no descriptor", i)
		}
		faces = append(faces, session.DetectedFace{
			Box:        f.Box,
			Descriptor: face.Descriptor(f.Descriptor),
		})
	}
	return faces, nil
}
