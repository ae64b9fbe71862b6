// Package camerasvc provides capture devices for attendance sessions.
package camerasvc

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/session"
)

// snapshotCamera pulls JPEG stills from an IP camera snapshot endpoint
// (the `/shot.jpg` style exposed by most phone camera apps).
type snapshotCamera struct {
	url    string
	client *http.Client
}

var _ session.Camera = (*snapshotCamera)(nil)

func NewSnapshotCamera(conf *core.Config) *snapshotCamera {
	return &snapshotCamera{
		url:    conf.Camera.SnapshotURL,
		client: &http.Client{Timeout: conf.Camera.Timeout},
	}
}

// Open probes the endpoint once so a dead camera fails the session start
// instead of its first frame.
func (c *snapshotCamera) Open(ctx context.Context) (session.Device, error) {
	dev := &snapshotDevice{cam: c}
	if _, err := dev.ReadFrame(ctx); err != nil {
		return nil, session.ErrDeviceUnavailable
	}
	return dev, nil
}

type snapshotDevice struct {
	cam      *snapshotCamera
	released bool
}

var _ session.Device = (*snapshotDevice)(nil)

func (d *snapshotDevice) ReadFrame(ctx context.Context) (session.Frame, error) {
	if d.released {
		return session.Frame{}, errors.New("device released")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cam.url, nil)
	if err != nil {
		return session.Frame{}, errors.Wrap(err, "building snapshot request")
	}

	res, err := d.cam.client.Do(req)
	if err != nil {
		return session.Frame{}, errors.Wrap(err, "fetching snapshot")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return session.Frame{}, errors.Errorf("snapshot: unexpected status %d", res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return session.Frame{}, errors.Wrap(err, "reading snapshot")
	}
	return session.Frame{Data: data, CapturedAt: time.Now()}, nil
}

func (d *snapshotDevice) Release() error {
	d.released = true
	d.cam.client.CloseIdleConnections()
	return nil
}
