package session

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/face"
)

var (
	// errors
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrAlreadyRunning    = errors.New("a session is already running for this section")
	ErrNotRunning        = errors.New("no session is running")
)

// Frame is one captured image, opaque to the engine: the detector collaborator
// decides how to decode it.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

// Box is a face bounding box within a frame.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectedFace is one face found by the detector collaborator.
type DetectedFace struct {
	Box        Box
	Descriptor face.Descriptor
}

type (
	// Device is an open capture handle: exclusively owned by one running
	// session, released on every exit path.
	Device interface {
		ReadFrame(ctx context.Context) (Frame, error)
		Release() error
	}

	Camera interface {
		Open(ctx context.Context) (Device, error)
	}

	// Detector is the external face-descriptor extraction collaborator.
	Detector interface {
		DetectFaces(ctx context.Context, frame Frame) ([]DetectedFace, error)
	}

	// Feedback is the best-effort audio/speech side channel. Implementations
	// must return immediately and never surface errors to the session.
	Feedback interface {
		Announce(rollNo, name string)
	}
)

// State of the capture loop: Idle → Running → Stopping → Idle.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// StopReason tells why a run ended.
type StopReason string

const (
	StopRequested      StopReason = "requested"
	StopTimeout        StopReason = "timeout"
	StopCaptureFailure StopReason = "capture_failure"
)

type EventKind string

const (
	// KindFrame carries a processed (or raw, when recognition failed) frame
	// with its per-face results, for the live view.
	KindFrame EventKind = "frame"
	// KindMarked fires once per student per session, on a ledger write attempt.
	KindMarked EventKind = "marked"
	// KindError reports a transient, recovered error; the loop continues.
	KindError EventKind = "error"
	// KindStopped is the final event of a run.
	KindStopped EventKind = "stopped"
)

// FaceResult is the render model for one detected face. Unmatched faces and
// matched-but-not-enrolled faces are indistinguishable: both carry no identity.
type FaceResult struct {
	Box      Box     `json:"box"`
	Matched  bool    `json:"matched"`
	RollNo   string  `json:"roll_no,omitempty"`
	Name     string  `json:"name,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}

type MarkedStudent struct {
	RollNo  string             `json:"roll_no"`
	Name    string             `json:"name"`
	Outcome attendance.Outcome `json:"outcome"`
	At      time.Time          `json:"at"`
}

// Event is the thread-safe hand-off to whatever interactive surface is
// watching the session; the loop never touches UI state directly.
type Event struct {
	Kind   EventKind
	Frame  *Frame
	Faces  []FaceResult
	Marked *MarkedStudent
	Err    error
	Reason StopReason
}
