package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/face"
	"github.com/trezcool/mahudhurio/core/roster"
)

// consecutive dropped frames tolerated before the capture error is considered
// unrecoverable; a single dropped frame never terminates the loop.
const maxCaptureFailures = 30

const eventBufferSize = 64

type (
	Config struct {
		Store          *face.Store
		MatchThreshold float64
		MaxDuration    time.Duration
		FrameInterval  time.Duration
	}

	// Controller owns the capture loop lifecycle for one (course, section)
	// selection. The loop runs on its own goroutine; the interactive surface
	// consumes Events() and signals Stop(); it is never blocked by frame work.
	Controller struct {
		conf      Config
		camera    Camera
		detector  Detector
		feedback  Feedback
		ledger    *attendance.Ledger
		rosterSvc *roster.Service
		logger    core.Logger

		state    int32 // State, atomic
		stopFlag int32 // atomic; lock-free readable from the loop
		events   chan Event

		mu        sync.Mutex
		done      chan struct{}
		teacherID int
		courseID  int
		sectionID int
		startedAt time.Time
	}
)

func NewController(
	conf Config,
	camera Camera,
	detector Detector,
	feedback Feedback,
	ledger *attendance.Ledger,
	rosterSvc *roster.Service,
	logger core.Logger,
) *Controller {
	return &Controller{
		conf:      conf,
		camera:    camera,
		detector:  detector,
		feedback:  feedback,
		ledger:    ledger,
		rosterSvc: rosterSvc,
		logger:    logger,
		events:    make(chan Event, eventBufferSize),
	}
}

func (c *Controller) State() State { return State(atomic.LoadInt32(&c.state)) }

// Events returns the stream the interactive surface renders from. Sends are
// non-blocking: a slow consumer loses frames, never stalls the loop.
func (c *Controller) Events() <-chan Event { return c.events }

// Done is closed when the current (or last) run has fully torn down.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Start transitions Idle → Running: loads the section roster, opens the
// capture device and launches the loop goroutine. On any failure the
// controller returns to Idle with no side effects.
func (c *Controller) Start(ctx context.Context, teacherID, courseID, sectionID int) error {
	if !atomic.CompareAndSwapInt32(&c.state, int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyRunning
	}

	sectionRoster, err := c.rosterSvc.SectionRoster(ctx, sectionID)
	if err != nil {
		atomic.StoreInt32(&c.state, int32(StateIdle))
		return errors.Wrap(err, "loading section roster")
	}

	dev, err := c.camera.Open(ctx)
	if err != nil {
		atomic.StoreInt32(&c.state, int32(StateIdle))
		return errors.Wrap(ErrDeviceUnavailable, err.Error())
	}

	now := time.Now()

	c.mu.Lock()
	c.done = make(chan struct{})
	c.teacherID, c.courseID, c.sectionID = teacherID, courseID, sectionID
	c.startedAt = now
	done := c.done
	c.mu.Unlock()

	atomic.StoreInt32(&c.stopFlag, 0)

	go c.run(dev, sectionRoster, now.Add(c.conf.MaxDuration), done)
	return nil
}

// Stop signals the loop cooperatively; it is observed on the next iteration.
// Safe to call repeatedly and when idle.
func (c *Controller) Stop() {
	atomic.StoreInt32(&c.stopFlag, 1)
}

func (c *Controller) stopRequested() bool {
	return atomic.LoadInt32(&c.stopFlag) == 1
}

func (c *Controller) run(dev Device, sectionRoster roster.Roster, deadline time.Time, done chan struct{}) {
	ctx := context.Background()
	reason := StopRequested
	dedup := make(map[string]struct{})
	captureFailures := 0

	defer func() {
		atomic.StoreInt32(&c.state, int32(StateStopping))
		if err := dev.Release(); err != nil {
			c.logger.Error("releasing capture device: "+err.Error(), err)
		}
		c.emit(Event{Kind: KindStopped, Reason: reason})
		atomic.StoreInt32(&c.state, int32(StateIdle))
		close(done)
	}()

	for {
		if c.stopRequested() {
			reason = StopRequested
			return
		}
		if time.Now().After(deadline) {
			reason = StopTimeout
			return
		}

		frame, err := dev.ReadFrame(ctx)
		if err != nil {
			captureFailures++
			if captureFailures >= maxCaptureFailures {
				reason = StopCaptureFailure
				c.emit(Event{Kind: KindError, Err: errors.Wrap(err, "capture failed repeatedly")})
				return
			}
			c.emit(Event{Kind: KindError, Err: errors.Wrap(err, "capturing frame")})
			c.pause()
			continue
		}
		captureFailures = 0

		faces, err := c.detector.DetectFaces(ctx, frame)
		if err != nil {
			// keep the live view alive with the raw frame
			c.emit(Event{Kind: KindError, Err: errors.Wrap(err, "detecting faces")})
			c.emit(Event{Kind: KindFrame, Frame: &frame})
			c.pause()
			continue
		}

		results := make([]FaceResult, 0, len(faces))
		for _, f := range faces {
			results = append(results, c.processFace(ctx, f, sectionRoster, dedup))
		}
		c.emit(Event{Kind: KindFrame, Frame: &frame, Faces: results})

		c.pause()
	}
}

// processFace matches one detected face, gates it against the roster and, on a
// first sighting, writes the ledger and fires feedback. Ledger failures are
// reported and the student stays eligible for a retry on a later frame.
func (c *Controller) processFace(ctx context.Context, f DetectedFace, sectionRoster roster.Roster, dedup map[string]struct{}) FaceResult {
	res := FaceResult{Box: f.Box}

	match := c.conf.Store.Match(f.Descriptor, c.conf.MatchThreshold)
	if match == nil {
		return res
	}
	student, enrolled := sectionRoster.Student(match.StudentID)
	if !enrolled {
		// recognized but wrong section: present as Unknown
		return res
	}

	res.Matched = true
	res.RollNo = student.RollNo
	res.Name = student.FullName
	res.Distance = match.Distance

	if _, seen := dedup[student.RollNo]; seen {
		return res
	}
	dedup[student.RollNo] = struct{}{}

	now := time.Now()
	key := attendance.Key{
		TeacherID: c.teacherID,
		CourseID:  c.courseID,
		SectionID: c.sectionID,
		RollNo:    student.RollNo,
		Date:      now,
	}
	outcome, err := c.ledger.MarkPresentIfAbsent(ctx, key, now)
	if err != nil {
		delete(dedup, student.RollNo)
		c.emit(Event{Kind: KindError, Err: errors.Wrap(err, "marking "+student.RollNo+" present")})
		return res
	}

	if outcome == attendance.OutcomeInserted {
		c.feedback.Announce(student.RollNo, student.FullName)
	}
	c.emit(Event{Kind: KindMarked, Marked: &MarkedStudent{
		RollNo:  student.RollNo,
		Name:    student.FullName,
		Outcome: outcome,
		At:      now,
	}})
	return res
}

func (c *Controller) pause() {
	if c.conf.FrameInterval > 0 {
		time.Sleep(c.conf.FrameInterval)
	}
}

// emit never blocks the loop on a slow consumer: when the buffer is full the
// oldest event is dropped, so the freshest state (and the final Stopped event)
// always gets through.
func (c *Controller) emit(e Event) {
	for {
		select {
		case c.events <- e:
			return
		default:
			select {
			case <-c.events:
			default:
			}
		}
	}
}
