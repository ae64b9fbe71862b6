// Package feedbacksvc provides best-effort audio/speech announcers for
// marked students. Announcers never block the capture loop and never
// surface errors to it.
package feedbacksvc

import (
	"fmt"
	"log"
	"sync"

	"github.com/trezcool/mahudhurio/core/session"
)

type consoleAnnouncer struct {
	disableOutput bool

	mu        sync.Mutex
	announced []string
}

var _ session.Feedback = (*consoleAnnouncer)(nil)

func NewConsoleAnnouncer() *consoleAnnouncer {
	return &consoleAnnouncer{}
}

func (a *consoleAnnouncer) Announce(rollNo, name string) {
	a.mu.Lock()
	a.announced = append(a.announced, rollNo)
	a.mu.Unlock()

	if !a.disableOutput {
		// BEL rings the terminal where supported
		log.Printf("\aattendance marked: %s", fmt.Sprintf("%s (%s)", name, rollNo))
	}
}

type consoleAnnouncerMock struct {
	consoleAnnouncer
}

func NewConsoleAnnouncerMock() *consoleAnnouncerMock {
	return &consoleAnnouncerMock{consoleAnnouncer{disableOutput: true}}
}

func (a *consoleAnnouncerMock) Announced() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.announced))
	copy(out, a.announced)
	return out
}
