package feedbacksvc

import (
	"fmt"
	"os/exec"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/session"
)

// package-level for mocking
var execCommandFunc = func(name string, arg ...string) error {
	return exec.Command(name, arg...).Run()
}

// speechAnnouncer shells out to espeak for a spoken confirmation and aplay
// for the chime. Both run in the background; failures are logged and dropped.
type speechAnnouncer struct {
	chimePath string
	logger    core.Logger
}

var _ session.Feedback = (*speechAnnouncer)(nil)

func NewSpeechAnnouncer(chimePath string, logger core.Logger) *speechAnnouncer {
	return &speechAnnouncer{chimePath: chimePath, logger: logger}
}

func (a *speechAnnouncer) Announce(rollNo, name string) {
	go func() {
		if a.chimePath != "" {
			if err := execCommandFunc("aplay", "-q", a.chimePath); err != nil {
				a.logger.Warn(fmt.Sprintf("playing chime: %v", err))
			}
		}
		if err := execCommandFunc("espeak", fmt.Sprintf("Attendance marked for %s", name)); err != nil {
			a.logger.Warn(fmt.Sprintf("speaking announcement: %v", err))
		}
	}()
}
