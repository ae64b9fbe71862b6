package session

import (
	"context"
	"fmt"
	"sync"
)

// Manager tracks at most one controller per (teacher, course, section) so
// sessions on different sections run concurrently while repeated start
// triggers for the same section are rejected.
type Manager struct {
	newController func() *Controller

	mu       sync.Mutex
	sessions map[string]*Controller
}

func NewManager(newController func() *Controller) *Manager {
	return &Manager{
		newController: newController,
		sessions:      make(map[string]*Controller),
	}
}

func sessionKey(teacherID, courseID, sectionID int) string {
	return fmt.Sprintf("%d:%d:%d", teacherID, courseID, sectionID)
}

// Start launches a session for the selection, reusing the slot's controller
// once its previous run has returned to Idle.
func (m *Manager) Start(ctx context.Context, teacherID, courseID, sectionID int) (*Controller, error) {
	m.mu.Lock()
	ctrl, ok := m.sessions[sessionKey(teacherID, courseID, sectionID)]
	if !ok {
		ctrl = m.newController()
		m.sessions[sessionKey(teacherID, courseID, sectionID)] = ctrl
	}
	m.mu.Unlock()

	if err := ctrl.Start(ctx, teacherID, courseID, sectionID); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// Get returns the controller for a selection, if one was ever started.
func (m *Manager) Get(teacherID, courseID, sectionID int) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.sessions[sessionKey(teacherID, courseID, sectionID)]
	return ctrl, ok
}

// Stop signals the selection's session; ErrNotRunning when there is none.
func (m *Manager) Stop(teacherID, courseID, sectionID int) error {
	ctrl, ok := m.Get(teacherID, courseID, sectionID)
	if !ok || ctrl.State() == StateIdle {
		return ErrNotRunning
	}
	ctrl.Stop()
	return nil
}
