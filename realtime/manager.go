// Package realtime owns the live queries scoped to one client session: the
// membership scope (projects the principal belongs to) and the task scope
// (tasks of the viewed project). It is the only component that receives push
// notifications and the single writer of the materialized lists; everything
// else reads them or issues commands.
package realtime

import (
	"context"
	"sync"

	"taskboard/sync-service/logging"
	"taskboard/sync-service/models"
	"taskboard/sync-service/store"
)

const (
	projectsCollection = "projects"
	tasksCollection    = "tasks"

	membershipScope = "membership"
	taskScope       = "tasks"
)

// Event is one snapshot delivery fanned out to view-layer listeners. Exactly
// one of Projects/Tasks is set, matching Scope.
type Event struct {
	Scope    string           `json:"scope"`
	Projects []models.Project `json:"projects,omitempty"`
	Tasks    []models.Task    `json:"tasks,omitempty"`
}

// Manager establishes, re-scopes and disposes the session's subscriptions as
// the principal or the viewed project changes.
type Manager struct {
	store store.DocumentStore

	membership scope
	tasks      scope

	mu           sync.Mutex
	principalID  string
	projectID    string
	projects     []models.Project
	taskList     []models.Task
	listeners    map[int]func(Event)
	nextListener int
}

func NewManager(docStore store.DocumentStore) *Manager {
	return &Manager{
		store:      docStore,
		membership: scope{name: membershipScope},
		tasks:      scope{name: taskScope},
		listeners:  make(map[int]func(Event)),
	}
}

// SetPrincipal re-scopes the membership subscription to the given principal.
// The old scope is cancelled, not merged: its generation is dead before the
// new registration starts, so a late delivery for the old principal can never
// land in the new principal's list. An empty id (sign-out, token expiry)
// clears everything. The viewed project resets with the principal.
func (m *Manager) SetPrincipal(ctx context.Context, principalID string) error {
	m.tasks.dispose()

	m.mu.Lock()
	m.principalID = principalID
	m.projectID = ""
	m.taskList = nil
	m.mu.Unlock()

	if principalID == "" {
		m.membership.dispose()
		m.mu.Lock()
		m.projects = nil
		m.mu.Unlock()
		return nil
	}

	gen := m.membership.begin()
	query := store.Query{
		Collection: projectsCollection,
		Wheres:     []store.Where{{Field: "users", Op: store.OpArrayContains, Value: principalID}},
		OrderBy:    "createdAt",
		Ascending:  true,
	}

	cancel, err := m.store.Subscribe(ctx, query, func(docs []store.Doc) {
		m.onMembershipSnapshot(gen, docs)
	})
	if err != nil {
		m.membership.fail(gen)
		return models.NewRemoteError("failed to subscribe to project list", err)
	}
	if !m.membership.attach(gen, cancel) {
		cancel()
	}
	return nil
}

// SetProject re-scopes the task subscription to the viewed project. An empty
// id deactivates the task scope.
func (m *Manager) SetProject(ctx context.Context, projectID string) error {
	m.mu.Lock()
	m.projectID = projectID
	m.mu.Unlock()

	if projectID == "" {
		m.tasks.dispose()
		m.mu.Lock()
		m.taskList = nil
		m.mu.Unlock()
		return nil
	}

	gen := m.tasks.begin()
	query := store.Query{
		Collection: tasksCollection,
		Wheres:     []store.Where{{Field: "projectId", Op: store.OpEqual, Value: projectID}},
		OrderBy:    "createdAt",
		Ascending:  true,
	}

	cancel, err := m.store.Subscribe(ctx, query, func(docs []store.Doc) {
		m.onTaskSnapshot(gen, docs)
	})
	if err != nil {
		m.tasks.fail(gen)
		return models.NewRemoteError("failed to subscribe to task list", err)
	}
	if !m.tasks.attach(gen, cancel) {
		cancel()
	}
	return nil
}

// Close disposes both scopes. Safe to call more than once.
func (m *Manager) Close() {
	m.membership.dispose()
	m.tasks.dispose()
}

// Projects returns the materialized membership list.
func (m *Manager) Projects() []models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Project, len(m.projects))
	copy(out, m.projects)
	return out
}

// Tasks returns the materialized task list for the viewed project.
func (m *Manager) Tasks() []models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Task, len(m.taskList))
	copy(out, m.taskList)
	return out
}

// ProjectID returns the currently viewed project id.
func (m *Manager) ProjectID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projectID
}

// PrincipalID returns the principal the membership scope is bound to.
func (m *Manager) PrincipalID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.principalID
}

// OnSnapshot registers a listener for materialized-list replacements and
// returns its removal func.
func (m *Manager) OnSnapshot(fn func(Event)) func() {
	m.mu.Lock()
	key := m.nextListener
	m.nextListener++
	m.listeners[key] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, key)
		m.mu.Unlock()
	}
}

// MembershipState and TaskState expose scope lifecycle states.
func (m *Manager) MembershipState() ScopeState { return m.membership.State() }
func (m *Manager) TaskState() ScopeState       { return m.tasks.State() }

// copyListeners snapshots the listener set. Caller holds m.mu.
func (m *Manager) copyListeners() []func(Event) {
	listeners := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func (m *Manager) onMembershipSnapshot(gen uint64, docs []store.Doc) {
	if !m.membership.accept(gen) {
		return
	}

	projects := make([]models.Project, 0, len(docs))
	for _, doc := range docs {
		var p models.Project
		if err := doc.Decode(&p); err != nil {
			logging.Logger.Warnf("Event ID: SNAPSHOT_DECODE_FAILED, Description: Skipping undecodable project document %s: %v", doc.ID, err)
			continue
		}
		projects = append(projects, p)
	}

	// Full replace; the store already computed the diff.
	m.mu.Lock()
	m.projects = projects
	listeners := m.copyListeners()
	m.mu.Unlock()

	snapshotsDelivered.WithLabelValues(membershipScope).Inc()
	event := Event{Scope: membershipScope, Projects: projects}
	for _, fn := range listeners {
		fn(event)
	}
}

func (m *Manager) onTaskSnapshot(gen uint64, docs []store.Doc) {
	if !m.tasks.accept(gen) {
		return
	}

	tasks := make([]models.Task, 0, len(docs))
	for _, doc := range docs {
		var t models.Task
		if err := doc.Decode(&t); err != nil {
			logging.Logger.Warnf("Event ID: SNAPSHOT_DECODE_FAILED, Description: Skipping undecodable task document %s: %v", doc.ID, err)
			continue
		}
		tasks = append(tasks, t)
	}

	m.mu.Lock()
	m.taskList = tasks
	listeners := m.copyListeners()
	m.mu.Unlock()

	snapshotsDelivered.WithLabelValues(taskScope).Inc()
	event := Event{Scope: taskScope, Tasks: tasks}
	for _, fn := range listeners {
		fn(event)
	}
}
