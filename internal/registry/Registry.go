package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/logging"
	"github.com/forceu/uploadrelay/internal/models"
	"github.com/jinzhu/copier"
)

// SignalStore is the part of the shared signal store used by the registry
type SignalStore interface {
	RequestCancel(sessionId string) (bool, error)
	GetOutcome(sessionId string) (models.SessionStatus, bool, error)
	Purge(sessionId string) error
}

// Registry holds all sessions of the bot process. Sessions are not persisted
type Registry struct {
	sessions map[string]*entry
	mutex    sync.RWMutex
	store    SignalStore
	now      func() time.Time
	newId    func() string
}

type entry struct {
	session  models.UploadSession
	stopTask context.CancelFunc
}

const maxIdAttempts = 10

// New returns an empty registry. store is used for cancelling processing sessions and reading the outcome of jobs
func New(store SignalStore) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		store:    store,
		now:      time.Now,
		newId:    helper.GenerateSessionId,
	}
}

// Create registers a new pending session and returns a copy of it
func (r *Registry) Create(owner string, service models.Service, files []models.FileRef) (models.UploadSession, error) {
	if owner == "" {
		return models.UploadSession{}, fmt.Errorf("%w: missing owner", models.ErrValidation)
	}
	if _, ok := models.ParseService(string(service)); !ok {
		return models.UploadSession{}, fmt.Errorf("%w: unsupported service %q", models.ErrValidation, service)
	}
	if len(files) == 0 {
		return models.UploadSession{}, fmt.Errorf("%w: no file provided", models.ErrValidation)
	}
	for i, file := range files {
		if err := file.Validate(); err != nil {
			return models.UploadSession{}, fmt.Errorf("%w: file %d: %v", models.ErrValidation, i+1, err)
		}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	id, err := r.getUnusedId()
	if err != nil {
		return models.UploadSession{}, err
	}
	session := models.UploadSession{
		Id:        id,
		Owner:     owner,
		Service:   service,
		Files:     copyFiles(files),
		Status:    models.StatusPending,
		CreatedAt: r.now(),
	}
	r.sessions[id] = &entry{session: session}
	logging.LogSessionCreated(session)
	return snapshot(session), nil
}

func (r *Registry) getUnusedId() (string, error) {
	for i := 0; i < maxIdAttempts; i++ {
		id := r.newId()
		if _, exists := r.sessions[id]; !exists {
			return id, nil
		}
	}
	return "", errors.New("could not generate an unused session id")
}

// Get returns a copy of the session
func (r *Registry) Get(sessionId string) (models.UploadSession, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	current, ok := r.sessions[sessionId]
	if !ok {
		return models.UploadSession{}, models.ErrNotFound
	}
	return snapshot(current.session), nil
}

// Transition changes the status of the session. Only the owner may change the status and only
// along the allowed transitions. Leaving processing stops the bound task
func (r *Registry) Transition(sessionId, requester string, newStatus models.SessionStatus) (models.UploadSession, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	current, ok := r.sessions[sessionId]
	if !ok {
		return models.UploadSession{}, models.ErrNotFound
	}
	if current.session.Owner != requester {
		return models.UploadSession{}, models.ErrUnauthorized
	}
	err := r.transitionLocked(current, newStatus)
	if err != nil {
		return models.UploadSession{}, err
	}
	return snapshot(current.session), nil
}

func (r *Registry) transitionLocked(current *entry, newStatus models.SessionStatus) error {
	oldStatus := current.session.Status
	if !oldStatus.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, oldStatus, newStatus)
	}
	current.session.Status = newStatus
	if oldStatus == models.StatusProcessing {
		current.stop()
	}
	logging.LogSessionTransition(current.session.Id, oldStatus, newStatus)
	return nil
}

// SetStatusMessage stores the coordinates of the message that shows the progress of the session
func (r *Registry) SetStatusMessage(sessionId, requester string, chatId int64, messageId int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	current, ok := r.sessions[sessionId]
	if !ok {
		return models.ErrNotFound
	}
	if current.session.Owner != requester {
		return models.ErrUnauthorized
	}
	current.session.ChatId = chatId
	current.session.MessageId = messageId
	return nil
}

// BindTask binds the cancel function of a background task to the session. The task is stopped as soon as
// the session leaves processing or is removed. If this already happened, it is stopped immediately
func (r *Registry) BindTask(sessionId string, stopTask context.CancelFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	current, ok := r.sessions[sessionId]
	if !ok || current.session.Status != models.StatusProcessing {
		stopTask()
		return
	}
	current.stop()
	current.stopTask = stopTask
}

// Remove deletes the session from the registry and stops its bound task
func (r *Registry) Remove(sessionId string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.removeLocked(sessionId, "removed")
}

func (r *Registry) removeLocked(sessionId, reason string) {
	current, ok := r.sessions[sessionId]
	if !ok {
		return
	}
	current.stop()
	delete(r.sessions, sessionId)
	logging.LogSessionRemoved(sessionId, reason)
}

// Cancel cancels a pending or processing session on behalf of the owner and removes it from the registry.
// For processing sessions a cancellation marker is created first, which the worker checks before each file.
// If the marker cannot be created, the session is kept and the error is returned
func (r *Registry) Cancel(sessionId, requester string) (models.UploadSession, error) {
	status, err := r.cancellableStatus(sessionId, requester)
	if err != nil {
		return models.UploadSession{}, err
	}
	if status == models.StatusProcessing {
		// The store is not accessed while holding the lock, it may be a network call
		created, err := r.store.RequestCancel(sessionId)
		if err != nil {
			return models.UploadSession{}, fmt.Errorf("could not create cancellation marker: %w", err)
		}
		logging.LogCancelRequested(sessionId, requester, created)
	}

	r.mutex.Lock()
	current, ok := r.sessions[sessionId]
	if !ok {
		r.mutex.Unlock()
		return models.UploadSession{}, models.ErrNotFound
	}
	if current.session.Status != status {
		r.mutex.Unlock()
		if status == models.StatusPending && current.session.Status == models.StatusProcessing {
			// confirmed in the meantime, the worker needs a marker now
			return r.Cancel(sessionId, requester)
		}
		return models.UploadSession{}, fmt.Errorf("%w: session is already %s", models.ErrInvalidTransition, current.session.Status)
	}
	defer r.mutex.Unlock()
	err = r.transitionLocked(current, models.StatusCancelled)
	if err != nil {
		return models.UploadSession{}, err
	}
	result := snapshot(current.session)
	r.removeLocked(sessionId, "cancelled")
	return result, nil
}

func (r *Registry) cancellableStatus(sessionId, requester string) (models.SessionStatus, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	current, ok := r.sessions[sessionId]
	if !ok {
		return "", models.ErrNotFound
	}
	if current.session.Owner != requester {
		return "", models.ErrUnauthorized
	}
	status := current.session.Status
	if status != models.StatusPending && status != models.StatusProcessing {
		return "", fmt.Errorf("%w: session is already %s", models.ErrInvalidTransition, status)
	}
	return status, nil
}

// ListByOwner returns copies of all sessions of a user, oldest first
func (r *Registry) ListByOwner(owner string) []models.UploadSession {
	r.mutex.RLock()
	result := make([]models.UploadSession, 0)
	for _, current := range r.sessions {
		if current.session.Owner == owner {
			result = append(result, snapshot(current.session))
		}
	}
	r.mutex.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Id < result[j].Id
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// CollectGarbage removes all sessions older than maxAge and returns the number of removed sessions
func (r *Registry) CollectGarbage(maxAge time.Duration) int {
	cutOff := r.now().Add(-maxAge)
	r.mutex.Lock()
	defer r.mutex.Unlock()
	removed := 0
	for id, current := range r.sessions {
		if current.session.CreatedAt.Before(cutOff) {
			r.removeLocked(id, "expired")
			removed++
		}
	}
	return removed
}

// Reconcile checks the signal store for outcomes reported by workers and moves the matching processing
// sessions into the reported terminal status. Markers of reconciled sessions are purged.
// Returns copies of all reconciled sessions
func (r *Registry) Reconcile() ([]models.UploadSession, error) {
	r.mutex.RLock()
	processing := make([]string, 0)
	for id, current := range r.sessions {
		if current.session.Status == models.StatusProcessing {
			processing = append(processing, id)
		}
	}
	r.mutex.RUnlock()

	var result []models.UploadSession
	var errs []error
	for _, id := range processing {
		outcome, ok, err := r.store.GetOutcome(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
			continue
		}
		if !ok || !outcome.IsTerminal() {
			continue
		}
		session, changed := r.applyOutcome(id, outcome)
		if !changed {
			continue
		}
		result = append(result, session)
		err = r.store.Purge(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return result, errors.Join(errs...)
}

func (r *Registry) applyOutcome(sessionId string, outcome models.SessionStatus) (models.UploadSession, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	current, ok := r.sessions[sessionId]
	if !ok || current.session.Status != models.StatusProcessing {
		return models.UploadSession{}, false
	}
	if r.transitionLocked(current, outcome) != nil {
		return models.UploadSession{}, false
	}
	return snapshot(current.session), true
}

func (e *entry) stop() {
	if e.stopTask != nil {
		e.stopTask()
		e.stopTask = nil
	}
}

func snapshot(session models.UploadSession) models.UploadSession {
	session.Files = copyFiles(session.Files)
	return session
}

func copyFiles(files []models.FileRef) []models.FileRef {
	result := make([]models.FileRef, 0, len(files))
	err := copier.CopyWithOption(&result, &files, copier.Option{DeepCopy: true})
	helper.Check(err)
	return result
}
