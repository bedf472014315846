package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/entries"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/exports"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/users"
)

// -------- test fakes --------

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.Identity
	getErr error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*models.Identity{}} }

func (m *memUsers) Create(ctx context.Context, identity *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == identity.Email {
			return common.ErrorAlreadyExists
		}
	}
	cp := *identity
	m.byID[identity.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByEmailForUpdate(ctx context.Context, email string) (*models.Identity, error) {
	return m.GetByEmail(ctx, email)
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) RecordFailure(ctx context.Context, id string, count int, lockedUntil *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.FailedAttemptCount = count
	u.LockedUntil = lockedUntil
	return nil
}

func (m *memUsers) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.FailedAttemptCount = 0
	u.LockedUntil = nil
	u.LastLoginAt = &at
	return nil
}

func (m *memUsers) ResetLockout(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.FailedAttemptCount = 0
	u.LockedUntil = nil
	return nil
}

func (m *memUsers) get(t *testing.T, email string) *models.Identity {
	t.Helper()
	u, err := m.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("identity %s: %v", email, err)
	}
	return u
}

type memRefresh struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func newMemRefresh() *memRefresh { return &memRefresh{tokens: map[string]models.RefreshToken{}} }

func (m *memRefresh) Save(ctx context.Context, userID, hash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = models.RefreshToken{UserID: userID, TokenHash: hash, Expires: expires}
	return nil
}

func (m *memRefresh) Rotate(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tokens[userID]
	if !ok || cur.TokenHash != oldHash {
		return common.ErrVersionConflict
	}
	m.tokens[userID] = models.RefreshToken{UserID: userID, TokenHash: newHash, Expires: expires}
	return nil
}

// current returns the stored digest row, for assertions.
func (m *memRefresh) current(userID string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tokens[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &cur, nil
}

func (m *memRefresh) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

type memEntries struct {
	mu        sync.Mutex
	byID      map[string]*models.VaultEntry
	createErr error
}

func newMemEntries() *memEntries { return &memEntries{byID: map[string]*models.VaultEntry{}} }

func (m *memEntries) Create(ctx context.Context, e *models.VaultEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	e.CreatedAt, e.UpdatedAt = time.Now(), time.Now()
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEntries) Get(ctx context.Context, userID, id string) (*models.VaultEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok || e.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEntries) List(ctx context.Context, userID string) ([]*models.VaultEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.VaultEntry
	for _, e := range m.byID {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Site < out[j].Site })
	return out, nil
}

func (m *memEntries) Update(ctx context.Context, e *models.VaultEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[e.ID]
	if !ok || cur.UserID != e.UserID {
		return common.ErrorNotFound
	}
	e.UpdatedAt = time.Now()
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEntries) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok || e.UserID != userID {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	return nil
}

type memExports struct {
	mu      sync.Mutex
	byID    map[string]*models.Export
	markErr error
}

func newMemExports() *memExports { return &memExports{byID: map[string]*models.Export{}} }

func (m *memExports) Create(ctx context.Context, e *models.Export) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Status == "" {
		e.Status = models.ExportPending
	}
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memExports) MarkUploaded(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	e, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	e.Status = models.ExportCompleted
	return nil
}

func (m *memExports) ListByUser(ctx context.Context, userID string) ([]*models.Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Export
	for _, e := range m.byID {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	users   *memUsers
	refresh *memRefresh
	entries *memEntries
	exports *memExports
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:   newMemUsers(),
		refresh: newMemRefresh(),
		entries: newMemEntries(),
		exports: newMemExports(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeRepoManager) Entries(dbx.DBTX) entries.Repository             { return m.entries }
func (m *fakeRepoManager) Exports(dbx.DBTX) exports.Repository             { return m.exports }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}
