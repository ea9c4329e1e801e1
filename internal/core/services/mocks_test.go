package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
)

// --- Mock BearerTokenRepository ---

type MockBearerTokenRepository struct {
	mock.Mock
}

func (m *MockBearerTokenRepository) Create(ctx context.Context, token *domain.BearerToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockBearerTokenRepository) FindByKeyID(ctx context.Context, keyID string) (*domain.BearerToken, error) {
	args := m.Called(ctx, keyID)
	var token *domain.BearerToken
	if args.Get(0) != nil {
		token = args.Get(0).(*domain.BearerToken)
	}
	return token, args.Error(1)
}

func (m *MockBearerTokenRepository) ListByUserID(ctx context.Context, userID int64) ([]domain.BearerToken, error) {
	args := m.Called(ctx, userID)
	var tokens []domain.BearerToken
	if args.Get(0) != nil {
		tokens = args.Get(0).([]domain.BearerToken)
	}
	return tokens, args.Error(1)
}

func (m *MockBearerTokenRepository) CountByUserID(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockBearerTokenRepository) UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error {
	args := m.Called(ctx, keyID, at)
	return args.Error(0)
}

func (m *MockBearerTokenRepository) Delete(ctx context.Context, keyID string) error {
	args := m.Called(ctx, keyID)
	return args.Error(0)
}

func (m *MockBearerTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock UserRepository ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// --- Mock IdentityRepository ---

type MockIdentityRepository struct {
	mock.Mock
}

func (m *MockIdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockIdentityRepository) FindByExternalSubject(ctx context.Context, kind domain.ProviderKind, instance, subjectID string) (*domain.Identity, error) {
	args := m.Called(ctx, kind, instance, subjectID)
	var identity *domain.Identity
	if args.Get(0) != nil {
		identity = args.Get(0).(*domain.Identity)
	}
	return identity, args.Error(1)
}

func (m *MockIdentityRepository) FindLocalByUserID(ctx context.Context, userID int64) (*domain.Identity, error) {
	args := m.Called(ctx, userID)
	var identity *domain.Identity
	if args.Get(0) != nil {
		identity = args.Get(0).(*domain.Identity)
	}
	return identity, args.Error(1)
}

func (m *MockIdentityRepository) UpdatePasswordHash(ctx context.Context, identityID int64, passwordHash string) error {
	args := m.Called(ctx, identityID, passwordHash)
	return args.Error(0)
}

func (m *MockIdentityRepository) CreateUserWithIdentity(ctx context.Context, user *domain.User, identity *domain.Identity) error {
	args := m.Called(ctx, user, identity)
	return args.Error(0)
}

// --- Mock SessionStore ---

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Put(ctx context.Context, record *domain.SessionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	args := m.Called(ctx, sessionID)
	var record *domain.SessionRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.SessionRecord)
	}
	return record, args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionStore) DeleteByUserID(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionStore) DeleteByProviderSession(ctx context.Context, instanceID, providerSessionID string) (int, error) {
	args := m.Called(ctx, instanceID, providerSessionID)
	return args.Int(0), args.Error(1)
}

// --- Mock IdentitySvc ---

type MockIdentitySvc struct {
	mock.Mock
}

func (m *MockIdentitySvc) FindByExternalSubject(ctx context.Context, kind domain.ProviderKind, instance, subjectID string) (*domain.Identity, error) {
	args := m.Called(ctx, kind, instance, subjectID)
	var identity *domain.Identity
	if args.Get(0) != nil {
		identity = args.Get(0).(*domain.Identity)
	}
	return identity, args.Error(1)
}

func (m *MockIdentitySvc) Link(ctx context.Context, userID int64, kind domain.ProviderKind, instance, subjectID string, syncSource bool) (*domain.Identity, error) {
	args := m.Called(ctx, userID, kind, instance, subjectID, syncSource)
	var identity *domain.Identity
	if args.Get(0) != nil {
		identity = args.Get(0).(*domain.Identity)
	}
	return identity, args.Error(1)
}

func (m *MockIdentitySvc) CreateUserWithIdentity(ctx context.Context, proposal domain.ExternalProfile, edits portssvc.ProfileEdits, kind domain.ProviderKind, instance, subjectID string, syncSource bool) (*domain.User, *domain.Identity, error) {
	args := m.Called(ctx, proposal, edits, kind, instance, subjectID, syncSource)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	var identity *domain.Identity
	if args.Get(1) != nil {
		identity = args.Get(1).(*domain.Identity)
	}
	return user, identity, args.Error(2)
}

func (m *MockIdentitySvc) MaybeSyncProfile(ctx context.Context, identity *domain.Identity, proposal domain.ExternalProfile) error {
	args := m.Called(ctx, identity, proposal)
	return args.Error(0)
}

// --- Mock SessionSvc ---

type MockSessionSvc struct {
	mock.Mock
}

func (m *MockSessionSvc) Begin(ctx context.Context) (*domain.SessionRecord, string, error) {
	args := m.Called(ctx)
	var record *domain.SessionRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.SessionRecord)
	}
	return record, args.String(1), args.Error(2)
}

func (m *MockSessionSvc) Resolve(ctx context.Context, cookieValue string) (*domain.SessionRecord, error) {
	args := m.Called(ctx, cookieValue)
	var record *domain.SessionRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.SessionRecord)
	}
	return record, args.Error(1)
}

func (m *MockSessionSvc) Save(ctx context.Context, record *domain.SessionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSessionSvc) Terminate(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionSvc) TerminateAllForUser(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionSvc) TerminateByProviderSession(ctx context.Context, instanceID, providerSessionID string) (int, error) {
	args := m.Called(ctx, instanceID, providerSessionID)
	return args.Int(0), args.Error(1)
}

// --- Mock UserSvcFacade ---

type MockUserSvc struct {
	mock.Mock
}

func (m *MockUserSvc) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}
