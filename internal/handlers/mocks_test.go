package handlers_test

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/handlers"
	"github.com/scribehub/identity-core/internal/platform/config"
)

// testEnv bundles the mocked service container and a router with the full
// production route table, so every suite exercises real middleware ordering.
type testEnv struct {
	router    *gin.Engine
	local     *MockLocalAuthSvc
	directory *MockDirectoryAuthSvc
	guest     *MockGuestAuthSvc
	federated *MockFederatedAuthSvc
	identity  *MockIdentitySvc
	user      *MockUserSvc
	token     *MockBearerTokenSvc
	session   *MockSessionSvc
	guard     *MockSessionGuard
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		local:     new(MockLocalAuthSvc),
		directory: new(MockDirectoryAuthSvc),
		guest:     new(MockGuestAuthSvc),
		federated: new(MockFederatedAuthSvc),
		identity:  new(MockIdentitySvc),
		user:      new(MockUserSvc),
		token:     new(MockBearerTokenSvc),
		session:   new(MockSessionSvc),
		guard:     new(MockSessionGuard),
	}

	services := &portssvc.ServiceContainer{
		User:      env.user,
		Identity:  env.identity,
		Token:     env.token,
		Session:   env.session,
		Guard:     env.guard,
		Local:     env.local,
		Directory: env.directory,
		Federated: env.federated,
		Guest:     env.guest,
	}

	cfg := &config.Config{
		Port:              "8080",
		SessionLifetime:   24 * time.Hour,
		SessionCookieName: "sid",
		FederatedInstances: []config.FederatedInstance{
			{ID: "corp-idp", IssuerURL: "https://idp.example.com", ClientID: "scribehub-app", SyncSource: true},
		},
	}

	env.router = gin.New()
	handlers.RegisterRoutes(env.router, cfg, services, nil)
	return env
}

// --- Mock LocalAuthSvc ---

type MockLocalAuthSvc struct {
	mock.Mock
}

func (m *MockLocalAuthSvc) Register(ctx context.Context, username, password, displayName string) (*domain.User, error) {
	args := m.Called(ctx, username, password, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockLocalAuthSvc) Authenticate(ctx context.Context, username, password string) (*domain.Identity, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockLocalAuthSvc) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}

var _ portssvc.LocalAuthSvc = (*MockLocalAuthSvc)(nil)

// --- Mock DirectoryAuthSvc ---

type MockDirectoryAuthSvc struct {
	mock.Mock
}

func (m *MockDirectoryAuthSvc) Login(ctx context.Context, instanceID, username, password string) (*domain.Identity, error) {
	args := m.Called(ctx, instanceID, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

var _ portssvc.DirectoryAuthSvc = (*MockDirectoryAuthSvc)(nil)

// --- Mock GuestAuthSvc ---

type MockGuestAuthSvc struct {
	mock.Mock
}

func (m *MockGuestAuthSvc) BeginGuest(ctx context.Context, session *domain.SessionRecord, displayName string) (*domain.User, error) {
	args := m.Called(ctx, session, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

var _ portssvc.GuestAuthSvc = (*MockGuestAuthSvc)(nil)

// --- Mock FederatedAuthSvc ---

type MockFederatedAuthSvc struct {
	mock.Mock
}

func (m *MockFederatedAuthSvc) BeginLogin(ctx context.Context, instanceID string, session *domain.SessionRecord) (string, error) {
	args := m.Called(ctx, instanceID, session)
	return args.String(0), args.Error(1)
}

func (m *MockFederatedAuthSvc) CompleteLogin(ctx context.Context, instanceID string, session *domain.SessionRecord, code, state string) (*domain.ExternalProfile, error) {
	args := m.Called(ctx, instanceID, session, code, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExternalProfile), args.Error(1)
}

func (m *MockFederatedAuthSvc) ResolveIdentity(ctx context.Context, instanceID, subjectID string) (*domain.Identity, error) {
	args := m.Called(ctx, instanceID, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockFederatedAuthSvc) LogoutURL(ctx context.Context, session *domain.SessionRecord) (string, error) {
	args := m.Called(ctx, session)
	return args.String(0), args.Error(1)
}

func (m *MockFederatedAuthSvc) ProcessBackchannelLogout(ctx context.Context, instanceID, logoutToken string) error {
	args := m.Called(ctx, instanceID, logoutToken)
	return args.Error(0)
}

var _ portssvc.FederatedAuthSvc = (*MockFederatedAuthSvc)(nil)

// --- Mock IdentitySvc ---

type MockIdentitySvc struct {
	mock.Mock
}

func (m *MockIdentitySvc) FindByExternalSubject(ctx context.Context, kind domain.ProviderKind, instance, subjectID string) (*domain.Identity, error) {
	args := m.Called(ctx, kind, instance, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockIdentitySvc) Link(ctx context.Context, userID int64, kind domain.ProviderKind, instance, subjectID string, syncSource bool) (*domain.Identity, error) {
	args := m.Called(ctx, userID, kind, instance, subjectID, syncSource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
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

var _ portssvc.IdentitySvc = (*MockIdentitySvc)(nil)

// --- Mock UserSvcFacade ---

type MockUserSvc struct {
	mock.Mock
}

func (m *MockUserSvc) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

var _ portssvc.UserSvcFacade = (*MockUserSvc)(nil)

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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionRecord), args.Error(1)
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

var _ portssvc.SessionSvc = (*MockSessionSvc)(nil)

// --- Mock SessionGuard ---

type MockSessionGuard struct {
	mock.Mock
}

func (m *MockSessionGuard) ResolvePrincipal(ctx context.Context, session *domain.SessionRecord) (*domain.Principal, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

var _ portssvc.SessionGuard = (*MockSessionGuard)(nil)

// --- Mock BearerTokenSvc ---

type MockBearerTokenSvc struct {
	mock.Mock
}

func (m *MockBearerTokenSvc) Issue(ctx context.Context, userID int64, label string, requestedExpiry time.Duration) (string, *domain.BearerToken, error) {
	args := m.Called(ctx, userID, label, requestedExpiry)
	var token *domain.BearerToken
	if args.Get(1) != nil {
		token = args.Get(1).(*domain.BearerToken)
	}
	return args.String(0), token, args.Error(2)
}

func (m *MockBearerTokenSvc) Validate(ctx context.Context, tokenString string) (int64, error) {
	args := m.Called(ctx, tokenString)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBearerTokenSvc) List(ctx context.Context, userID int64) ([]domain.BearerToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BearerToken), args.Error(1)
}

func (m *MockBearerTokenSvc) Revoke(ctx context.Context, userID int64, keyID string) error {
	args := m.Called(ctx, userID, keyID)
	return args.Error(0)
}

func (m *MockBearerTokenSvc) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var _ portssvc.BearerTokenSvc = (*MockBearerTokenSvc)(nil)
