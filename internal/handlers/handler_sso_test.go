package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	"github.com/scribehub/identity-core/internal/dto"
)

type SSOHandlerTestSuite struct {
	suite.Suite
	env *testEnv
}

func (suite *SSOHandlerTestSuite) SetupTest() {
	suite.env = newTestEnv()
}

func (suite *SSOHandlerTestSuite) perform(method, path string, body []byte, contentType, cookie string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	suite.Require().NoError(err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: cookie})
	}
	w := httptest.NewRecorder()
	suite.env.router.ServeHTTP(w, req)
	return w
}

func ssoSession(id string) *domain.SessionRecord {
	return &domain.SessionRecord{
		SessionID: id,
		SSO: &domain.SSOHandshake{
			InstanceID:   "corp-idp",
			CodeVerifier: "verifier",
			State:        "state-nonce",
		},
	}
}

func (suite *SSOHandlerTestSuite) TestBeginLogin_RedirectsToProvider() {
	authURL := "https://idp.example.com/authorize?client_id=scribehub-app&code_challenge=xyz"
	suite.env.session.On("Begin", mock.Anything).
		Return(&domain.SessionRecord{SessionID: "anon-session"}, "anon-cookie", nil).Once()
	suite.env.federated.On("BeginLogin", mock.Anything, "corp-idp", mock.AnythingOfType("*domain.SessionRecord")).
		Return(authURL, nil).Once()
	suite.env.session.On("Save", mock.Anything, mock.AnythingOfType("*domain.SessionRecord")).Return(nil).Once()

	w := suite.perform(http.MethodGet, "/auth/sso/corp-idp/login", nil, "", "")

	suite.Equal(http.StatusFound, w.Code)
	suite.Equal(authURL, w.Header().Get("Location"))
	suite.Contains(w.Header().Get("Set-Cookie"), "sid=anon-cookie")
}

func (suite *SSOHandlerTestSuite) TestBeginLogin_UnknownInstance() {
	suite.env.session.On("Begin", mock.Anything).
		Return(&domain.SessionRecord{SessionID: "anon-session"}, "anon-cookie", nil).Once()
	suite.env.federated.On("BeginLogin", mock.Anything, "nope", mock.Anything).
		Return("", apperrors.ErrNotFound).Once()

	w := suite.perform(http.MethodGet, "/auth/sso/nope/login", nil, "", "")

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *SSOHandlerTestSuite) TestCallback_WithoutSession() {
	w := suite.perform(http.MethodGet, "/auth/sso/corp-idp/callback?code=abc&state=xyz", nil, "", "")

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.env.federated.AssertNotCalled(suite.T(), "CompleteLogin",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SSOHandlerTestSuite) TestCallback_MissingCode() {
	record := ssoSession("handshake-session")
	suite.env.session.On("Resolve", mock.Anything, "hs-cookie").Return(record, nil).Once()

	w := suite.perform(http.MethodGet, "/auth/sso/corp-idp/callback?state=state-nonce", nil, "", "hs-cookie")

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *SSOHandlerTestSuite) TestCallback_ExistingIdentityLogsIn() {
	record := ssoSession("handshake-session")
	profile := &domain.ExternalProfile{SubjectID: "subject-1", Username: "alice", DisplayName: "Alice"}
	identity := &domain.Identity{UserID: 42, Kind: domain.ProviderFederated, ProviderInstance: "corp-idp", SubjectID: "subject-1"}

	suite.env.session.On("Resolve", mock.Anything, "hs-cookie").Return(record, nil).Once()
	suite.env.federated.On("CompleteLogin", mock.Anything, "corp-idp", record, "auth-code", "state-nonce").
		Return(profile, nil).Once()
	suite.env.federated.On("ResolveIdentity", mock.Anything, "corp-idp", "subject-1").
		Return(identity, nil).Once()
	suite.env.identity.On("MaybeSyncProfile", mock.Anything, identity, *profile).Return(nil).Once()
	suite.env.user.On("GetUserByID", mock.Anything, int64(42)).Return(testUser(42, "alice"), nil).Once()
	suite.env.session.On("Terminate", mock.Anything, "handshake-session").Return(nil).Once()
	suite.env.session.On("Begin", mock.Anything).
		Return(&domain.SessionRecord{SessionID: "logged-in-session"}, "li-cookie", nil).Once()
	suite.env.session.On("Save", mock.Anything, mock.AnythingOfType("*domain.SessionRecord")).Return(nil)

	w := suite.perform(http.MethodGet,
		"/auth/sso/corp-idp/callback?code=auth-code&state=state-nonce", nil, "", "hs-cookie")

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.SSOCallbackResult
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.LoggedIn)
	suite.Require().NotNil(resp.User)
	suite.Equal("alice", resp.User.Username)
	suite.Nil(resp.Proposal)
	suite.env.session.AssertExpectations(suite.T())
}

func (suite *SSOHandlerTestSuite) TestCallback_NewSubjectReturnsProposal() {
	record := ssoSession("handshake-session")
	profile := &domain.ExternalProfile{SubjectID: "subject-9", Username: "newbie", Email: "newbie@example.com"}

	suite.env.session.On("Resolve", mock.Anything, "hs-cookie").Return(record, nil).Once()
	suite.env.federated.On("CompleteLogin", mock.Anything, "corp-idp", record, "auth-code", "state-nonce").
		Return(profile, nil).Once()
	suite.env.session.On("Save", mock.Anything, record).Return(nil).Once()
	suite.env.federated.On("ResolveIdentity", mock.Anything, "corp-idp", "subject-9").
		Return(nil, nil).Once()

	w := suite.perform(http.MethodGet,
		"/auth/sso/corp-idp/callback?code=auth-code&state=state-nonce", nil, "", "hs-cookie")

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.SSOCallbackResult
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.False(resp.LoggedIn)
	suite.Nil(resp.User)
	suite.Require().NotNil(resp.Proposal)
	suite.Equal("newbie", resp.Proposal.Username)
}

func (suite *SSOHandlerTestSuite) TestCallback_StateMismatchStillPersistsSession() {
	record := ssoSession("handshake-session")
	suite.env.session.On("Resolve", mock.Anything, "hs-cookie").Return(record, nil).Once()
	suite.env.federated.On("CompleteLogin", mock.Anything, "corp-idp", record, "auth-code", "forged-state").
		Return(nil, apperrors.ErrUnauthorized).Once()
	// The consumed one-time handshake values must be persisted even on failure.
	suite.env.session.On("Save", mock.Anything, record).Return(nil).Once()

	w := suite.perform(http.MethodGet,
		"/auth/sso/corp-idp/callback?code=auth-code&state=forged-state", nil, "", "hs-cookie")

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.env.session.AssertExpectations(suite.T())
}

func (suite *SSOHandlerTestSuite) TestCallback_RegistrationDisabled() {
	record := ssoSession("handshake-session")
	profile := &domain.ExternalProfile{SubjectID: "subject-9"}

	suite.env.session.On("Resolve", mock.Anything, "hs-cookie").Return(record, nil).Once()
	suite.env.federated.On("CompleteLogin", mock.Anything, "corp-idp", record, "auth-code", "state-nonce").
		Return(profile, nil).Once()
	suite.env.session.On("Save", mock.Anything, record).Return(nil).Once()
	suite.env.federated.On("ResolveIdentity", mock.Anything, "corp-idp", "subject-9").
		Return(nil, apperrors.ErrRegistrationDisabled).Once()

	w := suite.perform(http.MethodGet,
		"/auth/sso/corp-idp/callback?code=auth-code&state=state-nonce", nil, "", "hs-cookie")

	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *SSOHandlerTestSuite) TestConfirmRegistration_Success() {
	record := &domain.SessionRecord{
		SessionID: "handshake-session",
		Pending: &domain.PendingRegistration{
			Kind:             domain.ProviderFederated,
			ProviderInstance: "corp-idp",
			SubjectID:        "subject-9",
			Proposal:         domain.ExternalProfile{SubjectID: "subject-9", Username: "newbie"},
		},
	}
	created := testUser(77, "newbie")

	suite.env.session.On("Resolve", mock.Anything, "hs-cookie").Return(record, nil).Once()
	suite.env.identity.On("CreateUserWithIdentity", mock.Anything, record.Pending.Proposal,
		mock.Anything, domain.ProviderFederated, "corp-idp", "subject-9", true).
		Return(created, &domain.Identity{UserID: 77}, nil).Once()
	suite.env.session.On("Terminate", mock.Anything, "handshake-session").Return(nil).Once()
	suite.env.session.On("Begin", mock.Anything).
		Return(&domain.SessionRecord{SessionID: "registered-session"}, "reg-cookie", nil).Once()
	suite.env.session.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.SessionRecord) bool {
		return r.Login.UserID == 77 && r.Pending == nil
	})).Return(nil).Once()

	body, _ := json.Marshal(dto.ConfirmRegistrationRequest{Username: "newbie"})
	w := suite.perform(http.MethodPost, "/auth/sso/corp-idp/register", body, "application/json", "hs-cookie")

	suite.Equal(http.StatusCreated, w.Code)
	suite.env.identity.AssertExpectations(suite.T())
	suite.env.session.AssertExpectations(suite.T())
}

func (suite *SSOHandlerTestSuite) TestConfirmRegistration_NoPendingProposal() {
	record := &domain.SessionRecord{SessionID: "plain-session"}
	suite.env.session.On("Resolve", mock.Anything, "hs-cookie").Return(record, nil).Once()

	w := suite.perform(http.MethodPost, "/auth/sso/corp-idp/register", nil, "", "hs-cookie")

	suite.Equal(http.StatusConflict, w.Code)
	suite.env.identity.AssertNotCalled(suite.T(), "CreateUserWithIdentity",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SSOHandlerTestSuite) TestConfirmRegistration_InstanceMismatch() {
	record := &domain.SessionRecord{
		SessionID: "handshake-session",
		Pending: &domain.PendingRegistration{
			Kind:             domain.ProviderFederated,
			ProviderInstance: "other-idp",
			SubjectID:        "subject-9",
		},
	}
	suite.env.session.On("Resolve", mock.Anything, "hs-cookie").Return(record, nil).Once()

	w := suite.perform(http.MethodPost, "/auth/sso/corp-idp/register", nil, "", "hs-cookie")

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *SSOHandlerTestSuite) postBackchannel(instance string, form url.Values) *httptest.ResponseRecorder {
	return suite.perform(http.MethodPost, "/auth/sso/"+instance+"/backchannel-logout",
		[]byte(form.Encode()), "application/x-www-form-urlencoded", "")
}

func (suite *SSOHandlerTestSuite) TestBackchannelLogout_Success() {
	suite.env.federated.On("ProcessBackchannelLogout", mock.Anything, "corp-idp", "signed-logout-token").
		Return(nil).Once()

	w := suite.postBackchannel("corp-idp", url.Values{"logout_token": {"signed-logout-token"}})

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("no-store", w.Header().Get("Cache-Control"))
}

func (suite *SSOHandlerTestSuite) TestBackchannelLogout_MissingToken() {
	w := suite.postBackchannel("corp-idp", url.Values{})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("no-store", w.Header().Get("Cache-Control"))
	suite.env.federated.AssertNotCalled(suite.T(), "ProcessBackchannelLogout",
		mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SSOHandlerTestSuite) TestBackchannelLogout_InvalidToken() {
	suite.env.federated.On("ProcessBackchannelLogout", mock.Anything, "corp-idp", "garbage").
		Return(apperrors.ErrValidation).Once()

	w := suite.postBackchannel("corp-idp", url.Values{"logout_token": {"garbage"}})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("no-store", w.Header().Get("Cache-Control"))
}

func (suite *SSOHandlerTestSuite) TestBackchannelLogout_NeverSetsSessionCookie() {
	suite.env.federated.On("ProcessBackchannelLogout", mock.Anything, "corp-idp", "signed-logout-token").
		Return(nil).Once()

	w := suite.postBackchannel("corp-idp", url.Values{"logout_token": {"signed-logout-token"}})

	suite.Equal(http.StatusOK, w.Code)
	suite.False(strings.Contains(w.Header().Get("Set-Cookie"), "sid="))
}

func TestSSOHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SSOHandlerTestSuite))
}
