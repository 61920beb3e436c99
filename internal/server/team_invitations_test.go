package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	authdomain "github.com/teamlane/teamlane/internal/auth/domain"
	"github.com/teamlane/teamlane/internal/auth/session"
	"github.com/teamlane/teamlane/internal/authorization"
	"github.com/teamlane/teamlane/internal/config"
	teamdomain "github.com/teamlane/teamlane/internal/team/domain"
)

type fakeAuthService struct {
	session *authdomain.Session
	authErr error
}

func (f *fakeAuthService) Register(ctx context.Context, req authdomain.RegisterRequest) (*authdomain.User, error) {
	_ = ctx
	_ = req
	return nil, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	_ = ctx
	_ = req
	return nil, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error {
	_ = ctx
	_ = rawToken
	return nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error) {
	_ = ctx
	_ = rawToken
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.session, nil
}

func (f *fakeAuthService) GetUser(ctx context.Context, id snowflake.ID) (*authdomain.User, error) {
	_ = ctx
	_ = id
	return nil, nil
}

func (f *fakeAuthService) GetUserByEmail(ctx context.Context, email string) (*authdomain.User, error) {
	_ = ctx
	_ = email
	return nil, nil
}

func (f *fakeAuthService) UpdateProfile(ctx context.Context, id snowflake.ID, req authdomain.UpdateProfileRequest) (*authdomain.User, error) {
	_ = ctx
	_ = id
	_ = req
	return nil, nil
}

type fakeAuthzService struct {
	err   error
	calls int
}

func (f *fakeAuthzService) Authorize(ctx context.Context, actor, teamID, object, action string) error {
	f.calls++
	_ = ctx
	_ = actor
	_ = teamID
	_ = object
	_ = action
	return f.err
}

type fakeTeamService struct {
	inviteCalls   int
	lastInviter   snowflake.ID
	lastTeamID    string
	lastInvite    teamdomain.InviteRequest
	inviteResult  *teamdomain.InvitationItem
	inviteErr     error
	acceptCalls   int
	lastAccepter  snowflake.ID
	lastInviteID  string
	acceptResult  *teamdomain.MemberItem
	acceptErr     error
	declineCalls  int
	pendingResult []teamdomain.PendingInvitationItem
}

func (f *fakeTeamService) Create(ctx context.Context, userID snowflake.ID, req teamdomain.CreateTeamRequest) (*teamdomain.TeamResponse, error) {
	_ = ctx
	_ = userID
	_ = req
	return nil, nil
}

func (f *fakeTeamService) ListByUser(ctx context.Context, userID snowflake.ID) ([]teamdomain.TeamListItem, error) {
	_ = ctx
	_ = userID
	return nil, nil
}

func (f *fakeTeamService) GetByID(ctx context.Context, teamID string) (*teamdomain.TeamDetail, error) {
	_ = ctx
	_ = teamID
	return nil, nil
}

func (f *fakeTeamService) Update(ctx context.Context, teamID string, req teamdomain.UpdateTeamRequest) (*teamdomain.TeamResponse, error) {
	_ = ctx
	_ = teamID
	_ = req
	return nil, nil
}

func (f *fakeTeamService) Delete(ctx context.Context, teamID string) error {
	_ = ctx
	_ = teamID
	return nil
}

func (f *fakeTeamService) ListMembers(ctx context.Context, teamID string) ([]teamdomain.MemberItem, error) {
	_ = ctx
	_ = teamID
	return nil, nil
}

func (f *fakeTeamService) UpdateMemberRole(ctx context.Context, teamID string, memberID string, role string) (*teamdomain.MemberItem, error) {
	_ = ctx
	_ = teamID
	_ = memberID
	_ = role
	return nil, nil
}

func (f *fakeTeamService) RemoveMember(ctx context.Context, teamID string, memberID string) error {
	_ = ctx
	_ = teamID
	_ = memberID
	return nil
}

func (f *fakeTeamService) InviteMember(ctx context.Context, inviterID snowflake.ID, teamID string, req teamdomain.InviteRequest) (*teamdomain.InvitationItem, error) {
	f.inviteCalls++
	f.lastInviter = inviterID
	f.lastTeamID = teamID
	f.lastInvite = req
	_ = ctx
	return f.inviteResult, f.inviteErr
}

func (f *fakeTeamService) AcceptInvitation(ctx context.Context, userID snowflake.ID, invitationID string) (*teamdomain.MemberItem, error) {
	f.acceptCalls++
	f.lastAccepter = userID
	f.lastInviteID = invitationID
	_ = ctx
	return f.acceptResult, f.acceptErr
}

func (f *fakeTeamService) DeclineInvitation(ctx context.Context, userID snowflake.ID, invitationID string) error {
	f.declineCalls++
	f.lastAccepter = userID
	f.lastInviteID = invitationID
	_ = ctx
	return nil
}

func (f *fakeTeamService) ListPendingInvitations(ctx context.Context, userID snowflake.ID) ([]teamdomain.PendingInvitationItem, error) {
	_ = ctx
	_ = userID
	return f.pendingResult, nil
}

func newTestServer(teamSvc teamdomain.Service, authz authorization.Service) *Server {
	return &Server{
		cfg:      config.Config{},
		authsvc:  &fakeAuthService{session: &authdomain.Session{UserID: snowflake.ID(42), ExpiresAt: time.Now().Add(time.Hour)}},
		sessions: session.NewManager(config.Config{}),
		teamSvc:  teamSvc,
		authzSvc: authz,
	}
}

func withSession(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "raw-token"})
}

func TestInviteTeamMemberRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	teamSvc := &fakeTeamService{}
	srv := newTestServer(teamSvc, &fakeAuthzService{})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/teams/:teamID/invitations", srv.AuthRequired(), srv.InviteTeamMember)

	req := httptest.NewRequest(http.MethodPost, "/v1/teams/100/invitations", bytes.NewBufferString(`{"email":"bob@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	if teamSvc.inviteCalls != 0 {
		t.Fatal("expected invite not to reach the service")
	}
}

func TestInviteTeamMemberCreatesInvitation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	teamSvc := &fakeTeamService{
		inviteResult: &teamdomain.InvitationItem{ID: "1", TeamID: "100", Status: teamdomain.InvitationPending},
	}
	authz := &fakeAuthzService{}
	srv := newTestServer(teamSvc, authz)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/teams/:teamID/invitations",
		srv.AuthRequired(),
		srv.authorizeTeamAction(authorization.ObjectInvitation, authorization.ActionInvitationCreate),
		srv.InviteTeamMember,
	)

	req := httptest.NewRequest(http.MethodPost, "/v1/teams/100/invitations", bytes.NewBufferString(`{"email":"bob@example.com","role":"ADMIN"}`))
	req.Header.Set("Content-Type", "application/json")
	withSession(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if authz.calls != 1 {
		t.Fatalf("expected one authorization check, got %d", authz.calls)
	}
	if teamSvc.inviteCalls != 1 {
		t.Fatalf("expected one invite call, got %d", teamSvc.inviteCalls)
	}
	if teamSvc.lastInviter != snowflake.ID(42) {
		t.Fatalf("expected inviter 42, got %s", teamSvc.lastInviter)
	}
	if teamSvc.lastTeamID != "100" {
		t.Fatalf("expected team 100, got %s", teamSvc.lastTeamID)
	}
	if teamSvc.lastInvite.Email != "bob@example.com" || teamSvc.lastInvite.Role != "ADMIN" {
		t.Fatalf("unexpected invite request: %+v", teamSvc.lastInvite)
	}
}

func TestInviteTeamMemberForbiddenForNonAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	teamSvc := &fakeTeamService{}
	srv := newTestServer(teamSvc, &fakeAuthzService{err: authorization.ErrForbidden})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/teams/:teamID/invitations",
		srv.AuthRequired(),
		srv.authorizeTeamAction(authorization.ObjectInvitation, authorization.ActionInvitationCreate),
		srv.InviteTeamMember,
	)

	req := httptest.NewRequest(http.MethodPost, "/v1/teams/100/invitations", bytes.NewBufferString(`{"email":"bob@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	withSession(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
	if teamSvc.inviteCalls != 0 {
		t.Fatal("expected invite not to reach the service")
	}
}

func TestInviteTeamMemberConflictOnPending(t *testing.T) {
	gin.SetMode(gin.TestMode)

	teamSvc := &fakeTeamService{inviteErr: teamdomain.ErrInvitePending}
	srv := newTestServer(teamSvc, &fakeAuthzService{})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/teams/:teamID/invitations", srv.AuthRequired(), srv.InviteTeamMember)

	req := httptest.NewRequest(http.MethodPost, "/v1/teams/100/invitations", bytes.NewBufferString(`{"email":"bob@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	withSession(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestAcceptInvitationReturnsMembership(t *testing.T) {
	gin.SetMode(gin.TestMode)

	teamSvc := &fakeTeamService{
		acceptResult: &teamdomain.MemberItem{ID: "7", UserID: "42", Role: teamdomain.RoleMember},
	}
	srv := newTestServer(teamSvc, &fakeAuthzService{})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/invitations/:invitationID/accept", srv.AuthRequired(), srv.AcceptInvitation)

	req := httptest.NewRequest(http.MethodPost, "/v1/invitations/9/accept", nil)
	withSession(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if teamSvc.acceptCalls != 1 {
		t.Fatalf("expected one accept call, got %d", teamSvc.acceptCalls)
	}
	if teamSvc.lastAccepter != snowflake.ID(42) {
		t.Fatalf("expected accepter 42, got %s", teamSvc.lastAccepter)
	}
	if teamSvc.lastInviteID != "9" {
		t.Fatalf("expected invitation 9, got %s", teamSvc.lastInviteID)
	}
}

func TestAcceptInvitationNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	teamSvc := &fakeTeamService{acceptErr: teamdomain.ErrInvitationNotFound}
	srv := newTestServer(teamSvc, &fakeAuthzService{})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/invitations/:invitationID/accept", srv.AuthRequired(), srv.AcceptInvitation)

	req := httptest.NewRequest(http.MethodPost, "/v1/invitations/9/accept", nil)
	withSession(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestDeclineInvitationNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	teamSvc := &fakeTeamService{}
	srv := newTestServer(teamSvc, &fakeAuthzService{})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/invitations/:invitationID/decline", srv.AuthRequired(), srv.DeclineInvitation)

	req := httptest.NewRequest(http.MethodPost, "/v1/invitations/9/decline", nil)
	withSession(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if teamSvc.declineCalls != 1 {
		t.Fatalf("expected one decline call, got %d", teamSvc.declineCalls)
	}
}
