package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/oplog"
)

// LoginRecorder persists login events. Implemented by oplog.Writer.
type LoginRecorder interface {
	RecordLogin(username string, userID *int64, event, ipAddress string)
}

// dummyHash keeps the bcrypt compare on the login path even when the
// username does not exist, so response timing does not leak existence.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

type Service struct {
	repo   UserRepository
	issuer *auth.TokenIssuer
	logins LoginRecorder
}

func NewService(repo UserRepository, issuer *auth.TokenIssuer, logins LoginRecorder) *Service {
	return &Service{repo: repo, issuer: issuer, logins: logins}
}

func (s *Service) principal(u *User) *auth.Principal {
	return &auth.Principal{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}
}

func (s *Service) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		auth.CheckPassword(dummyHash, password)
		if s.logins != nil {
			s.logins.RecordLogin(username, nil, oplog.EventLoginFailed, ip)
		}
		return nil, apierror.New(401, apierror.CodeInvalidCredentials, "invalid username or password")
	}
	if err != nil {
		return nil, apierror.FromPG(err, "look up user")
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		if s.logins != nil {
			s.logins.RecordLogin(username, &u.ID, oplog.EventLoginFailed, ip)
		}
		return nil, apierror.New(401, apierror.CodeInvalidCredentials, "invalid username or password")
	}

	p := s.principal(u)
	access, err := s.issuer.IssueAccessToken(p)
	if err != nil {
		return nil, apierror.Internal("failed to issue token")
	}
	refresh, err := s.issuer.IssueRefreshToken(p)
	if err != nil {
		return nil, apierror.Internal("failed to issue token")
	}

	if s.logins != nil {
		s.logins.RecordLogin(username, &u.ID, oplog.EventLoginSuccess, ip)
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Refresh verifies a refresh token and issues a fresh access token. The user
// is re-read so role or company changes take effect immediately.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	p, err := s.issuer.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", apierror.Unauthorized("invalid refresh token")
	}
	u, err := s.repo.GetByID(ctx, p.UserID)
	if err != nil {
		return "", apierror.Unauthorized("invalid refresh token")
	}
	access, err := s.issuer.IssueAccessToken(s.principal(u))
	if err != nil {
		return "", apierror.Internal("failed to issue token")
	}
	return access, nil
}

// Logout is stateless on the server. The event is recorded so session
// reporting can pair it with the matching login.
func (s *Service) Logout(p *auth.Principal, ip string) {
	if s.logins != nil && p != nil {
		s.logins.RecordLogin(p.Username, &p.UserID, oplog.EventLogout, ip)
	}
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, current, newPassword string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return apierror.NotFound("user not found")
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return apierror.New(401, apierror.CodeInvalidCredentials, "current password is incorrect")
	}
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return apierror.Validation(err.Error(), nil)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apierror.Internal("failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return apierror.FromPG(err, "change password")
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, req createUserRequest) (*User, error) {
	details := map[string]string{}
	if strings.TrimSpace(req.Username) == "" {
		details["username"] = "required"
	}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "required"
	}
	if !auth.ValidRole(req.Role) {
		details["role"] = "must be admin or user"
	}
	if len(details) > 0 {
		return nil, apierror.Validation("invalid user payload", details)
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, apierror.Validation(err.Error(), map[string]string{"password": err.Error()})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apierror.Internal("failed to hash password")
	}
	u := &User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		CompanyID:    req.CompanyID,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, apierror.FromPG(err, "create user")
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierror.NotFound("user not found")
	}
	if err != nil {
		return nil, apierror.FromPG(err, "get user")
	}
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, req updateUserRequest) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Role != "" && !auth.ValidRole(req.Role) {
		return nil, apierror.Validation("invalid role", map[string]string{"role": "must be admin or user"})
	}
	if req.Name != "" {
		u.Name = strings.TrimSpace(req.Name)
	}
	if req.Role != "" {
		u.Role = req.Role
	}
	u.CompanyID = req.CompanyID
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, apierror.FromPG(err, "update user")
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierror.NotFound("user not found")
	}
	if err != nil {
		return apierror.FromPG(err, "delete user")
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apierror.FromPG(err, "list users")
	}
	return items, total, nil
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
// Called at startup when AUTO_CREATE_ADMIN is set, and by the create-admin
// command.
func (s *Service) EnsureAdmin(ctx context.Context, username, name, password string) (created bool, err error) {
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	u := &User{Username: username, PasswordHash: hash, Name: name, Role: auth.RoleAdmin}
	if err := s.repo.Create(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
