package user

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")

	errCollegeRequired = "this role requires a college"
	errNoPermsForRole  = "not enough rights to manage this role"
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int64) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...int64) (int, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		tokenGen tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		tokenGen: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

// canManage checks that p may create or delete users with `role` in `collegeID`.
// Admins manage everybody; college admins manage their own teachers and students.
func canManage(p *auth.Principal, role auth.Role, collegeID *int64) error {
	if p == nil {
		return core.ErrUnauthenticated
	}
	switch p.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleTenantAdmin:
		if p.TenantID == nil || collegeID == nil || *p.TenantID != *collegeID {
			return core.ErrForbidden
		}
		if !role.In(auth.RoleStaff, auth.RoleMember) {
			return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsForRole})
		}
		return nil
	default:
		return core.ErrForbidden
	}
}

// Create creates a new User on behalf of p. College admins always create users in their own college.
func (svc *Service) Create(ctx context.Context, p *auth.Principal, nu NewUser) (User, error) {
	if p != nil && p.Role == auth.RoleTenantAdmin {
		nu.CollegeID = p.TenantID // never trust the client supplied college
	}
	if nu.Role == auth.RoleAdmin {
		nu.CollegeID = nil
	} else if nu.CollegeID == nil && nu.Role != auth.RoleGuest {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "college_id", Error: errCollegeRequired})
	}
	if err := canManage(p, nu.Role, nu.CollegeID); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CollegeID: nu.CollegeID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclIDs ...int64) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Query lists the users visible to p.
func (svc *Service) Query(ctx context.Context, p *auth.Principal, filter QueryFilter) ([]User, error) {
	if p == nil {
		return nil, core.ErrUnauthenticated
	}
	switch p.Role {
	case auth.RoleAdmin:
	case auth.RoleTenantAdmin:
		if p.TenantID == nil {
			return nil, core.ErrForbidden
		}
		filter.CollegeID = p.TenantID
	default:
		return nil, core.ErrForbidden
	}
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter)
}

// Delete deletes the User with given id on behalf of p. Nobody can delete themselves.
func (svc *Service) Delete(ctx context.Context, p *auth.Principal, id int64) error {
	if p == nil {
		return core.ErrUnauthenticated
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if p.ID == strconv.FormatInt(usr.ID, 10) {
		return core.ErrForbidden
	}
	if err = canManage(p, usr.Role, usr.CollegeID); err != nil {
		if err == core.ErrForbidden && p.Role == auth.RoleTenantAdmin {
			return ErrNotFound // users of other colleges do not exist for college admins
		}
		return err
	}
	_, err = svc.repo.DeleteUsersByID(ctx, id)
	return err
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr.LastLogin = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

// SetPassword sets a new password for the User with given email.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// RequestPasswordReset mails a password reset link to the active User with given email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": svc.tokenGen.makeToken(usr),
		},
	})
	return nil
}

// ResetPassword sets a new password if the reset token is valid.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}
