package academic

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

// Policy is the role allow-list of a resource.
type Policy struct {
	Read  []auth.Role
	Write []auth.Role
	// TenantScoped resources are only reachable by Principals bound to a college.
	TenantScoped bool
}

var (
	CollegePolicy = Policy{
		Read:  []auth.Role{auth.RoleAdmin, auth.RoleTenantAdmin},
		Write: []auth.Role{auth.RoleAdmin},
	}
	DepartmentPolicy = Policy{
		Read:         []auth.Role{auth.RoleTenantAdmin, auth.RoleStaff},
		Write:        []auth.Role{auth.RoleTenantAdmin},
		TenantScoped: true,
	}
	ClassPolicy   = DepartmentPolicy
	SubjectPolicy = Policy{
		Read:         []auth.Role{auth.RoleTenantAdmin, auth.RoleStaff, auth.RoleMember},
		Write:        []auth.Role{auth.RoleTenantAdmin},
		TenantScoped: true,
	}
	StudentPolicy = DepartmentPolicy
	ExamPolicy    = Policy{
		Read:         []auth.Role{auth.RoleTenantAdmin, auth.RoleStaff, auth.RoleMember},
		Write:        []auth.Role{auth.RoleTenantAdmin, auth.RoleStaff},
		TenantScoped: true,
	}
	ResultPolicy = Policy{
		Read:         []auth.Role{auth.RoleTenantAdmin, auth.RoleStaff},
		Write:        []auth.Role{auth.RoleTenantAdmin, auth.RoleStaff},
		TenantScoped: true,
	}
)

// Service enforces a Policy over a Repository.
// The college a request works in always comes from the Principal, never from the request data.
type Service[T Model[T]] struct {
	repo     Repository[T]
	policy   Policy
	validate *validator.Validate
}

func NewService[T Model[T]](repo Repository[T], policy Policy, validate *validator.Validate) *Service[T] {
	return &Service[T]{repo: repo, policy: policy, validate: validate}
}

// Policy returns the allow-list the Service enforces.
func (svc *Service[T]) Policy() Policy { return svc.policy }

// scope returns the college p works in, nil meaning every college.
func (svc *Service[T]) scope(p *auth.Principal, roles []auth.Role) (*int64, error) {
	if p == nil {
		return nil, core.ErrUnauthenticated
	}
	if !p.HasAnyRole(roles...) {
		return nil, core.ErrForbidden
	}
	// a nil scope means every college: only admins get it
	if p.TenantID == nil && (svc.policy.TenantScoped || p.Role != auth.RoleAdmin) {
		return nil, core.ErrForbidden
	}
	return p.TenantID, nil
}

func (svc *Service[T]) Query(ctx context.Context, p *auth.Principal, q Query) ([]T, error) {
	tenantID, err := svc.scope(p, svc.policy.Read)
	if err != nil {
		return nil, err
	}
	if err = svc.checkQuery(q); err != nil {
		return nil, err
	}
	return svc.repo.Find(ctx, tenantID, q)
}

func (svc *Service[T]) Get(ctx context.Context, p *auth.Principal, id int64) (T, error) {
	var zero T
	tenantID, err := svc.scope(p, svc.policy.Read)
	if err != nil {
		return zero, err
	}
	return svc.repo.Get(ctx, tenantID, id)
}

func (svc *Service[T]) Create(ctx context.Context, p *auth.Principal, rec T) (T, error) {
	var zero T
	tenantID, err := svc.scope(p, svc.policy.Write)
	if err != nil {
		return zero, err
	}
	if err = svc.check(ctx, tenantID, rec); err != nil {
		return zero, err
	}
	return svc.repo.Create(ctx, tenantID, rec)
}

func (svc *Service[T]) Update(ctx context.Context, p *auth.Principal, id int64, rec T) (T, error) {
	var zero T
	tenantID, err := svc.scope(p, svc.policy.Write)
	if err != nil {
		return zero, err
	}
	if err = svc.check(ctx, tenantID, rec); err != nil {
		return zero, err
	}
	return svc.repo.Update(ctx, tenantID, id, rec)
}

func (svc *Service[T]) Delete(ctx context.Context, p *auth.Principal, id int64) error {
	tenantID, err := svc.scope(p, svc.policy.Write)
	if err != nil {
		return err
	}
	return svc.repo.Delete(ctx, tenantID, id)
}

// check validates rec and makes sure its references live in the same college.
func (svc *Service[T]) check(ctx context.Context, tenantID *int64, rec T) error {
	if err := svc.validate.Struct(rec); err != nil {
		return err
	}
	refs := rec.Refs()
	if len(refs) == 0 {
		return nil
	}
	if tenantID == nil {
		// only tenant scoped tables have references
		return errors.Errorf("%s: references without a college", rec.Table())
	}

	var flds []core.FieldError
	for _, ref := range refs {
		ok, err := svc.repo.Exists(ctx, *tenantID, ref)
		if err != nil {
			return errors.Wrapf(err, "checking %s", ref.Field)
		}
		if !ok {
			flds = append(flds, core.FieldError{Field: ref.Field, Error: "not found"})
		}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (svc *Service[T]) checkQuery(q Query) error {
	var zero T
	allowed := zero.Filters()

	var flds []core.FieldError
	for col := range q.Filters {
		if !contains(allowed, col) {
			flds = append(flds, core.FieldError{Field: col, Error: "unknown filter"})
		}
	}
	columns := Columns(zero)
	for _, ord := range q.Ordering {
		if !contains(columns, ord.Field) {
			flds = append(flds, core.FieldError{Field: "ordering", Error: fmt.Sprintf("unknown field %q", ord.Field)})
		}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Columns lists the readable columns of e.
func Columns(e Entity) []string {
	cols := []string{"id", "created_at", "updated_at"}
	if e.TenantColumn() != "id" {
		cols = append(cols, e.TenantColumn())
	}
	for col := range e.Values() {
		cols = append(cols, col)
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
