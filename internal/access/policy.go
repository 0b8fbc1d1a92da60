// Package access implements the authorization predicates gating every
// mutating operation.
//
// Each policy answers a request-level question (may this method be attempted
// at all) and, optionally, an object-level question (may this method be
// applied to this resource). Services evaluate the request level before
// loading anything and the object level after the target has been loaded, so a
// missing resource is reported as not found rather than forbidden.
package access

import (
	"net/http"

	"yamdb/internal/apperr"
	"yamdb/pkg/models"
)

// Requester is the identity behind a request. The zero value is anonymous.
type Requester struct {
	UserID      int64
	Username    string
	Role        models.Role
	IsSuperuser bool
}

func Anonymous() Requester { return Requester{} }

func (r Requester) Authenticated() bool { return r.UserID != 0 }

func (r Requester) hasRole(roles ...models.Role) bool {
	for _, role := range roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// Request carries the method and the requester into every policy and
// service call.
type Request struct {
	Method    string
	Requester Requester
}

func NewRequest(method string, who Requester) Request {
	return Request{Method: method, Requester: who}
}

// Safe reports whether the method is read-only.
func (r Request) Safe() bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Owned is implemented by resources that have an author.
type Owned interface {
	OwnerID() int64
}

type Policy interface {
	HasPermission(req Request) bool
}

// ObjectPolicy is a Policy with an additional per-resource stage.
type ObjectPolicy interface {
	Policy
	HasObjectPermission(req Request, obj Owned) bool
}

// Check evaluates the request-level stage of p.
func Check(p Policy, req Request) error {
	if p.HasPermission(req) {
		return nil
	}
	return denied(req)
}

// CheckObject evaluates the object-level stage of p. Policies without an
// object stage always pass.
func CheckObject(p Policy, req Request, obj Owned) error {
	op, ok := p.(ObjectPolicy)
	if !ok || op.HasObjectPermission(req, obj) {
		return nil
	}
	return denied(req)
}

func denied(req Request) error {
	if !req.Requester.Authenticated() {
		return apperr.NotAuthenticated()
	}
	return apperr.PermissionDenied()
}

// OwnerOrStaffOrReadOnly lets anyone read, any authenticated user create,
// and only the author, moderators, admins and superusers change a resource.
type OwnerOrStaffOrReadOnly struct{}

func (OwnerOrStaffOrReadOnly) HasPermission(req Request) bool {
	return req.Safe() || req.Requester.Authenticated()
}

func (OwnerOrStaffOrReadOnly) HasObjectPermission(req Request, obj Owned) bool {
	if req.Safe() {
		return true
	}
	who := req.Requester
	if !who.Authenticated() {
		return false
	}
	return obj.OwnerID() == who.UserID ||
		who.hasRole(models.RoleModerator, models.RoleAdmin) ||
		who.IsSuperuser
}

// AdminOrReadOnly lets anyone read and only admins or superusers write.
type AdminOrReadOnly struct{}

func (AdminOrReadOnly) HasPermission(req Request) bool {
	if req.Safe() {
		return true
	}
	who := req.Requester
	if !who.Authenticated() {
		return false
	}
	return who.IsSuperuser || who.hasRole(models.RoleAdmin)
}

// UserRole admits authenticated users whose role is exactly "user".
// Superusers are not admitted.
type UserRole struct{}

func (UserRole) HasPermission(req Request) bool {
	return req.Requester.Authenticated() && req.Requester.hasRole(models.RoleUser)
}

// ModeratorRole admits authenticated users whose role is exactly "moderator".
// Superusers are not admitted.
type ModeratorRole struct{}

func (ModeratorRole) HasPermission(req Request) bool {
	return req.Requester.Authenticated() && req.Requester.hasRole(models.RoleModerator)
}

// AdminRole admits superusers and authenticated admins, for every method.
type AdminRole struct{}

func (AdminRole) HasPermission(req Request) bool {
	if req.Requester.IsSuperuser {
		return true
	}
	return req.Requester.Authenticated() && req.Requester.hasRole(models.RoleAdmin)
}

type Authenticated struct{}

func (Authenticated) HasPermission(req Request) bool {
	return req.Requester.Authenticated()
}

type AllowAny struct{}

func (AllowAny) HasPermission(Request) bool { return true }
