package model

import (
	"strings"

	"github.com/google/uuid"
)

// Default role codes
const (
	RoleAdmin      = "ADMIN"
	RoleUser       = "USER"
	RoleClient     = "CLIENT"
	RoleSystemUser = "SYSTEM_USER"
)

// Role represents a named permission group
type Role struct {
	Base
	Code   string `gorm:"type:varchar(100);uniqueIndex;not null" json:"code" binding:"required"`
	Name   string `gorm:"type:varchar(255);not null" json:"name" binding:"required"`
	Weight int    `gorm:"not null;default:1" json:"weight"`
}

// ProjectRoute is one registered (uri, method) endpoint
type ProjectRoute struct {
	Base
	URI       string `gorm:"type:varchar(255);not null;uniqueIndex:idx_route_uri_method,priority:1" json:"uri" binding:"required"`
	Method    string `gorm:"type:varchar(10);not null;uniqueIndex:idx_route_uri_method,priority:2" json:"method" binding:"required,oneof=GET POST PUT DELETE"`
	RouteName string `gorm:"type:varchar(255);not null;index" json:"route_name" binding:"required"`
}

// RouteMethods are the methods a ProjectRoute may be stored with
var RouteMethods = []string{"GET", "POST", "PUT", "DELETE"}

// IsRouteMethod reports whether an already normalized method may be stored
func IsRouteMethod(method string) bool {
	for _, m := range RouteMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Normalize puts uri, method and route name into their stored form
func (r *ProjectRoute) Normalize() {
	r.URI = NormalizeURI(r.URI)
	r.Method = NormalizeMethod(r.Method)
	if r.RouteName == "" && r.URI != "" {
		r.RouteName = RouteName(r.URI)
	}
}

// RouteRole grants a role access to a route
type RouteRole struct {
	Base
	RouteID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_route_role,priority:1" json:"routeId" binding:"required"`
	RoleID  uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_route_role,priority:2;index" json:"roleId" binding:"required"`
	Route   *ProjectRoute `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE" json:"route,omitempty"`
	Role    *Role         `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"role,omitempty"`
}

// UserRole assigns a role to a principal
type UserRole struct {
	Base
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_role,priority:1" json:"userId" binding:"required"`
	RoleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_role,priority:2;index" json:"roleId" binding:"required"`
	User   *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Role   *Role     `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"role,omitempty"`
}

// RoleCode normalizes a role name to its code form
func RoleCode(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// NormalizeURI lowercases a route template and drops a trailing slash so
// seed and lookup agree
func NormalizeURI(path string) string {
	uri := strings.ToLower(strings.TrimSpace(path))
	if len(uri) > 1 {
		uri = strings.TrimRight(uri, "/")
		if uri == "" {
			uri = "/"
		}
	}
	return uri
}

// NormalizeMethod uppercases an HTTP method
func NormalizeMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}

// RouteName derives the slug stored next to a route uri
func RouteName(path string) string {
	return strings.ReplaceAll(NormalizeURI(path), "/", "_")
}
