package auth

import (
	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

// Permission names one gated operation.
type Permission string

const (
	ManageCategories Permission = "categories:manage"
	ReadItems        Permission = "items:read"
	ManageItems      Permission = "items:manage"
	ReadOrders       Permission = "orders:read"
	CreateOrders     Permission = "orders:create"
	RefundOrders     Permission = "orders:refund"
	PrintReceipts    Permission = "orders:receipt"
	ViewReports      Permission = "reports:read"
)

var permissions = map[model.Role]map[Permission]bool{
	model.RoleAdmin: {
		ManageCategories: true,
		ReadItems:        true,
		ManageItems:      true,
		ReadOrders:       true,
		CreateOrders:     true,
		RefundOrders:     true,
		PrintReceipts:    true,
		ViewReports:      true,
	},
	model.RoleUser: {
		ReadItems:     true,
		ReadOrders:    true,
		CreateOrders:  true,
		PrintReceipts: true,
	},
}

// Allowed reports whether role may perform perm.
func Allowed(role model.Role, perm Permission) bool {
	return permissions[role][perm]
}

// Require fails with Forbidden unless the caller's role grants perm.
func Require(who model.Identity, perm Permission) error {
	if !Allowed(who.Role, perm) {
		return apperr.E("auth.Require", apperr.Forbidden, "Access denied")
	}
	return nil
}
