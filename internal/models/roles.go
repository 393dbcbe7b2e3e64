package models

import "slices"

// Роли пользователей, как их выдает сервер в токене и в ответе логина.
const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"
)

// HasRole сообщает, есть ли role среди roles.
func HasRole(roles []string, role string) bool {
	return slices.Contains(roles, role)
}
