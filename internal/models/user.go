package models

import "time"

// User - публичный профиль пользователя.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// IsAdmin сообщает, есть ли у пользователя роль администратора.
func (u User) IsAdmin() bool {
	return HasRole(u.Roles, RoleAdmin)
}

// LoginResponse - ответ POST /auth/login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// CurrentUser - запись о вошедшем пользователе, которая сохраняется между запусками.
// Секрет (пароль) сюда никогда не попадает.
type CurrentUser struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Roles       []string  `json:"roles"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	SavedAt     time.Time `json:"saved_at"`
}

// Expired сообщает, истёк ли токен записи на момент now.
func (u *CurrentUser) Expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && !now.Before(u.ExpiresAt)
}
