// Package models содержит доменные структуры брокера: учетные записи,
// роли и шаблоны отпечатков пальцев.
package models

// Role роль учетной записи в системе.
type Role string

const (
	// RoleAdmin — администратор зала.
	RoleAdmin Role = "admin"
	// RoleTrainer — тренер зала.
	RoleTrainer Role = "trainer"
	// RoleUser — обычный участник; не может аутентифицировать устройство захвата.
	RoleUser Role = "user"
)

// IsStaff сообщает, разрешено ли роли аутентифицировать устройство захвата.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleTrainer
}

// User представляет учетную запись участника или сотрудника зала.
// Идентификаторы назначаются внешней системой учета.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	GymID        int64  `json:"gym_id"`
	IsActive     bool   `json:"is_active"`
}
