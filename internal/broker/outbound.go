package broker

import "github.com/santiagoe16/gym-access-broker/internal/models"

// Типы исходящих сообщений. Клиенты ветвятся по полю type;
// тексты ошибок — локализованный вспомогательный материал.
const (
	TypeError                  = "error"
	TypeConnected              = "connected"
	TypeFingerprintEstablished = "fingerprint_connection_stablished"
	TypeUserFound              = "user_found"
	TypeUserNotFound           = "user_not_found"
	TypeStartEnrollment        = "start_enrollment"
	TypeFingerprintStored      = "fingerprint_stored"
	TypeStoreError             = "store_error"
	TypeTemplateDataSet        = "template_data_set"
)

// ErrorMessage общая протокольная ошибка. Соединение остается открытым.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newError(text string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Error: text}
}

func newStoreError(text string) ErrorMessage {
	return ErrorMessage{Type: TypeStoreError, Error: text}
}

// ConnectedMessage подтверждение успешной аутентификации устройства.
type ConnectedMessage struct {
	Type string `json:"type"`
}

func newConnected() ConnectedMessage {
	return ConnectedMessage{Type: TypeConnected}
}

// FingerprintEstablishedMessage подтверждение готовности устройства,
// эхом возвращающее идентификатор зала.
type FingerprintEstablishedMessage struct {
	Type  string `json:"type"`
	GymID string `json:"gym_id"`
}

// MemberMessage сообщение с профилем участника: подтверждение поиска
// устройству (user_found) и приглашение участнику (start_enrollment).
type MemberMessage struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// UserNotFoundMessage типизированный ответ на неудачный поиск участника,
// чтобы клиенты не разбирали текст ошибки.
type UserNotFoundMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// FingerprintStoredMessage подтверждение сохранения шаблона.
type FingerprintStoredMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// TemplateDataSetMessage выгрузка расшифрованных шаблонов для
// офлайн-сопоставления, упорядоченная по идентификатору участника.
type TemplateDataSetMessage struct {
	Type string                  `json:"type"`
	Data []models.TemplateRecord `json:"data"`
}

// EnrollmentCompletedMessage уведомление участника о завершении регистрации.
type EnrollmentCompletedMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}
