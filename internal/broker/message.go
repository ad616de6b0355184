package broker

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Типы входящих сообщений протокола устройства захвата.
// Множество закрыто: неизвестный тег отклоняется на границе.
const (
	TypeLogin                = "login"
	TypeFingerprintConnected = "fingerprint_connected"
	TypeUser                 = "user"
	TypeStoreFingerprint     = "store_fingerprint"
	TypeDownloadTemplates    = "download_templates"
	TypeEnrollmentCompleted  = "enrollment_completed"
	TypeDisconnect           = "disconnect"
)

var (
	// ErrUnknownType — сообщение с незнакомым тегом type.
	ErrUnknownType = errors.New("broker: unknown message type")
	// ErrMalformedMessage — сообщение не разобралось как JSON.
	ErrMalformedMessage = errors.New("broker: malformed message")
)

// LoginData учетные данные из сообщения login.
type LoginData struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Message входящее сообщение протокола: плоский JSON-объект с обязательным
// дискриминатором type. Значимость остальных полей зависит от типа.
type Message struct {
	Type            string     `json:"type"`
	LoginData       *LoginData `json:"login_data,omitempty"`
	GymID           string     `json:"gym_id,omitempty"`
	UserID          string     `json:"user_id,omitempty"`
	FingerprintData string     `json:"fingerprint_data,omitempty"`
	Finger          int        `json:"finger,omitempty"`
}

// ParseMessage декодирует входящее сообщение и отклоняет неизвестные теги.
func ParseMessage(raw []byte) (*Message, error) {
	const op = "broker.ParseMessage"

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedMessage, err)
	}
	switch msg.Type {
	case TypeLogin, TypeFingerprintConnected, TypeUser, TypeStoreFingerprint,
		TypeDownloadTemplates, TypeEnrollmentCompleted, TypeDisconnect:
		return &msg, nil
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownType, msg.Type)
	}
}
