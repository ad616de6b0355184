package broker

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator"

	"github.com/santiagoe16/gym-access-broker/internal/events"
	"github.com/santiagoe16/gym-access-broker/internal/lib/sl"
	"github.com/santiagoe16/gym-access-broker/internal/models"
	"github.com/santiagoe16/gym-access-broker/internal/services/auth"
	"github.com/santiagoe16/gym-access-broker/internal/services/directory"
)

// Локализованные тексты протокольных ошибок, как их ожидают клиенты
// устройства захвата. Программная обработка идет по полю type.
const (
	msgNotAuthenticated   = "No autenticado"
	msgInvalidCredentials = "Correo electrónico o contraseña incorrectos"
	msgUserCannotLogin    = "Los usuarios no pueden iniciar sesión en el sistema"
	msgInactiveUser       = "Usuario inactivo"
	msgUserNotFound       = "Usuario no encontrado"
	msgMissingFingerprint = "Datos de huella digital faltantes"
	msgUserNotEstablished = "Usuario no establecido"
	msgStoreFailed        = "Error al almacenar huella digital"
	msgStored             = "Huella digital almacenada exitosamente"
	msgUnknownType        = "Tipo de mensaje desconocido"
	msgMalformedMessage   = "Mensaje con formato inválido"
	msgMissingGymID       = "Identificador de gimnasio faltante"
	msgNotAllowed         = "Operación no permitida"
	msgInternalError      = "Error interno del servidor"
)

// CredentialVerifier проверяет учетные данные персонала и возвращает роль.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (models.Role, error)
}

// UserDirectory ищет участника зала по внешним идентификаторам.
type UserDirectory interface {
	FindMember(ctx context.Context, gymID, userID string) (*models.User, error)
}

// TemplateStore сохраняет и выдает зашифрованные шаблоны отпечатков.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, userID int64, finger int, ciphertext []byte) error
	ListTemplates(ctx context.Context, gymID int64) ([]*models.StoredTemplate, error)
}

// Cipher контракт шифрования шаблонов.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// EventPublisher публикует события жизненного цикла регистрации отпечатков.
type EventPublisher interface {
	Publish(routingKey string, v any) error
}

// Dispatcher протокольный автомат брокера. Создает сессии соединений;
// сообщения одной сессии обрабатываются строго последовательно, сессии
// разных соединений — независимо друг от друга.
type Dispatcher struct {
	log       *slog.Logger
	registry  *Registry
	verifier  CredentialVerifier
	directory UserDirectory
	templates TemplateStore
	cipher    Cipher
	events    EventPublisher // может быть nil
	metrics   *Metrics       // может быть nil
	validate  *validator.Validate
}

// NewDispatcher создает диспетчер с указанными коллабораторами.
func NewDispatcher(
	log *slog.Logger,
	registry *Registry,
	verifier CredentialVerifier,
	dir UserDirectory,
	templates TemplateStore,
	cipher Cipher,
	eventPub EventPublisher,
	metrics *Metrics,
) *Dispatcher {
	return &Dispatcher{
		log:       log,
		registry:  registry,
		verifier:  verifier,
		directory: dir,
		templates: templates,
		cipher:    cipher,
		events:    eventPub,
		metrics:   metrics,
		validate:  validator.New(),
	}
}

// Registry возвращает реестр соединений диспетчера.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// NewUserSession регистрирует соединение участника. Участники не проходят
// аутентификацию: соединение служит только для получения ретранслируемых
// уведомлений. Прежнее соединение того же участника вытесняется.
func (d *Dispatcher) NewUserSession(transport Transport, userID string) *Conn {
	conn := NewConn(KindUser, userID, transport)
	d.registry.Register(conn)
	return conn
}

// HandleUserMessage обрабатывает входящее сообщение соединения участника.
// Привилегированные операции на таких соединениях запрещены.
func (d *Dispatcher) HandleUserMessage(conn *Conn, raw []byte) {
	if _, err := ParseMessage(raw); err != nil {
		if errors.Is(err, ErrMalformedMessage) {
			d.send(conn, newError(msgMalformedMessage))
			return
		}
		d.send(conn, newError(msgUnknownType))
		return
	}
	d.send(conn, newError(msgNotAllowed))
}

// CloseUserSession снимает соединение участника с учета; идемпотентна.
func (d *Dispatcher) CloseUserSession(conn *Conn) {
	conn.Close()
	d.registry.Unregister(conn)
}

// GymSession состояние одного соединения устройства захвата.
// Поля не синхронизированы: сообщения одного соединения обрабатываются
// строго последовательно.
type GymSession struct {
	d    *Dispatcher
	conn *Conn

	gymID         string
	authenticated bool
	role          models.Role
	deviceReady   bool
	target        *models.User
}

// NewGymSession создает сессию устройства захвата. Соединение попадает
// в реестр только после успешного login.
func (d *Dispatcher) NewGymSession(transport Transport, gymID string) *GymSession {
	return &GymSession{
		d:    d,
		conn: NewConn(KindGym, gymID, transport),
	}
}

// Conn возвращает соединение сессии.
func (s *GymSession) Conn() *Conn {
	return s.conn
}

// Close снимает соединение с учета и сбрасывает незавершенную регистрацию
// отпечатка; идемпотентна и безопасна при гонке с обработчиком сообщения.
func (s *GymSession) Close() {
	s.conn.Close()
	s.d.registry.Unregister(s.conn)
}

// HandleRaw разбирает и обрабатывает одно входящее сообщение.
func (s *GymSession) HandleRaw(ctx context.Context, raw []byte) {
	msg, err := ParseMessage(raw)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			s.send(newError(msgUnknownType))
			return
		}
		s.send(newError(msgMalformedMessage))
		return
	}
	s.Handle(ctx, msg)
}

// Handle выполняет один переход протокольного автомата.
func (s *GymSession) Handle(ctx context.Context, msg *Message) {
	if s.d.metrics != nil {
		s.d.metrics.MessagesTotal.WithLabelValues(msg.Type).Inc()
	}

	// до успешного login допускается только login
	if !s.authenticated && msg.Type != TypeLogin {
		s.send(newError(msgNotAuthenticated))
		return
	}

	switch msg.Type {
	case TypeLogin:
		s.handleLogin(ctx, msg)
	case TypeFingerprintConnected:
		s.handleFingerprintConnected(msg)
	case TypeUser:
		s.handleUser(ctx, msg)
	case TypeStoreFingerprint:
		s.handleStoreFingerprint(ctx, msg)
	case TypeDownloadTemplates:
		s.handleDownloadTemplates(ctx)
	case TypeEnrollmentCompleted:
		s.handleEnrollmentCompleted(msg)
	case TypeDisconnect:
		s.Close()
	}
}

func (s *GymSession) handleLogin(ctx context.Context, msg *Message) {
	const op = "broker.GymSession.handleLogin"
	log := s.d.log.With(slog.String("op", op), slog.String("gym_id", s.conn.Identity))

	if s.authenticated {
		s.send(newConnected())
		return
	}
	if msg.LoginData == nil || s.d.validate.Struct(msg.LoginData) != nil {
		s.send(newError(msgInvalidCredentials))
		return
	}

	role, err := s.d.verifier.Verify(ctx, msg.LoginData.Email, msg.LoginData.Password)
	switch {
	case errors.Is(err, auth.ErrInsufficientPrivilege):
		s.send(newError(msgUserCannotLogin))
		return
	case errors.Is(err, auth.ErrInactiveUser):
		s.send(newError(msgInactiveUser))
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.send(newError(msgInvalidCredentials))
		return
	case err != nil:
		log.Error("credential verification failed", sl.Err(err))
		s.send(newError(msgInternalError))
		return
	}

	s.authenticated = true
	s.role = role
	s.gymID = s.conn.Identity
	s.d.registry.Register(s.conn)

	log.Info("capture device authenticated", slog.String("role", string(role)))
	s.send(newConnected())
}

func (s *GymSession) handleFingerprintConnected(msg *Message) {
	if msg.GymID == "" {
		s.send(newError(msgMissingGymID))
		return
	}
	s.deviceReady = true
	s.send(FingerprintEstablishedMessage{Type: TypeFingerprintEstablished, GymID: msg.GymID})
}

func (s *GymSession) handleUser(ctx context.Context, msg *Message) {
	const op = "broker.GymSession.handleUser"
	log := s.d.log.With(slog.String("op", op), slog.String("gym_id", s.gymID))

	member, err := s.d.directory.FindMember(ctx, s.gymID, msg.UserID)
	if errors.Is(err, directory.ErrMemberNotFound) {
		s.send(UserNotFoundMessage{Type: TypeUserNotFound, UserID: msg.UserID})
		return
	}
	if err != nil {
		log.Error("member lookup failed", sl.Err(err))
		s.send(newError(msgInternalError))
		return
	}

	s.target = member

	userID := strconv.FormatInt(member.ID, 10)
	profile := MemberMessage{
		UserID:   userID,
		FullName: member.FullName,
		Email:    member.Email,
	}

	// ретрансляция участнику — только если его соединение зарегистрировано;
	// отсутствие адресата не считается ошибкой для устройства
	if userConn, ok := s.d.registry.LookupUser(userID); ok {
		invite := profile
		invite.Type = TypeStartEnrollment
		s.d.relay(userConn, invite)
	}

	ack := profile
	ack.Type = TypeUserFound
	s.send(ack)
}

func (s *GymSession) handleStoreFingerprint(ctx context.Context, msg *Message) {
	const op = "broker.GymSession.handleStoreFingerprint"
	log := s.d.log.With(slog.String("op", op), slog.String("gym_id", s.gymID))

	if s.target == nil {
		s.send(newStoreError(msgUserNotEstablished))
		return
	}
	if msg.FingerprintData == "" ||
		(msg.Finger != models.FingerPrimary && msg.Finger != models.FingerSecondary) {
		s.send(newStoreError(msgMissingFingerprint))
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(msg.FingerprintData)
	if err != nil {
		s.send(newStoreError(msgStoreFailed))
		return
	}

	ciphertext, err := s.d.cipher.Encrypt(plaintext)
	if err != nil {
		log.Error("template encryption failed", sl.Err(err))
		s.send(newStoreError(msgStoreFailed))
		return
	}

	if err := s.d.templates.SaveTemplate(ctx, s.target.ID, msg.Finger, ciphertext); err != nil {
		log.Error("template persistence failed", sl.Err(err))
		s.send(newStoreError(msgStoreFailed))
		return
	}

	userID := strconv.FormatInt(s.target.ID, 10)
	s.send(FingerprintStoredMessage{
		Type:    TypeFingerprintStored,
		Message: msgStored,
		UserID:  userID,
	})
	s.publish(events.RoutingKeyFingerprintStored, events.FingerprintStored{
		UserID: s.target.ID,
		Finger: msg.Finger,
		GymID:  s.gymID,
	})
}

func (s *GymSession) handleDownloadTemplates(ctx context.Context) {
	const op = "broker.GymSession.handleDownloadTemplates"
	log := s.d.log.With(slog.String("op", op), slog.String("gym_id", s.gymID))

	gid, err := strconv.ParseInt(s.gymID, 10, 64)
	if err != nil {
		s.send(newError(msgMissingGymID))
		return
	}

	stored, err := s.d.templates.ListTemplates(ctx, gid)
	if err != nil {
		log.Error("template listing failed", sl.Err(err))
		s.send(newError(msgInternalError))
		return
	}

	// шаблоны приходят упорядоченными по (участник, палец); участник,
	// у которого не расшифровался ни один слот, опускается целиком
	var records []models.TemplateRecord
	index := make(map[int64]int)
	decrypted := make(map[int64]bool)
	for _, tpl := range stored {
		i, ok := index[tpl.UserID]
		if !ok {
			records = append(records, models.TemplateRecord{ID: tpl.UserID, FullName: tpl.FullName})
			i = len(records) - 1
			index[tpl.UserID] = i
		}

		plaintext, err := s.d.cipher.Decrypt(tpl.Ciphertext)
		if err != nil {
			log.Warn("skipping corrupted template",
				slog.Int64("user_id", tpl.UserID), slog.Int("finger", tpl.Finger))
			if s.d.metrics != nil {
				s.d.metrics.DecryptFailures.Inc()
			}
			continue
		}
		decrypted[tpl.UserID] = true

		encoded := base64.StdEncoding.EncodeToString(plaintext)
		switch tpl.Finger {
		case models.FingerPrimary:
			records[i].Fingerprint1 = encoded
		case models.FingerSecondary:
			records[i].Fingerprint2 = encoded
		}
	}

	data := make([]models.TemplateRecord, 0, len(records))
	for _, rec := range records {
		if decrypted[rec.ID] {
			data = append(data, rec)
		}
	}

	s.send(TemplateDataSetMessage{Type: TypeTemplateDataSet, Data: data})
}

func (s *GymSession) handleEnrollmentCompleted(msg *Message) {
	userID := msg.UserID
	if userID == "" && s.target != nil {
		userID = strconv.FormatInt(s.target.ID, 10)
	}
	if userID == "" {
		s.send(newError(msgUserNotEstablished))
		return
	}

	if userConn, ok := s.d.registry.LookupUser(userID); ok {
		s.d.relay(userConn, EnrollmentCompletedMessage{Type: TypeEnrollmentCompleted, UserID: userID})
	}
	s.target = nil
	s.publish(events.RoutingKeyEnrollmentCompleted, events.EnrollmentCompleted{
		UserID: userID,
		GymID:  s.gymID,
	})
}

func (s *GymSession) send(v any) {
	s.d.send(s.conn, v)
}

func (s *GymSession) publish(routingKey string, event any) {
	if s.d.events == nil {
		return
	}
	if err := s.d.events.Publish(routingKey, event); err != nil {
		s.d.log.Warn("event publish failed", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

func (d *Dispatcher) send(conn *Conn, v any) {
	if err := conn.Send(v); err != nil {
		d.log.Warn("outbound message dropped",
			slog.String("kind", string(conn.Kind)),
			slog.String("identity", conn.Identity),
			sl.Err(err))
	}
}

// relay межзадачная отправка в чужое соединение: никогда не блокирует
// отправителя, отсутствие или насыщение адресата деградирует до записи в лог.
func (d *Dispatcher) relay(target *Conn, v any) {
	if err := target.Send(v); err != nil {
		if d.metrics != nil {
			d.metrics.RelayDrops.Inc()
		}
		d.log.Warn("relay dropped",
			slog.String("target", target.Identity),
			sl.Err(err))
	}
}
