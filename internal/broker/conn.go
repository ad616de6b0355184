// Package broker реализует ядро брокера соединений: реестр активных
// дуплексных соединений, протокольный автомат устройства захвата и
// снимки состояния для эндпоинта здоровья.
package broker

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Kind класс долгоживущего соединения.
type Kind string

const (
	// KindUser — соединение участника; только получает ретранслируемые уведомления.
	KindUser Kind = "user"
	// KindGym — соединение устройства захвата, привязанное к залу.
	KindGym Kind = "gym"
)

var (
	// ErrConnClosed возвращается при отправке в закрытое соединение.
	ErrConnClosed = errors.New("broker: connection closed")
	// ErrSendBufferFull возвращается, когда исходящая очередь соединения
	// заполнена. Отправитель никогда не блокируется.
	ErrSendBufferFull = errors.New("broker: send buffer full")
)

// Transport абстракция над дуплексным транспортом соединения.
// Запись сериализуется через WritePump: реализациям достаточно
// поддерживать одного пишущего.
type Transport interface {
	WriteJSON(v any) error
	Close() error
}

const sendBufferSize = 32

// Conn активное соединение. Принадлежит реестру на время своей жизни;
// никакой компонент не держит ссылку на чужой транспорт в обход реестра.
type Conn struct {
	ID       string
	Kind     Kind
	Identity string

	transport Transport
	out       chan any
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn оборачивает транспорт в соединение с исходящей очередью.
func NewConn(kind Kind, identity string, transport Transport) *Conn {
	return &Conn{
		ID:        uuid.NewString(),
		Kind:      kind,
		Identity:  identity,
		transport: transport,
		out:       make(chan any, sendBufferSize),
		done:      make(chan struct{}),
	}
}

// Send ставит сообщение в исходящую очередь соединения, не блокируя
// вызывающего: при заполненной очереди возвращается ErrSendBufferFull.
func (c *Conn) Send(v any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- v:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

// WritePump последовательно пишет исходящие сообщения в транспорт.
// Запускается в отдельной горутине на каждое соединение и завершается
// при закрытии соединения или ошибке записи.
func (c *Conn) WritePump() {
	for {
		select {
		case v := <-c.out:
			if err := c.transport.WriteJSON(v); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close закрывает транспорт ровно один раз; повторные вызовы — no-op.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.transport.Close()
	})
}

// Done возвращает канал, закрываемый при завершении соединения.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
