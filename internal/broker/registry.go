package broker

import (
	"sort"
	"sync"
)

// Snapshot согласованный снимок состояния реестра на момент вызова.
type Snapshot struct {
	ActiveConnections int            `json:"active_connections"`
	ConnectedUsers    []string       `json:"connected_users"`
	GymSubscriptions  map[string]int `json:"gym_subscriptions"`
}

// Registry потокобезопасный учет активных соединений. Единственная точка
// сериализации разделяемого состояния брокера: все последовательности
// чтение-изменение-запись обеих карт атомарны относительно друг друга.
type Registry struct {
	mu      sync.Mutex
	users   map[string]*Conn
	gyms    map[string]map[string]*Conn
	metrics *Metrics
}

// NewRegistry создает пустой реестр. metrics может быть nil.
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{
		users:   make(map[string]*Conn),
		gyms:    make(map[string]map[string]*Conn),
		metrics: metrics,
	}
}

// Register добавляет соединение в учет. Для участника прежнее соединение
// того же идентификатора вытесняется и закрывается: на одного участника
// живет не более одного соединения. Для зала соединения накапливаются:
// несколько устройств могут обслуживать один зал одновременно.
func (r *Registry) Register(c *Conn) {
	var evicted *Conn

	r.mu.Lock()
	switch c.Kind {
	case KindUser:
		if prev, ok := r.users[c.Identity]; ok && prev != c {
			evicted = prev
		}
		r.users[c.Identity] = c
	case KindGym:
		set, ok := r.gyms[c.Identity]
		if !ok {
			set = make(map[string]*Conn)
			r.gyms[c.Identity] = set
		}
		set[c.ID] = c
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveConnections.WithLabelValues(string(c.Kind)).Inc()
		if evicted != nil {
			r.metrics.ActiveConnections.WithLabelValues(string(KindUser)).Dec()
		}
	}
	// закрытие вне блокировки: Close может быть сколь угодно медленным
	if evicted != nil {
		evicted.Close()
	}
}

// Unregister снимает соединение с учета; идемпотентен. Соединение,
// вытесненное более новым, не затирает запись преемника.
func (r *Registry) Unregister(c *Conn) {
	removed := false

	r.mu.Lock()
	switch c.Kind {
	case KindUser:
		if cur, ok := r.users[c.Identity]; ok && cur == c {
			delete(r.users, c.Identity)
			removed = true
		}
	case KindGym:
		if set, ok := r.gyms[c.Identity]; ok {
			if _, ok := set[c.ID]; ok {
				delete(set, c.ID)
				removed = true
			}
			if len(set) == 0 {
				delete(r.gyms, c.Identity)
			}
		}
	}
	r.mu.Unlock()

	if removed && r.metrics != nil {
		r.metrics.ActiveConnections.WithLabelValues(string(c.Kind)).Dec()
	}
}

// LookupUser возвращает живое соединение участника, если оно зарегистрировано.
func (r *Registry) LookupUser(userID string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[userID]
	return c, ok
}

// LookupGym возвращает все соединения устройств, подписанные на зал.
func (r *Registry) LookupGym(gymID string) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.gyms[gymID]
	conns := make([]*Conn, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

// Snapshot возвращает согласованный снимок: полузарегистрированные
// соединения наблюдаться не могут.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]string, 0, len(r.users))
	for id := range r.users {
		users = append(users, id)
	}
	sort.Strings(users)

	gyms := make(map[string]int, len(r.gyms))
	total := len(r.users)
	for id, set := range r.gyms {
		gyms[id] = len(set)
		total += len(set)
	}

	return Snapshot{
		ActiveConnections: total,
		ConnectedUsers:    users,
		GymSubscriptions:  gyms,
	}
}
