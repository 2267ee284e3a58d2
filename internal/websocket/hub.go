package websocket

import (
	"bytes"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"reconciler/internal/models"
	"reconciler/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ============ sync.Pool для JSON буферов ============

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Рассылает наблюдателям результаты сверки:
// - orderReconciled: исход обработки каждого ордера
// - runCompleted: итог прохода
//
// Использование:
// 1. Создать hub: hub := NewHub(origins)
// 2. Запустить в горутине: go hub.Run()
// 3. Передать hub в reconcile.RunnerConfig.Publisher
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	origins *OriginChecker

	// Сообщения, отброшенные из-за переполнения broadcast
	dropped atomic.Int64

	mu     sync.RWMutex
	logger *utils.Logger
}

// NewHub создает новый Hub.
// allowedOrigins - список через запятую, пустой или "*" разрешает все.
func NewHub(allowedOrigins string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		origins:    NewOriginChecker(allowedOrigins),
		logger:     utils.L().WithComponent("websocket"),
	}
}

// Run запускает главный цикл Hub до вызова Stop.
// Копируем список клиентов → отправляем без Lock → удаляем медленных под Write Lock.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.Int("clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", zap.Int("clients", total))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// клиент не успевает читать
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.Warn("removed slow clients", zap.Int("removed", len(toRemove)), zap.Int("clients", total))
			}
		}
	}
}

// Stop останавливает Run и закрывает все клиентские каналы
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Broadcast сериализует сообщение и ставит его в очередь рассылки.
// Не блокирует: при переполнении очереди сообщение отбрасывается.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer jsonBufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("failed to marshal broadcast message", zap.Error(err))
		return
	}

	data := bytes.TrimRight(buf.Bytes(), "\n")
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)

	select {
	case h.broadcast <- msgCopy:
	default:
		h.dropped.Add(1)
	}
}

// PublishOrderOutcome отправляет результат сверки ордера
func (h *Hub) PublishOrderOutcome(outcome models.OrderOutcome) {
	h.Broadcast(NewOrderReconciledMessage(outcome))
}

// PublishRunCompleted отправляет итог прохода
func (h *Hub) PublishRunCompleted(run *models.Run) {
	h.Broadcast(NewRunCompletedMessage(run))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages - число отброшенных сообщений
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}
