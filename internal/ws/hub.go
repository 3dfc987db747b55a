package ws

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans stored error records out to admin live-tail subscribers. There
// is a single stream; delivery is best effort and a failed send drops the
// subscriber.
type Hub struct {
	clients   map[Subscriber]struct{}
	register  chan Subscriber
	unreg     chan Subscriber
	broadcast chan []byte
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[Subscriber]struct{}),
		register:  make(chan Subscriber),
		unreg:     make(chan Subscriber),
		broadcast: make(chan []byte),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unreg:
			delete(h.clients, client)
		case payload := <-h.broadcast:
			for c := range h.clients {
				if err := c.Send(payload); err != nil {
					c.Close()
					delete(h.clients, c)
				}
			}
		}
	}
}

// Register adds a client to the stream.
func (h *Hub) Register(client Subscriber) {
	h.register <- client
}

// Unregister removes a client.
func (h *Hub) Unregister(client Subscriber) {
	h.unreg <- client
}

// Broadcast sends payload to all subscribers.
func (h *Hub) Broadcast(payload []byte) {
	h.broadcast <- payload
}
