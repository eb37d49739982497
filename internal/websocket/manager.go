package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"notevault-server/internal/domain"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager is the change-feed hub: it tracks connected clients and fans note
// lifecycle events out to all of them. Slow clients whose send buffer fills
// up are disconnected rather than allowed to stall the feed.
type Manager struct {
	clients       map[string]*Client
	clientsMutex  sync.RWMutex
	Register      chan *Client
	Unregister    chan *Client
	HandleMessage chan *ClientMessage
	maxConns      int
	writeWait     time.Duration
	pongWait      time.Duration
	pingPeriod    time.Duration
}

func NewManager(maxConns int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:       make(map[string]*Client),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		HandleMessage: make(chan *ClientMessage),
		maxConns:      maxConns,
		writeWait:     writeWait,
		pongWait:      pongWait,
		pingPeriod:    pingPeriod,
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if len(m.clients) >= m.maxConns {
		log.Printf("max websocket connections reached, rejecting client %s", client.ID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	log.Printf("client registered: %s", client.ID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.Send)
		log.Printf("client unregistered: %s", client.ID)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var evt Event
	if err := json.Unmarshal(clientMsg.Message, &evt); err != nil {
		log.Printf("error unmarshaling client message: %v", err)
		return
	}

	// The feed is one-way; only application-level pings get a reply.
	if evt.Type != TypePing {
		return
	}

	pong, err := NewEvent(TypePong, nil)
	if err != nil {
		return
	}
	pongBytes, _ := json.Marshal(pong)
	select {
	case clientMsg.Client.Send <- pongBytes:
	default:
	}
}

func (m *Manager) broadcast(event *Event) {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	eventBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("error marshaling event: %v", err)
		return
	}

	for id, client := range m.clients {
		select {
		case client.Send <- eventBytes:
		default:
			log.Printf("client %s send buffer full, closing connection", id)
			go func(c *Client) { m.Unregister <- c }(client)
		}
	}
}

func (m *Manager) broadcastNoteChange(eventType EventType, payload *NoteChangePayload) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		log.Printf("error building %s event: %v", eventType, err)
		return
	}
	m.broadcast(event)
}

func (m *Manager) NoteCreated(note *domain.Note) {
	m.broadcastNoteChange(TypeNoteCreated, &NoteChangePayload{
		NoteID:    note.ID,
		Version:   note.Version,
		Title:     note.Title,
		UpdatedAt: note.UpdatedAt,
	})
}

func (m *Manager) NoteUpdated(note *domain.Note) {
	m.broadcastNoteChange(TypeNoteUpdated, &NoteChangePayload{
		NoteID:    note.ID,
		Version:   note.Version,
		Title:     note.Title,
		UpdatedAt: note.UpdatedAt,
	})
}

func (m *Manager) NoteRestored(note *domain.Note, restoredFrom int64) {
	m.broadcastNoteChange(TypeNoteRestored, &NoteChangePayload{
		NoteID:       note.ID,
		Version:      note.Version,
		Title:        note.Title,
		UpdatedAt:    note.UpdatedAt,
		RestoredFrom: restoredFrom,
	})
}

func (m *Manager) NoteDeleted(noteID string) {
	m.broadcastNoteChange(TypeNoteDeleted, &NoteChangePayload{
		NoteID: noteID,
	})
}

func (m *Manager) ConnectionCount() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.clients)
}
