package chat

import (
	"strconv"
	"sync"
	"time"
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Greeting is the assistant's opening line.
const Greeting = "Hola. Soy el asistente oficial del **CIAY**. Estoy conectado a la infraestructura de AWS para brindarte información precisa sobre tecnología, inversión y gobierno en Yucatán."

// ErrorText replaces a reply that could not be delivered.
const ErrorText = "Error de conexión."

// Message is one chat bubble. Streaming is true while the reply is still
// arriving.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Streaming bool      `json:"streaming,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
}

// Transcript is the ordered conversation shown to the user.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
	seq      int
}

// NewTranscript returns a transcript that opens with the greeting.
func NewTranscript(now time.Time) *Transcript {
	t := &Transcript{}
	t.add(Message{Role: RoleAssistant, Content: Greeting, Timestamp: now})
	return t
}

// Messages returns a copy of the conversation.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the most recent message.
func (t *Transcript) Last() Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.messages[len(t.messages)-1]
}

func (t *Transcript) add(m Message) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	m.ID = strconv.Itoa(t.seq)
	t.messages = append(t.messages, m)
	return m
}

// update applies fn to the message with id and returns the result.
func (t *Transcript) update(id string, fn func(*Message)) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if t.messages[i].ID == id {
			fn(&t.messages[i])
			return t.messages[i]
		}
	}
	return Message{}
}
