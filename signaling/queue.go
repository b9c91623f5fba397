package signaling

import "sync"

// lineQueue is a FIFO of text lines safe for concurrent use. Every push
// leaves a token on ready so a consumer can block in select instead of polling.
type lineQueue struct {
	mu    sync.Mutex
	items []string
	ready chan struct{}
}

func newLineQueue() lineQueue {
	return lineQueue{ready: make(chan struct{}, 1)}
}

func (q *lineQueue) push(item string) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued item in arrival order
func (q *lineQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued items
func (q *lineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready receives a value after one or more pushes since the last receive
func (q *lineQueue) Ready() <-chan struct{} {
	return q.ready
}

// CommandQueue carries raw command lines from the ingestor to the controller
type CommandQueue struct {
	lineQueue
}

// NewCommandQueue creates an empty command queue
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{lineQueue: newLineQueue()}
}

// Push appends a command line
func (q *CommandQueue) Push(cmd string) {
	q.push(cmd)
}

// MessageQueue carries status lines from the controller and its workers to the emitter
type MessageQueue struct {
	lineQueue
}

// NewMessageQueue creates an empty message queue
func NewMessageQueue() *MessageQueue {
	return &MessageQueue{lineQueue: newLineQueue()}
}

// Post appends a message; messages are immutable once posted
func (q *MessageQueue) Post(msg string) {
	q.push(msg)
}
