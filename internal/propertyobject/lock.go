package propertyobject

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// recursiveMutex is the per-object config lock. The goroutine holding it
// may lock it again (from an event handler it triggered, for example);
// only the outermost Unlock releases it.
type recursiveMutex struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int // only touched by the owning goroutine
}

func (m *recursiveMutex) Lock() {
	id := goroutineID()
	if m.owner.Load() == id {
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(id)
	m.depth = 1
}

func (m *recursiveMutex) Unlock() {
	m.depth--
	if m.depth == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}

// heldByCurrent reports whether the calling goroutine holds the lock.
func (m *recursiveMutex) heldByCurrent() bool {
	return m.owner.Load() == goroutineID()
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the id from the first line of the goroutine's stack
// header ("goroutine 42 [running]:").
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		panic("propertyobject: cannot parse goroutine id: " + err.Error())
	}
	return id
}
