package store

import "sync"

// Ring — потокобезопасный кольцевой буфер фиксированной емкости.
// При переполнении вытесняется самый старый элемент (FIFO).
// Читатели всегда получают копии срезов, внутренний буфер наружу не утекает.
type Ring[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int // индекс самого старого элемента
	size int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushLocked(v)
}

// PushBatch добавляет пачку за один захват лока (для инжестора).
func (r *Ring[T]) PushBatch(vs []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range vs {
		r.pushLocked(v)
	}
}

func (r *Ring[T]) pushLocked(v T) {
	tail := (r.head + r.size) % len(r.buf)
	r.buf[tail] = v
	if r.size < len(r.buf) {
		r.size++
	} else {
		// Буфер полон — перезаписали старейший, сдвигаем голову
		r.head = (r.head + 1) % len(r.buf)
	}
}

func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Snapshot возвращает копию содержимого от старых к новым.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

// Recent возвращает до n последних элементов, новые первыми.
func (r *Ring[T]) Recent(n int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.size {
		n = r.size
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.head + r.size - 1 - i) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// Update применяет fn к элементам под локом, останавливаясь на первом,
// для которого fn вернула true. Так реализуются точечные мутации
// (митигация угрозы, подтверждение алерта) без выноса ссылок наружу.
func (r *Ring[T]) Update(fn func(*T) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < r.size; i++ {
		idx := (r.head + i) % len(r.buf)
		if fn(&r.buf[idx]) {
			return true
		}
	}
	return false
}
