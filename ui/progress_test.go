package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// lockedBuffer lets the render goroutine and the test share a buffer
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCountProgress(t *testing.T) {
	out := &lockedBuffer{}
	p := NewCountProgress(out, "Probing")
	p.Start()

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Update(i, 8)
		}()
	}
	wg.Wait()
	p.Update(8, 8)
	p.Stop()

	got := out.String()
	assert.True(t, strings.HasSuffix(got, "8/8\n"), "final line should show completion, got %q", got)
	assert.Contains(t, got, "Probing")
}

func TestCountProgress_Percent(t *testing.T) {
	p := NewCountProgress(&bytes.Buffer{}, "x")
	assert.Zero(t, p.percent())
	p.Update(1, 4)
	assert.InDelta(t, 0.25, p.percent(), 1e-9)
}
