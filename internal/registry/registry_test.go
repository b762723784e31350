package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinAndLeave(t *testing.T) {
	r := New()

	assert.Equal(t, "Ann has joined the room.", r.OnJoin("10.0.0.1", "Ann"))
	name, ok := r.Name("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, "Ann", name)
	assert.Equal(t, []string{"Ann"}, r.Online())

	assert.Equal(t, "Ann has left the room.", r.OnDisconnect("10.0.0.1"))
	assert.Empty(t, r.Online())

	// Entries survive the disconnect.
	name, ok = r.Name("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, "Ann", name)
	assert.Equal(t, 1, r.Len())
}

func TestJoinOverwrites(t *testing.T) {
	r := New()
	r.OnJoin("10.0.0.1", "Ann")
	r.OnJoin("10.0.0.1", "Annie")

	name, _ := r.Name("10.0.0.1")
	assert.Equal(t, "Annie", name)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "Annie has left the room.", r.OnDisconnect("10.0.0.1"))
}

func TestDisconnectWithoutJoin(t *testing.T) {
	r := New()
	assert.Equal(t, "someone has left the room.", r.OnDisconnect("10.0.0.9"))

	r.OnJoin("10.0.0.2", "")
	assert.Equal(t, "someone has left the room.", r.OnDisconnect("10.0.0.2"))
}

func TestReconnectFromNewAddressIsUnnamed(t *testing.T) {
	r := New()
	r.OnJoin("10.0.0.1", "Ann")
	_, ok := r.Name("10.0.0.77")
	assert.False(t, ok)
	assert.Equal(t, "someone has left the room.", r.OnDisconnect("10.0.0.77"))
}

func TestOnlineSorted(t *testing.T) {
	r := New()
	r.OnJoin("c", "Cid")
	r.OnJoin("a", "Ann")
	r.OnJoin("b", "Bob")
	r.OnDisconnect("b")
	assert.Equal(t, []string{"Ann", "Cid"}, r.Online())
}

// Joins and leaves come from the relay loop while /who reads from the input
// loop; run with -race.
func TestConcurrentJoinsAndOnline(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			addr := fmt.Sprintf("10.0.0.%d", i)
			for n := 0; n < 100; n++ {
				r.OnJoin(addr, fmt.Sprintf("peer%d", i))
				r.OnDisconnect(addr)
			}
			r.OnJoin(addr, fmt.Sprintf("peer%d", i))
		}(i)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				for _, name := range r.Online() {
					assert.NotEmpty(t, name)
				}
			}
		}()
	}
	wg.Wait()
	assert.Len(t, r.Online(), 8)
	assert.Equal(t, 8, r.Len())
}
