package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserLocks(t *testing.T) {
	t.Run("SerializesSameUser", func(t *testing.T) {
		l := newUserLocks()
		var (
			wg      sync.WaitGroup
			counter int
		)
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := l.lock("u1")
				defer unlock()
				v := counter
				counter = v + 1
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counter)
		assert.Zero(t, l.len())
	})

	t.Run("IndependentUsers", func(t *testing.T) {
		l := newUserLocks()
		unlockA := l.lock("a")
		unlockB := l.lock("b")
		assert.Equal(t, 2, l.len())
		unlockA()
		unlockB()
		assert.Zero(t, l.len())
	})
}
