package safe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := NewKeyMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("chat")
			counter++
			km.Unlock("chat")
		}()
	}
	wg.Wait()

	require.Equal(t, 100, counter)
}

func TestKeyMutexIndependentKeys(t *testing.T) {
	km := NewKeyMutex()
	km.Lock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b") // 不同 key 不应被阻塞
		km.Unlock("b")
		close(done)
	}()
	<-done

	km.Unlock("a")
}
