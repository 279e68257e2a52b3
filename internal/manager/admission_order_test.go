package manager

import (
	"sync"
	"testing"
	"time"
)

// Waiters blocked on the slot are served in arrival order: an early arrival
// is never overtaken by a later one.
func TestAdmit_ArrivalOrderPreserved(t *testing.T) {
	m := newTestManager(t, Config{
		MaxConcurrent: 1, MaxQueueDepth: 3,
		QueueWait: 2 * time.Second, HealthInterval: time.Hour,
	})
	forceWarm(m)

	first, err := m.Admit(testCtx(t), "holder")
	if err != nil {
		t.Fatalf("holder admit: %v", err)
	}

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rel, err := m.Admit(testCtx(t), "k")
			if err != nil {
				t.Errorf("waiter %d: %v", i, err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			rel()
		}(i)
		// Give each waiter time to reach the slot wait before the next arrives.
		time.Sleep(30 * time.Millisecond)
	}

	first()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("waiters served out of arrival order: %v", order)
	}
}
