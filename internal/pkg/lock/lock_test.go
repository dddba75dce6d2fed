package lock

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestMutualExclusion checks that WithLock serializes access per user:
// concurrent increments through the lock never lose an update.
func TestMutualExclusion(t *testing.T) {
	ul := NewUserLock()

	const goroutines = 50
	const increments = 100

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				_ = ul.WithLock("user-a", func() error {
					counter++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*increments {
		t.Fatalf("lost updates: counter = %d, want %d", counter, goroutines*increments)
	}
}

// TestIndependentUsers checks that locks for different users do not
// block each other: holding one user's lock leaves another acquirable.
func TestIndependentUsers(t *testing.T) {
	ul := NewUserLock()

	ul.Lock("user-a")
	defer ul.Unlock("user-a")

	if !ul.TryLock("user-b") {
		t.Fatal("lock for user-b should be independent of user-a")
	}
	ul.Unlock("user-b")
}

func TestTryLock(t *testing.T) {
	ul := NewUserLock()

	if !ul.TryLock("user-a") {
		t.Fatal("first TryLock should succeed")
	}
	if ul.TryLock("user-a") {
		t.Fatal("second TryLock should fail while held")
	}
	ul.Unlock("user-a")
	if !ul.TryLock("user-a") {
		t.Fatal("TryLock should succeed after Unlock")
	}
	ul.Unlock("user-a")
}

// TestLockUnlockSequenceProperty runs arbitrary lock/unlock sequences
// over a set of users and checks balanced sequences never deadlock.
func TestLockUnlockSequenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ul := NewUserLock()
		users := rapid.SliceOfN(rapid.StringMatching(`user-[a-d]`), 1, 20).Draw(t, "users")

		for _, u := range users {
			ul.Lock(u)
			ul.Unlock(u)
		}

		// Every lock was released, so every user is acquirable again.
		for _, u := range users {
			if !ul.TryLock(u) {
				t.Fatalf("user %q still locked after balanced sequence", u)
			}
			ul.Unlock(u)
		}
	})
}
