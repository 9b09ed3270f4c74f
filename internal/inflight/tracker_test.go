package inflight

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

func TestGeneratingGuard(t *testing.T) {
	tr := NewTracker()
	if !tr.TryBeginGenerating("T-1") {
		t.Fatal("first TryBeginGenerating should succeed")
	}
	if tr.TryBeginGenerating("T-1") {
		t.Fatal("second TryBeginGenerating should fail while in flight")
	}
	if !tr.TryBeginGenerating("T-2") {
		t.Fatal("other tickets are independent")
	}
	tr.EndGenerating("T-1")
	if !tr.TryBeginGenerating("T-1") {
		t.Fatal("TryBeginGenerating should succeed after EndGenerating")
	}
}

func TestSendAndGenerateExcludeEachOther(t *testing.T) {
	tr := NewTracker()
	if !tr.TryBeginSending("T-1") {
		t.Fatal("TryBeginSending should succeed")
	}
	if tr.TryBeginGenerating("T-1") {
		t.Fatal("generation must not start while sending")
	}
	if tr.TryBeginSending("T-1") {
		t.Fatal("second send must not start")
	}
	if got := tr.State("T-1"); !got.Sending || got.Generating {
		t.Fatalf("state = %+v", got)
	}
	tr.EndSending("T-1")
	if tr.State("T-1").Busy() {
		t.Fatal("state should be idle after EndSending")
	}
}

func TestRecordsArePruned(t *testing.T) {
	tr := NewTracker()
	tr.TryBeginGenerating("T-1")
	tr.TryBeginSending("T-2")
	if tr.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tr.Len())
	}
	tr.EndGenerating("T-1")
	tr.EndSending("T-2")
	tr.EndSending("T-3")
	if tr.Len() != 0 {
		t.Fatalf("Len = %d, want 0", tr.Len())
	}
}

func TestConcurrentBeginAdmitsOne(t *testing.T) {
	tr := NewTracker()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		admit int
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ok bool
			if i%2 == 0 {
				ok = tr.TryBeginGenerating("T-1")
			} else {
				ok = tr.TryBeginSending("T-1")
			}
			if ok {
				mu.Lock()
				admit++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if admit != 1 {
		t.Fatalf("admitted %d operations, want 1", admit)
	}
}

func TestTrackerMatchesModel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := NewTracker()
		model := map[string]State{}
		ids := []string{"T-1", "T-2", "T-3"}

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, "id")
			st := model[id]
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				want := !st.Busy()
				if got := tr.TryBeginGenerating(id); got != want {
					rt.Fatalf("TryBeginGenerating(%s) = %v, want %v", id, got, want)
				}
				if want {
					st.Generating = true
				}
			case 1:
				want := !st.Busy()
				if got := tr.TryBeginSending(id); got != want {
					rt.Fatalf("TryBeginSending(%s) = %v, want %v", id, got, want)
				}
				if want {
					st.Sending = true
				}
			case 2:
				tr.EndGenerating(id)
				st.Generating = false
			default:
				tr.EndSending(id)
				st.Sending = false
			}
			model[id] = st
			if got := tr.State(id); got != st {
				rt.Fatalf("State(%s) = %+v, want %+v", id, got, st)
			}
		}
	})
}
