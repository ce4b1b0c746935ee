package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bryanwahyu/veritas/internal/domain/analysis"
)

func rec(id string) analysis.Record {
	return analysis.Record{ID: analysis.RecordID(id), Source: "Item " + id, Score: 50}
}

func TestAppendOrderAndViews(t *testing.T) {
	s := New("s1")
	for _, id := range []string{"a", "b", "c"} {
		s.Append(rec(id))
	}
	list := s.List()
	recent := s.Recent()
	if len(list) != 3 || len(recent) != 3 {
		t.Fatalf("len list=%d recent=%d", len(list), len(recent))
	}
	for i, r := range list {
		if r.Order != i {
			t.Fatalf("list[%d].Order = %d", i, r.Order)
		}
		if recent[len(recent)-1-i] != r {
			t.Fatalf("recent is not the reverse of list at %d", i)
		}
	}
	if recent[0].ID != "c" {
		t.Fatalf("most recent = %s", recent[0].ID)
	}
}

func TestAppendDoesNotAlias(t *testing.T) {
	s := New("s1")
	r := rec("a")
	stored := s.Append(r)
	r.Source = "changed"
	if stored.Source != "Item a" {
		t.Fatalf("stored record changed with caller copy")
	}
}

func TestPlayback(t *testing.T) {
	s := New("s1")
	s.Append(rec("a"))
	s.Append(rec("b"))

	if _, err := s.Select("zzz"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Select missing: err = %v", err)
	}
	got, err := s.Select("a")
	if err != nil || got.ID != "a" {
		t.Fatalf("Select = %v, %v", got, err)
	}
	if p := s.Playback(); p == nil || p.ID != "a" {
		t.Fatalf("Playback = %v", p)
	}
	s.ClosePlayback()
	if s.Playback() != nil {
		t.Fatalf("playback not closed")
	}
}

func TestClearIsAtomic(t *testing.T) {
	s := New("s1")
	s.Append(rec("a"))
	if _, err := s.Select("a"); err != nil {
		t.Fatal(err)
	}
	s.Clear()
	if s.Len() != 0 || s.Playback() != nil {
		t.Fatalf("after Clear: len=%d playback=%v", s.Len(), s.Playback())
	}
	if _, err := s.Get("a"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Get after Clear: %v", err)
	}
	next := s.Append(rec("b"))
	if next.Order != 1 {
		t.Fatalf("order restarted: %d", next.Order)
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := New("s1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(rec(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()
	seen := map[int]bool{}
	for _, r := range s.List() {
		if seen[r.Order] {
			t.Fatalf("duplicate order %d", r.Order)
		}
		seen[r.Order] = true
	}
	if len(seen) != 50 {
		t.Fatalf("len = %d", len(seen))
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(0)
	created := r.Create()
	if created.ID == "" {
		t.Fatal("empty session id")
	}
	if got, ok := r.Lookup(created.ID); !ok || got != created {
		t.Fatal("Lookup returned a different session")
	}
	if _, ok := r.Lookup("named"); ok || r.Len() != 1 {
		t.Fatalf("Lookup created a session, len %d", r.Len())
	}
	opened := r.Open("named")
	if opened.ID != "named" || r.Len() != 2 || r.Open("named") != opened {
		t.Fatalf("opened session %q, len %d", opened.ID, r.Len())
	}
	r.Delete("named")
	if _, ok := r.Lookup("named"); ok {
		t.Fatal("session still present after Delete")
	}
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	r := NewRegistry(20 * time.Millisecond)
	s := r.Open("idle")
	time.Sleep(60 * time.Millisecond)
	if _, ok := r.Lookup("idle"); ok {
		t.Fatal("idle session was not evicted")
	}
	if r.Open("idle") == s {
		t.Fatal("Open returned the evicted session")
	}
}
