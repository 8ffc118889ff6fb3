package query

import (
	"sync"
	"testing"
	"time"
)

type commitRecorder struct {
	mu     sync.Mutex
	values []string
	notify chan string
}

func newCommitRecorder() *commitRecorder {
	return &commitRecorder{notify: make(chan string, 16)}
}

func (r *commitRecorder) commit(v string) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	r.notify <- v
}

func (r *commitRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func (r *commitRecorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case v := <-r.notify:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for commit")
		return ""
	}
}

func TestDebouncerCommitsLastValue(t *testing.T) {
	rec := newCommitRecorder()
	d := NewDebouncer(20*time.Millisecond, rec.commit)

	d.Update("n")
	d.Update("ne")
	d.Update("nex")
	d.Update("next")

	if got := rec.wait(t); got != "next" {
		t.Fatalf("committed %q, want %q", got, "next")
	}

	// The burst settles into exactly one commit.
	time.Sleep(60 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Fatalf("got %d commits, want 1", n)
	}
}

func TestDebouncerCancel(t *testing.T) {
	rec := newCommitRecorder()
	d := NewDebouncer(20*time.Millisecond, rec.commit)

	d.Update("doomed")
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Fatalf("cancelled debounce committed %d times", n)
	}
}

func TestDebouncerSupersededFireDoesNotCommit(t *testing.T) {
	rec := newCommitRecorder()
	d := NewDebouncer(time.Hour, rec.commit)

	// An expired timer can lose the race against Update and only take
	// the lock after a newer timer is already pending. Its fire must
	// not commit the fresh value early.
	d.Update("first")
	d.mu.Lock()
	stale := d.gen
	d.mu.Unlock()

	d.Update("second")
	d.fire(stale)

	time.Sleep(20 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Fatalf("stale fire committed %d times", n)
	}

	d.Flush()
	if got := rec.wait(t); got != "second" {
		t.Fatalf("flushed %q, want %q", got, "second")
	}
}

func TestDebouncerFlush(t *testing.T) {
	rec := newCommitRecorder()
	d := NewDebouncer(time.Hour, rec.commit)

	d.Update("now")
	d.Flush()

	if got := rec.wait(t); got != "now" {
		t.Fatalf("flushed %q, want %q", got, "now")
	}

	// Flush with nothing pending is a no-op.
	d.Flush()
	time.Sleep(20 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Fatalf("got %d commits, want 1", n)
	}
}
