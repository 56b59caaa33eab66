package notify

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoller_RefreshesImmediatelyAndOnTick(t *testing.T) {
	src := &fakeSource{appointments: appointments(4, "a")}
	counts := make(chan int, 16)
	p := NewPoller(newTestAggregator(src), 20*time.Millisecond, func(n int) { counts <- n }, zerolog.Nop())

	p.Start(sessionFor("nurse"))
	defer p.Stop()

	for i := 0; i < 2; i++ {
		select {
		case n := <-counts:
			if n != 4 {
				t.Errorf("expected count 4, got %d", n)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("refresh %d never happened", i+1)
		}
	}
	if p.Last() != 4 {
		t.Errorf("expected Last 4, got %d", p.Last())
	}
}

func TestPoller_NilSessionDoesNothing(t *testing.T) {
	called := make(chan int, 1)
	p := NewPoller(newTestAggregator(&fakeSource{}), time.Millisecond, func(n int) { called <- n }, zerolog.Nop())
	p.Start(nil)

	select {
	case <-called:
		t.Fatal("no refresh expected without a session")
	case <-time.After(50 * time.Millisecond):
	}
	p.Stop()
}

func TestPoller_StopHaltsRefresh(t *testing.T) {
	counts := make(chan int, 64)
	p := NewPoller(newTestAggregator(&fakeSource{}), 5*time.Millisecond, func(n int) { counts <- n }, zerolog.Nop())
	p.Start(sessionFor("nurse"))

	select {
	case <-counts:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh never happened")
	}
	p.Stop()
	for len(counts) > 0 {
		<-counts
	}

	time.Sleep(30 * time.Millisecond)
	if len(counts) != 0 {
		t.Errorf("expected no refresh after Stop, got %d", len(counts))
	}
}

func TestPoller_StartReplacesRun(t *testing.T) {
	src := &fakeSource{appointments: appointments(2, "a")}
	p := NewPoller(newTestAggregator(src), time.Hour, nil, zerolog.Nop())

	p.Start(sessionFor("nurse"))
	p.Start(sessionFor("physician"))
	p.Stop()
	p.Stop()
}
