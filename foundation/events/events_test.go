package events_test

import (
	"testing"

	"github.com/watoukuang/demochain/foundation/events"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_FanOut(t *testing.T) {
	t.Log("Given the need to send race events to every listener.")
	{
		evts := events.New(2)

		a := evts.Acquire("a")
		b := evts.Acquire("b")

		if again := evts.Acquire("a"); again != a {
			t.Fatalf("\t%s\tShould get the same channel for the same id.", failed)
		}
		t.Logf("\t%s\tShould get the same channel for the same id.", success)

		if got := evts.Listeners(); got != 2 {
			t.Fatalf("\t%s\tShould have two listeners : got %d", failed, got)
		}
		t.Logf("\t%s\tShould have two listeners.", success)

		evts.Send("viewer: round[1]: confirmations[1]")

		for name, ch := range map[string]<-chan string{"a": a, "b": b} {
			if msg := <-ch; msg != "viewer: round[1]: confirmations[1]" {
				t.Fatalf("\t%s\tShould deliver the line to listener %s : got %q", failed, name, msg)
			}
		}
		t.Logf("\t%s\tShould deliver the line to every listener.", success)
	}
}

func Test_SlowListener(t *testing.T) {
	t.Log("Given a listener that stops reading.")
	{
		evts := events.New(1)
		ch := evts.Acquire("slow")

		evts.Send("one")
		evts.Send("two")
		evts.Send("three")

		if msg := <-ch; msg != "one" {
			t.Fatalf("\t%s\tShould keep the first line : got %q", failed, msg)
		}
		t.Logf("\t%s\tShould keep the first line.", success)

		dropped, err := evts.Release("slow")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to release the listener : %s", failed, err)
		}
		if dropped != 2 {
			t.Fatalf("\t%s\tShould count the dropped lines : got %d", failed, dropped)
		}
		t.Logf("\t%s\tShould count the dropped lines.", success)

		if _, open := <-ch; open {
			t.Fatalf("\t%s\tShould close the channel on release.", failed)
		}
		t.Logf("\t%s\tShould close the channel on release.", success)

		if _, err := evts.Release("slow"); err == nil {
			t.Fatalf("\t%s\tShould fail to release an unknown id.", failed)
		}
		t.Logf("\t%s\tShould fail to release an unknown id.", success)
	}
}

func Test_Shutdown(t *testing.T) {
	t.Log("Given the node is shutting down.")
	{
		evts := events.New(0)
		ch := evts.Acquire("a")

		evts.Shutdown()

		if _, open := <-ch; open {
			t.Fatalf("\t%s\tShould close every channel.", failed)
		}
		if got := evts.Listeners(); got != 0 {
			t.Fatalf("\t%s\tShould have no listeners left : got %d", failed, got)
		}
		t.Logf("\t%s\tShould close and remove every channel.", success)
	}
}
