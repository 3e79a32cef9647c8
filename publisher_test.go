package ecs

import "testing"

type pingMsg struct{ n int }

func TestPublisherDispatchesToSubscribers(t *testing.T) {
	p := NewPublisher()
	var got []int
	Subscribe(p, func(m pingMsg) { got = append(got, m.n) })
	Publish(p, pingMsg{1})
	Publish(p, pingMsg{2})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestPublisherUnsubscribeStopsDelivery(t *testing.T) {
	p := NewPublisher()
	count := 0
	sub := Subscribe(p, func(m pingMsg) { count++ })
	Publish(p, pingMsg{1})
	sub.Unsubscribe()
	Publish(p, pingMsg{2})

	if count != 1 {
		t.Fatalf("want 1 delivery, got %d", count)
	}
}

func TestPublisherUnsubscribeDuringDispatchIsDeferred(t *testing.T) {
	p := NewPublisher()
	var subA Subscription
	calledA := 0
	calledB := false
	subA = Subscribe(p, func(m pingMsg) { calledA++; subA.Unsubscribe() })
	Subscribe(p, func(m pingMsg) { calledB = true })

	Publish(p, pingMsg{1})
	if !calledB {
		t.Fatal("second handler must still run in the same dispatch round")
	}

	calledB = false
	Publish(p, pingMsg{2})
	if calledA != 1 {
		t.Fatalf("unsubscribed handler fired again, calls=%d", calledA)
	}
	if !calledB {
		t.Fatal("second handler is still subscribed and must fire again")
	}
}

func TestPublisherSubscribeDuringDispatchWaitsForNextRound(t *testing.T) {
	p := NewPublisher()
	var fired bool
	Subscribe(p, func(m pingMsg) {
		Subscribe(p, func(m pingMsg) { fired = true })
	})
	Publish(p, pingMsg{1})
	if fired {
		t.Fatal("a subscription added mid-dispatch must not fire in the same round")
	}
	Publish(p, pingMsg{2})
	if !fired {
		t.Fatal("the new subscription should fire on the next round")
	}
}
