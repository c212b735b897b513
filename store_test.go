package state

import (
	"errors"
	"reflect"
	"testing"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	cases := []struct {
		path  string
		value any
	}{
		{"system.n", 4},
		{"system.x[0]", 1.5},
		{"audio.volume", 50},
		{"display.theme", "walnut"},
		{"display.glow", true},
	}
	for _, tc := range cases {
		if err := s.Set(tc.path, tc.value); err != nil {
			t.Fatalf("Set(%q): %v", tc.path, err)
		}
		got, ok := s.Get(tc.path)
		if !ok {
			t.Fatalf("Get(%q) reported absent after Set", tc.path)
		}
		if got != tc.value {
			t.Errorf("Get(%q) = %v, want %v", tc.path, got, tc.value)
		}
	}
}

func TestGetNeverFails(t *testing.T) {
	s := New()
	for _, path := range []string{"missing", "deep.missing.leaf", "", "bad[", "a..b"} {
		if value, ok := s.Get(path); ok || value != nil {
			t.Errorf("Get(%q) = (%v, %v), want (nil, false)", path, value, ok)
		}
	}
}

func TestSetRejectsMalformedPath(t *testing.T) {
	s := New()
	err := s.Set("a..b", 1)
	var pathErr *PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("Set returned %v, want *PathError", err)
	}
	if state := s.State().(map[string]any); len(state) != 0 {
		t.Fatalf("failed Set mutated the snapshot: %#v", state)
	}
}

func TestPublishedSnapshotsAreStable(t *testing.T) {
	s := New(WithInitialState(map[string]any{
		"system": map[string]any{"n": 4},
		"audio":  map[string]any{"volume": 50},
	}))

	before := s.State().(map[string]any)
	if err := s.Set("system.n", 8); err != nil {
		t.Fatalf("Set: %v", err)
	}
	after := s.State().(map[string]any)

	// The old snapshot still holds the old value.
	if before["system"].(map[string]any)["n"] != 4 {
		t.Fatal("published snapshot was mutated in place")
	}
	if after["system"].(map[string]any)["n"] != 8 {
		t.Fatal("new snapshot missing the write")
	}
	// The untouched subtree is shared between consecutive snapshots.
	if reflect.ValueOf(before["audio"]).Pointer() != reflect.ValueOf(after["audio"]).Pointer() {
		t.Fatal("untouched subtree was copied instead of shared")
	}
}

func TestSequenceElementWrite(t *testing.T) {
	s := New(WithInitialState(map[string]any{
		"system": map[string]any{"x": []any{1, 2, 3}},
	}))

	if err := s.Set("system.x[0]", 5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	x, _ := s.Get("system.x")
	if !reflect.DeepEqual(x, []any{5, 2, 3}) {
		t.Fatalf("system.x = %#v, want [5 2 3]", x)
	}
}

func TestSubscribeExactPath(t *testing.T) {
	s := New(WithInitialState(map[string]any{
		"audio": map[string]any{"volume": 50},
	}))

	var got []Change
	s.Subscribe("audio.volume", func(change Change) {
		got = append(got, change)
	})

	if err := s.Set("audio.volume", 80); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(got))
	}
	change := got[0]
	if change.Value != 80 || change.Previous != 50 || change.Path != "audio.volume" {
		t.Fatalf("change = %+v, want (80, 50, audio.volume)", change)
	}
	if value, _ := s.Get("audio.volume"); value != 80 {
		t.Fatalf("Get(audio.volume) = %v, want 80", value)
	}
}

func TestSubscribeWildcardPrefix(t *testing.T) {
	s := New()
	var hits []string
	s.Subscribe("system.*", func(change Change) {
		hits = append(hits, change.Path)
	})

	if err := s.Set("system.n", 5); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("system.x", []any{1.0, 2.0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("audio.volume", 5); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(hits, []string{"system.n", "system.x"}) {
		t.Fatalf("hits = %v, want [system.n system.x]", hits)
	}
}

func TestSubscribersFireInRegistrationOrder(t *testing.T) {
	s := New()
	var order []string
	s.Subscribe("*", func(Change) { order = append(order, "first") })
	s.Subscribe("system.*", func(Change) { order = append(order, "second") })
	s.Subscribe("system.n", func(Change) { order = append(order, "third") })

	if err := s.Set("system.n", 3); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(order, []string{"first", "second", "third"}) {
		t.Fatalf("order = %v", order)
	}
}

func TestDisposerIsIdempotent(t *testing.T) {
	s := New()
	calls := 0
	dispose := s.Subscribe("a", func(Change) { calls++ })

	if err := s.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	dispose()
	dispose()
	if err := s.Set("a", 2); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	var logged []LogEvent
	s := New(WithLogger(LoggerFunc(func(event LogEvent) {
		logged = append(logged, event)
	})))

	reached := false
	s.Subscribe("a", func(Change) { panic("boom") })
	s.Subscribe("a", func(Change) { reached = true })

	if err := s.Set("a", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !reached {
		t.Fatal("second subscriber was starved by the panicking one")
	}
	if len(logged) != 1 || logged[0].Op != "notify" {
		t.Fatalf("logged = %+v, want one notify event", logged)
	}
}

func TestSilentSetSuppressesNotification(t *testing.T) {
	s := New()
	deliveries := 0
	s.Subscribe("audio.volume", func(Change) { deliveries++ })

	if err := s.Set("audio.volume", 30, Silently()); err != nil {
		t.Fatal(err)
	}
	if value, _ := s.Get("audio.volume"); value != 30 {
		t.Fatalf("silent Set did not commit: %v", value)
	}
	if deliveries != 0 {
		t.Fatalf("silent Set delivered %d notifications", deliveries)
	}

	if err := s.Set("audio.volume", 40); err != nil {
		t.Fatal(err)
	}
	if deliveries != 1 {
		t.Fatalf("deliveries = %d, want exactly 1", deliveries)
	}
}

func TestValidationRejectsWithoutMutating(t *testing.T) {
	validator, err := ExprValidator("value >= 2 && value <= 20")
	if err != nil {
		t.Fatalf("ExprValidator: %v", err)
	}
	s := New(
		WithInitialState(map[string]any{"system": map[string]any{"n": 4}}),
		WithValidator("system.n", validator),
	)

	notified := false
	s.Subscribe("system.n", func(Change) { notified = true })

	err = s.Set("system.n", 25, WithValidation())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Set returned %v, want *ValidationError", err)
	}
	if vErr.Path != "system.n" || vErr.Value != 25 {
		t.Fatalf("validation error = %+v", vErr)
	}
	if value, _ := s.Get("system.n"); value != 4 {
		t.Fatalf("rejected Set mutated the snapshot: %v", value)
	}
	if notified {
		t.Fatal("rejected Set delivered a notification")
	}

	// Without opting in, the same write passes.
	if err := s.Set("system.n", 25); err != nil {
		t.Fatalf("unvalidated Set: %v", err)
	}
}

func TestBatchAtomicity(t *testing.T) {
	s := New()

	transitions := 0
	roots := map[uintptr]struct{}{}
	var paths []string
	s.Subscribe("*", func(change Change) {
		paths = append(paths, change.Path)
		ptr := reflect.ValueOf(s.State()).Pointer()
		if _, seen := roots[ptr]; !seen {
			roots[ptr] = struct{}{}
			transitions++
		}
	})

	err := s.Batch([]Update{
		{Path: "a", Value: 1},
		{Path: "b", Value: 2},
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if transitions != 1 {
		t.Fatalf("observed %d snapshot transitions, want 1", transitions)
	}
	if !reflect.DeepEqual(paths, []string{"a", "b"}) {
		t.Fatalf("notified paths = %v, want [a b]", paths)
	}
}

func TestBatchLaterUpdateSeesEarlierEffect(t *testing.T) {
	s := New(WithInitialState(map[string]any{"counter": 0}))

	var previous []any
	s.Subscribe("counter", func(change Change) {
		previous = append(previous, change.Previous)
	})

	err := s.Batch([]Update{
		{Path: "counter", Value: 1},
		{Path: "counter", Value: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	// The second update's old value is the first update's effect.
	if !reflect.DeepEqual(previous, []any{0, 1}) {
		t.Fatalf("previous values = %v, want [0 1]", previous)
	}
}

func TestBatchValidationFailureAbortsEverything(t *testing.T) {
	s := New(
		WithInitialState(map[string]any{"system": map[string]any{"n": 4}}),
		WithValidator("system.n", func(path string, value, _ any) error {
			n, ok := value.(int)
			if !ok || n < 2 || n > 20 {
				return Reject(path, value, "n must be an integer in [2,20]")
			}
			return nil
		}),
	)

	notified := 0
	s.Subscribe("*", func(Change) { notified++ })

	err := s.Batch([]Update{
		{Path: "audio.volume", Value: 10},
		{Path: "system.n", Value: 99},
	}, WithValidation())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Batch returned %v, want *ValidationError", err)
	}
	if _, ok := s.Get("audio.volume"); ok {
		t.Fatal("aborted batch committed an earlier update")
	}
	if value, _ := s.Get("system.n"); value != 4 {
		t.Fatalf("system.n = %v, want 4", value)
	}
	if notified != 0 {
		t.Fatalf("aborted batch delivered %d notifications", notified)
	}
}

func TestBatchValidatesAgainstEvolvingState(t *testing.T) {
	s := New(WithValidator("b", func(path string, value, snapshot any) error {
		// Valid only when the same batch already set a=1.
		root, _ := snapshot.(map[string]any)
		if root["a"] != 1 {
			return Reject(path, value, "a must be set first")
		}
		return nil
	}))

	err := s.Batch([]Update{
		{Path: "a", Value: 1},
		{Path: "b", Value: 2},
	}, WithValidation())
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
}

func TestBatchMapOrdersUpdatesByPath(t *testing.T) {
	s := New()
	var paths []string
	s.Subscribe("*", func(change Change) { paths = append(paths, change.Path) })

	if err := s.BatchMap(map[string]any{"b": 2, "a": 1, "c": 3}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(paths, []string{"a", "b", "c"}) {
		t.Fatalf("paths = %v, want sorted order", paths)
	}
}

func TestResetAlwaysNotifies(t *testing.T) {
	s := New()
	deliveries := 0
	s.Subscribe("system.x", func(Change) { deliveries++ })

	def := []any{0.0, 0.0}
	if err := s.Reset("system.x", def); err != nil {
		t.Fatal(err)
	}
	if deliveries != 1 {
		t.Fatalf("deliveries = %d, want 1", deliveries)
	}

	// The stored value is a copy of the default.
	def[0] = 99.0
	x, _ := s.Get("system.x")
	if x.([]any)[0] != 0.0 {
		t.Fatal("Reset stored the caller's default by reference")
	}
}

func TestReentrantSetCommitsBeforeOuterLoopContinues(t *testing.T) {
	s := New(WithInitialState(map[string]any{"a": 0}))

	var seen []any
	s.Subscribe("a", func(change Change) {
		// First subscriber reacts to a=1 by writing b.
		if change.Value == 1 {
			if err := s.Set("b", "nested"); err != nil {
				t.Errorf("nested Set: %v", err)
			}
		}
	})
	s.Subscribe("a", func(Change) {
		// By the time the second subscriber runs, the nested commit is
		// already visible.
		value, _ := s.Get("b")
		seen = append(seen, value)
	})

	if err := s.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seen, []any{"nested"}) {
		t.Fatalf("seen = %v, want [nested]", seen)
	}
}

func TestNotificationDepthIsBounded(t *testing.T) {
	var logged []LogEvent
	s := New(
		WithMaxNotifyDepth(8),
		WithLogger(LoggerFunc(func(event LogEvent) { logged = append(logged, event) })),
	)

	calls := 0
	s.Subscribe("loop", func(change Change) {
		calls++
		// No base case: the store's depth bound must stop this.
		_ = s.Set("loop", change.Value.(int)+1)
	})

	if err := s.Set("loop", 0); err != nil {
		t.Fatal(err)
	}
	if calls != 8 {
		t.Fatalf("subscriber ran %d times, want 8", calls)
	}
	if len(logged) == 0 {
		t.Fatal("depth exhaustion was not logged")
	}
	// The writes past the bound still committed.
	if value, _ := s.Get("loop"); value != 8 {
		t.Fatalf("loop = %v, want 8", value)
	}
}

func TestDisposeClearsSubscriptions(t *testing.T) {
	s := New()
	calls := 0
	s.Subscribe("*", func(Change) { calls++ })
	s.Dispose()

	if err := s.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("disposed store delivered %d notifications", calls)
	}
	if value, _ := s.Get("a"); value != 1 {
		t.Fatal("disposed store rejected writes")
	}
}
