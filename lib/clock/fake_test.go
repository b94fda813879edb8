// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNowIsStable(t *testing.T) {
	fake := NewFake()
	if !fake.Now().Equal(fake.Now()) {
		t.Error("Now changed without Advance")
	}
}

func TestFakeAdvance(t *testing.T) {
	fake := NewFake()
	start := fake.Now()
	fake.Advance(90 * time.Minute)
	if got := fake.Now().Sub(start); got != 90*time.Minute {
		t.Errorf("advanced %v, want 90m", got)
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	fake := NewFake()
	ch := fake.After(time.Hour)

	select {
	case <-ch:
		t.Fatal("After fired before time advanced")
	default:
	}

	fake.Advance(time.Hour)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire after Advance past the deadline")
	}
}

func TestFakeAfterImmediateForNonPositive(t *testing.T) {
	fake := NewFake()
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeSetRefusesBackwards(t *testing.T) {
	fake := NewFake()
	defer func() {
		if recover() == nil {
			t.Error("Set into the past did not panic")
		}
	}()
	fake.Set(fake.Now().Add(-time.Second))
}
