package fanout

import (
	"errors"
	"reflect"
	"testing"
)

func TestDoOrder(t *testing.T) {
	var got []int

	err := Do([]int{1, 2, 3}, AllForward, func(v int) error {
		got = append(got, v)
		return nil
	})
	if err != nil || !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("AllForward: got %v err %v", got, err)
	}

	got = nil
	err = Do([]int{1, 2, 3}, AllReverse, func(v int) error {
		got = append(got, v)
		return nil
	})
	if err != nil || !reflect.DeepEqual(got, []int{3, 2, 1}) {
		t.Fatalf("AllReverse: got %v err %v", got, err)
	}

	got = nil
	err = Do([]int{1, 2, 3}, FirstOnly, func(v int) error {
		got = append(got, v)
		return nil
	})
	if err != nil || !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("FirstOnly: got %v err %v", got, err)
	}
}

func TestDoStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var got []int
	err := Do([]int{1, 2, 3}, AllReverse, func(v int) error {
		got = append(got, v)
		if v == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !reflect.DeepEqual(got, []int{3, 2}) {
		t.Fatalf("got %v, want [3 2] (stop after failing call)", got)
	}
}

func TestDoEmptyFirstOnly(t *testing.T) {
	called := false
	if err := Do([]int{}, FirstOnly, func(int) error { called = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("fn should not be called for empty input")
	}
}

func TestCollect(t *testing.T) {
	out, err := Collect([]int{1, 2, 3}, func(v int) (int, error) { return v * 2, nil })
	if err != nil || !reflect.DeepEqual(out, []int{2, 4, 6}) {
		t.Fatalf("Collect: got %v err %v", out, err)
	}
}

func TestCollectError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Collect([]int{1, 2}, func(v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
