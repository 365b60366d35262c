package types

import (
	"errors"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestTask_Run(t *testing.T) {
	t.Run("success resolves future", func(t *testing.T) {
		task, future := NewTask(7, func() (int, error) {
			return 49, nil
		})

		if task.ID != 7 || future.ID() != 7 {
			t.Fatalf("expected ids 7, got task=%d future=%d", task.ID, future.ID())
		}
		if err := task.Run(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		value, err := future.Get()
		if err != nil || value != 49 {
			t.Errorf("expected (49, nil), got (%v, %v)", value, err)
		}
	})

	t.Run("returned error is captured", func(t *testing.T) {
		boom := errors.New("boom")
		task, future := NewTask(1, func() (string, error) {
			return "partial", boom
		})

		if err := task.Run(); err != boom {
			t.Errorf("expected Run to report boom, got %v", err)
		}

		value, err := future.Get()
		if err != boom {
			t.Errorf("expected boom from future, got %v", err)
		}
		if value != "partial" {
			t.Errorf("expected value to be kept, got %q", value)
		}
	})

	t.Run("panic is captured", func(t *testing.T) {
		task, future := NewTask(3, func() (int, error) {
			panic("kaboom")
		})

		err := task.Run()

		var pe *PanicError
		if !errors.As(err, &pe) {
			t.Fatalf("expected *PanicError, got %T", err)
		}
		if pe.TaskID != 3 || pe.Value != "kaboom" {
			t.Errorf("unexpected panic error: %+v", pe)
		}
		if !strings.Contains(pe.Error(), "stack trace") {
			t.Errorf("expected stack trace in message, got %q", pe.Error())
		}

		_, ferr := future.Get()
		if ferr != err {
			t.Errorf("future error %v differs from Run error %v", ferr, err)
		}
	})

	t.Run("panic with error value unwraps", func(t *testing.T) {
		sentinel := errors.New("sentinel")
		task, future := NewTask(4, func() (int, error) {
			panic(sentinel)
		})
		_ = task.Run()

		_, err := future.Get()
		if !errors.Is(err, sentinel) {
			t.Errorf("expected errors.Is(err, sentinel), got %v", err)
		}
	})
}

func TestTask_RunsAtMostOnce(t *testing.T) {
	var calls atomic.Int32
	task, future := NewTask(1, func() (int, error) {
		return int(calls.Add(1)), nil
	})

	var wg sync.WaitGroup
	var alreadyRun atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if errors.Is(task.Run(), ErrTaskAlreadyRun) {
				alreadyRun.Add(1)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected exactly one invocation, got %d", calls.Load())
	}
	if alreadyRun.Load() != 15 {
		t.Errorf("expected 15 rejected runs, got %d", alreadyRun.Load())
	}
	if !task.Ran() {
		t.Error("expected Ran to be true")
	}

	value, _ := future.Get()
	if value != 1 {
		t.Errorf("expected value 1, got %d", value)
	}
}

func TestTask_Goexit(t *testing.T) {
	task, future := NewTask(7, func() (int, error) {
		runtime.Goexit()
		return 1, nil
	})

	returned := make(chan bool, 1)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		_ = task.Run()
		returned <- true
	}()
	<-exited

	select {
	case <-returned:
		t.Fatal("Run returned normally after runtime.Goexit")
	default:
	}

	value, err := future.Get()
	if !errors.Is(err, ErrTaskGoexit) {
		t.Errorf("expected ErrTaskGoexit, got %v", err)
	}
	if value != 0 {
		t.Errorf("expected zero value, got %d", value)
	}
}
