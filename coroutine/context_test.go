package coroutine

import "testing"

func TestSwapRunsEntryToCompletionWhenNoYield(t *testing.T) {
	ran := false
	ctx := New(func(c *Context) {
		ran = true
	}, 4096)

	ctx.Swap()

	if !ran {
		t.Fatal("expected entry to run")
	}
	if !ctx.Done() {
		t.Fatal("expected context to be done after entry returns without yielding")
	}
}

func TestYieldSuspendsAndResumes(t *testing.T) {
	var order []string
	ctx := New(func(c *Context) {
		order = append(order, "a")
		c.Yield()
		order = append(order, "b")
		c.Yield()
		order = append(order, "c")
	}, 4096)

	ctx.Swap()
	order = append(order, "host1")
	ctx.Swap()
	order = append(order, "host2")
	ctx.Swap()

	if ctx.StackSize() != 4096 {
		t.Fatalf("expected recorded stack size hint, got %d", ctx.StackSize())
	}
	if !ctx.Done() {
		t.Fatal("expected context done after final swap")
	}

	want := []string{"a", "host1", "b", "host2", "c"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestSwapAfterDonePanics(t *testing.T) {
	ctx := New(func(c *Context) {}, 4096)
	ctx.Swap()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on Swap after completion")
		}
	}()
	ctx.Swap()
}

func TestManyYieldsPreserveOrder(t *testing.T) {
	const yields = 20
	seen := 0
	ctx := New(func(c *Context) {
		for i := 0; i < yields; i++ {
			seen++
			c.Yield()
		}
	}, 8192)

	for i := 0; i < yields; i++ {
		ctx.Swap()
		if seen != i+1 {
			t.Fatalf("expected %d yields observed, got %d", i+1, seen)
		}
	}
	ctx.Swap()
	if !ctx.Done() {
		t.Fatal("expected completion after final swap")
	}
}
