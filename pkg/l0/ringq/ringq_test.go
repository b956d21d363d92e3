package ringq

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func drain(q *Queue[int]) []int {
	var out []int
	q.Each(func(v int) bool {
		out = append(out, v)
		return true
	})
	return out
}

func TestNew(t *testing.T) {
	require.Equal(t, DefaultCapacity, New[int](0).Capacity())
	q := New[int](4)
	require.Equal(t, 4, q.Capacity())
	require.Equal(t, 0, q.Size())
	require.True(t, q.Empty())
}

func TestZeroValue(t *testing.T) {
	var q Queue[int]
	require.True(t, q.Push(1))
	require.Equal(t, 1, q.Capacity())
	v, ok := q.Pull()
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestPushPull(t *testing.T) {
	q := New[int](8)
	for i := 1; i <= 5; i++ {
		require.False(t, q.Push(i))
	}
	require.Equal(t, 5, q.Size())

	v, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 5, q.Size())

	for i := 1; i <= 5; i++ {
		v, ok := q.Pull()
		require.Truef(t, ok, "pull[%d]", i)
		require.Equalf(t, i, v, "pull[%d] mismatch", i)
	}
	_, ok = q.Pull()
	require.False(t, ok)
	require.True(t, q.Empty())
}

func TestSizeAccounting(t *testing.T) {
	q := New[int](3)
	pushes, pops := 0, 0
	for round := 0; round < 50; round++ {
		for i := 0; i < round%7+1; i++ {
			q.Push(pushes)
			pushes++
		}
		for i := 0; i < round%5 && !q.Empty(); i++ {
			require.True(t, q.Pop())
			pops++
		}
		require.Equalf(t, pushes-pops, q.Size(), "round %d", round)
	}
	// remaining elements are exactly pops..pushes-1 in order
	want := make([]int, 0, pushes-pops)
	for i := pops; i < pushes; i++ {
		want = append(want, i)
	}
	require.Equal(t, want, drain(q))
}

func TestInterleavedRoundTrip(t *testing.T) {
	q := New[int](2)
	var pulled []int
	next := 0
	for round := 0; round < 40; round++ {
		batch := make([]int, round%4+1)
		for i := range batch {
			batch[i] = next
			next++
		}
		q.PushN(batch...)
		if n := round % 3; n <= q.Size() {
			out, ok := q.PullN(n)
			require.True(t, ok)
			pulled = append(pulled, out...)
		}
	}
	pulled = append(pulled, drain(q)...)
	require.Len(t, pulled, next)
	for i, v := range pulled {
		require.Equalf(t, i, v, "element[%d] out of order", i)
	}
}

func TestGrowth(t *testing.T) {
	q := New[int](10)
	for i := 0; i < 10; i++ {
		require.False(t, q.Push(i))
	}
	require.True(t, q.Push(10), "pushing past capacity must reallocate")
	require.Equal(t, 12, q.Capacity())
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, drain(q))

	prev := q.Capacity()
	for i := 11; i < 200; i++ {
		q.Push(i)
		require.True(t, q.Capacity() >= prev)
		prev = q.Capacity()
	}
	for i := 0; i < 190; i++ {
		q.Pop()
	}
	require.Equal(t, prev, q.Capacity(), "capacity never shrinks")
	require.Equal(t, []int{190, 191, 192, 193, 194, 195, 196, 197, 198, 199}, drain(q))
}

func TestPushNGrowsByRequest(t *testing.T) {
	q := New[int](4)
	q.PushN(1, 2, 3)
	require.True(t, q.PushN(4, 5, 6, 7, 8, 9))
	require.True(t, q.Capacity() >= 9)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, drain(q))
	require.False(t, q.PushN())
}

func TestCompactInsteadOfGrow(t *testing.T) {
	q := New[int](10)
	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	require.True(t, q.PopN(6))
	// tail is full but only 4 of 10 are live: compaction makes room
	require.False(t, q.Push(10))
	require.Equal(t, 10, q.Capacity())
	require.Equal(t, []int{6, 7, 8, 9, 10}, drain(q))
}

func TestGrowWhenNearlyFull(t *testing.T) {
	q := New[int](10)
	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	q.Pop()
	// 9 of 10 live exceeds the normalize bias: grow instead of compact
	require.True(t, q.Push(10))
	require.Equal(t, 12, q.Capacity())
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, drain(q))
}

func TestPopN(t *testing.T) {
	q := New[int](8)
	q.PushN(1, 2, 3)
	require.False(t, q.PopN(4))
	require.Equal(t, 3, q.Size())
	require.False(t, q.PopN(-1))
	require.True(t, q.PopN(2))
	require.Equal(t, []int{3}, drain(q))
	require.True(t, q.PopN(0))
}

func TestPopUntil(t *testing.T) {
	q := New[int](8)
	q.PushN(1, 2, 0, 3, 0, 4)
	require.True(t, q.PopUntil(0))
	require.Equal(t, []int{3, 0, 4}, drain(q))
	require.False(t, q.PopUntil(9))
	require.Equal(t, []int{3, 0, 4}, drain(q))
}

func TestPullN(t *testing.T) {
	q := New[int](8)
	q.PushN(1, 2, 3, 4)

	out, ok := q.PeekN(2)
	require.True(t, ok)
	require.Equal(t, []int{1, 2}, out)
	require.Equal(t, 4, q.Size())

	out, ok = q.PullN(5)
	require.False(t, ok)
	require.Nil(t, out)
	require.Equal(t, 4, q.Size())

	out, ok = q.PullN(3)
	require.True(t, ok)
	require.Equal(t, []int{1, 2, 3}, out)
	require.Equal(t, []int{4}, drain(q))
}

func TestPullUntil(t *testing.T) {
	q := New[byte](8)
	q.PushN('a', 'b', '\n', 'c')

	out, ok := q.PeekUntil('\n')
	require.True(t, ok)
	require.Equal(t, []byte("ab\n"), out)
	require.Equal(t, 4, q.Size())

	_, ok = q.PullUntil('x')
	require.False(t, ok)
	require.Equal(t, 4, q.Size())

	out, ok = q.PullUntil('\n')
	require.True(t, ok)
	require.Equal(t, []byte("ab\n"), out)
	require.Equal(t, 1, q.Size())
}

func TestFind(t *testing.T) {
	q := New[int](4)
	require.Equal(t, End, q.Find(1))
	q.PushN(5, 6, 7)
	q.Pop()
	require.Equal(t, 0, q.Find(6))
	require.Equal(t, 1, q.Find(7))
	require.Equal(t, End, q.Find(5))
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		capacity int
		push     int
		pop      int
		changed  bool
		capAfter int
	}{
		{"already compacted", 10, 3, 0, false, 10},
		{"compacts", 10, 6, 3, true, 10},
		{"grows when full", 10, 10, 0, true, 12},
		{"grows at bias", 10, 9, 1, true, 12},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := New[int](tc.capacity)
			for i := 0; i < tc.push; i++ {
				q.Push(i)
			}
			q.PopN(tc.pop)
			before := drain(q)
			require.Equal(t, tc.changed, q.Normalize())
			require.Equal(t, tc.capAfter, q.Capacity())
			require.Equal(t, before, drain(q), "normalize must not reorder elements")
		})
	}
}

func TestClear(t *testing.T) {
	q := New[int](4)
	q.PushN(1, 2, 3, 4, 5)
	c := q.Capacity()
	q.Clear()
	require.True(t, q.Empty())
	require.Equal(t, c, q.Capacity())
}

func TestAllocationLimit(t *testing.T) {
	q := New[int](4)
	q.Limit = 4
	q.PushN(1, 2, 3, 4)
	defer func() {
		r := recover()
		require.NotNil(t, r, "growth beyond limit must panic")
		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.Is(err, ErrAllocation))
		require.Equal(t, []int{1, 2, 3, 4}, drain(q), "state is untouched on failure")
	}()
	q.Push(5)
}

func TestEachStops(t *testing.T) {
	q := New[string](4)
	q.PushN("a", "b", "c")
	var seen []string
	q.Each(func(s string) bool {
		seen = append(seen, s)
		return s != "b"
	})
	require.Equal(t, []string{"a", "b"}, seen)
}

func TestPointerElements(t *testing.T) {
	type item struct{ n int }
	q := New[*item](2)
	items := make([]*item, 5)
	for i := range items {
		items[i] = &item{i}
		q.Push(items[i])
	}
	require.Equal(t, 3, q.Find(items[3]))
	for i := range items {
		v, ok := q.Pull()
		require.True(t, ok)
		require.Truef(t, items[i] == v, "item %d", i)
	}
}
