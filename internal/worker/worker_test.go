package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/testutil"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_SubmitPublishes(t *testing.T) {
	e := New(Config{Logger: testutil.NewTestLogger(t)})
	defer e.Close()

	ch := e.Subscribe()
	rev := e.Submit("x=4\nx^2")
	assert.Equal(t, uint64(1), rev)

	select {
	case res := <-ch:
		require.NoError(t, res.Err)
		assert.Equal(t, rev, res.Revision)
		assert.Equal(t, "16", res.Group.Answer)
	case <-time.After(5 * time.Second):
		t.Fatal("no result published")
	}

	latest, ok := e.Latest()
	require.True(t, ok)
	assert.Equal(t, "16", latest.Group.Answer)
}

func TestEvaluator_DiscardsStale(t *testing.T) {
	e := New(Config{})
	defer e.Close()

	for i := 0; i < 20; i++ {
		e.Submit("sum(i, 1, 50, i^2)")
	}
	last := e.Submit("1+1")
	e.Wait()

	res, ok := e.Latest()
	require.True(t, ok)
	assert.Equal(t, last, res.Revision)
	assert.Equal(t, "2", res.Group.Answer)
	assert.Equal(t, last, e.Revision())
}

func TestEvaluator_Prelude(t *testing.T) {
	e := New(Config{
		Options: []formula.Option{formula.WithExact(true)},
		Prelude: func(env *formula.Environment) error {
			_, err := env.Bind("rate", "1/3")
			return err
		},
	})
	defer e.Close()

	e.Submit("rate * 2")
	e.Wait()

	res, ok := e.Latest()
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "2 / 3", res.Group.Answer)
}

func TestEvaluator_ErrorResult(t *testing.T) {
	e := New(Config{})
	defer e.Close()

	e.Submit("1/0")
	e.Wait()

	res, ok := e.Latest()
	require.True(t, ok)
	require.Error(t, res.Err)
	assert.True(t, formula.IsKind(res.Err, formula.KindArithmetic))
}

func TestEvaluator_ConcurrentSubscribers(t *testing.T) {
	e := New(Config{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := e.Subscribe()
			e.Submit("2*3")
			e.Unsubscribe(ch)
		}()
	}
	wg.Wait()
	e.Close()

	e.mu.RLock()
	assert.Empty(t, e.listeners)
	e.mu.RUnlock()
}
