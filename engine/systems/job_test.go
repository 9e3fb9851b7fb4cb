package systems

import (
	"errors"
	"sync"
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobSystem(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)

	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)

	var mu sync.Mutex
	var completed []int
	var failed, callbacks int
	for i := 0; i < 4; i++ {
		err := js.Submit(metadata.JobTask{
			InputParams: i,
			OnStart: func(params interface{}, results chan<- interface{}) error {
				n := params.(int)
				if n == 3 {
					return errors.New("boom")
				}
				results <- n * 10
				return nil
			},
			OnComplete: func(results <-chan interface{}) {
				mu.Lock()
				defer mu.Unlock()
				for r := range results {
					completed = append(completed, r.(int))
				}
			},
			OnFailure: func(results <-chan interface{}) {
				mu.Lock()
				defer mu.Unlock()
				failed++
			},
			OnCompletionCallback: func() {
				mu.Lock()
				defer mu.Unlock()
				callbacks++
			},
		})
		require.NoError(t, err)
	}
	require.NoError(t, js.Shutdown())

	assert.ElementsMatch(t, []int{0, 10, 20}, completed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 4, callbacks)
}

func TestJobSystemRejectsWorkAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)

	var ran sync.WaitGroup
	ran.Add(3)
	for i := 0; i < 3; i++ {
		js.AddWorkNonBlocking(metadata.JobTask{
			OnStart: func(interface{}, chan<- interface{}) error {
				ran.Done()
				return nil
			},
		})
	}
	ran.Wait()
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())

	job := metadata.JobTask{
		OnStart: func(interface{}, chan<- interface{}) error {
			t.Error("job ran after shutdown")
			return nil
		},
	}
	assert.ErrorIs(t, js.Submit(job), ErrJobSystemShutdown)
	assert.NotPanics(t, func() { js.AddWorkNonBlocking(job) })
}
