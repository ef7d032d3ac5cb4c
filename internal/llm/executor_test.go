package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adewale-ajadi/exam-extractor/internal/common"
	"github.com/adewale-ajadi/exam-extractor/internal/credentials"
)

type fakeCaller struct {
	creds []credentials.Credential
	fn    func(call int, cred credentials.Credential) (string, error)
}

func (f *fakeCaller) Call(_ context.Context, cred credentials.Credential, _ CallRequest) (string, error) {
	f.creds = append(f.creds, cred)
	return f.fn(len(f.creds), cred)
}

var errRateLimited = errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")

func newTestPool(t *testing.T, keys ...string) *credentials.Pool {
	t.Helper()
	pool, err := credentials.NewPool(keys)
	require.NoError(t, err)
	return pool
}

func TestExecute_ExhaustsExactlyPoolSizeAttempts(t *testing.T) {
	pool := newTestPool(t, "a", "b", "c")
	caller := &fakeCaller{fn: func(int, credentials.Credential) (string, error) {
		return "", errRateLimited
	}}
	exec := NewExecutor(pool, caller, time.Millisecond, nil)

	_, err := exec.Execute(context.Background(), CallRequest{Prompt: "p"})
	require.ErrorIs(t, err, common.ErrCredentialsExhausted)
	assert.Len(t, caller.creds, 3, "one attempt per credential, no more, no fewer")
}

func TestExecute_RotatesToFreshCredential(t *testing.T) {
	pool := newTestPool(t, "a", "b")
	caller := &fakeCaller{fn: func(call int, _ credentials.Credential) (string, error) {
		if call == 1 {
			return "", errRateLimited
		}
		return "ok", nil
	}}
	exec := NewExecutor(pool, caller, time.Millisecond, nil)

	text, err := exec.Execute(context.Background(), CallRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	require.Len(t, caller.creds, 2)
	assert.NotEqual(t, caller.creds[0], caller.creds[1])
}

func TestExecute_NonRateLimitErrorPropagatesImmediately(t *testing.T) {
	pool := newTestPool(t, "a", "b", "c")
	transportErr := errors.New("connection reset by peer")
	caller := &fakeCaller{fn: func(int, credentials.Credential) (string, error) {
		return "", transportErr
	}}
	exec := NewExecutor(pool, caller, time.Millisecond, nil)

	_, err := exec.Execute(context.Background(), CallRequest{Prompt: "p"})
	require.ErrorIs(t, err, transportErr)
	assert.NotErrorIs(t, err, common.ErrCredentialsExhausted)
	assert.Len(t, caller.creds, 1)
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	pool := newTestPool(t, "only")
	caller := &fakeCaller{fn: func(int, credentials.Credential) (string, error) {
		return "response text", nil
	}}
	exec := NewExecutor(pool, caller, time.Millisecond, nil)

	text, err := exec.Execute(context.Background(), CallRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "response text", text)
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	pool := newTestPool(t, "a", "b")
	caller := &fakeCaller{fn: func(int, credentials.Credential) (string, error) {
		return "", errRateLimited
	}}
	exec := NewExecutor(pool, caller, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := exec.Execute(ctx, CallRequest{Prompt: "p"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, caller.creds, 1, "no further attempts after cancellation")
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(errors.New("Error 429, Please retry")))
	assert.True(t, IsRateLimitError(errors.New("status RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("Quota exceeded for requests")))
	assert.False(t, IsRateLimitError(nil))
	assert.False(t, IsRateLimitError(errors.New("bad gateway")))
	assert.False(t, IsRateLimitError(context.Canceled))
}
