package model

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls   int
	outputs []*Output
	errs    []error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (*Output, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.outputs) {
		return f.outputs[i], nil
	}
	return &Output{Text: "done"}, nil
}

func TestMain(m *testing.M) {
	retryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func TestCompleteWithRetryRecoversFromTransient(t *testing.T) {
	p := &fakeProvider{
		errs:    []error{&TransientError{Err: errors.New("overloaded")}, nil},
		outputs: []*Output{nil, {Text: "ok"}},
	}

	out, err := CompleteWithRetry(t.Context(), p, Request{}, 3)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
	assert.Equal(t, 2, p.calls)
}

func TestCompleteWithRetryStopsOnFatal(t *testing.T) {
	p := &fakeProvider{
		errs: []error{&FatalError{Err: errors.New("invalid api key")}},
	}

	_, err := CompleteWithRetry(t.Context(), p, Request{}, 3)
	require.Error(t, err)
	var fe *FatalError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, p.calls, "fatal errors must not be retried")
}

func TestCompleteWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	transient := &TransientError{Err: errors.New("503")}
	p := &fakeProvider{errs: []error{transient, transient, transient}}

	_, err := CompleteWithRetry(t.Context(), p, Request{}, 3)
	require.Error(t, err)
	assert.Equal(t, 3, p.calls)
}

func TestIsTransientClassification(t *testing.T) {
	assert.True(t, IsTransient(&TransientError{Err: errors.New("x")}))
	assert.False(t, IsTransient(&FatalError{Err: errors.New("429 in text must not matter")}))
	assert.True(t, IsTransient(errors.New("429 Too Many Requests")))
	assert.True(t, IsTransient(errors.New("upstream 503")))
	assert.False(t, IsTransient(errors.New("invalid request")))
	assert.False(t, IsTransient(nil))
}
