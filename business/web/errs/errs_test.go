package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watoukuang/demochain/business/web/errs"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
)

func TestFromRound(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		trusted bool
	}{
		{name: "precondition", err: fmt.Errorf("%w: payload is required", state.ErrPrecondition), trusted: true},
		{name: "in progress", err: state.ErrRoundInProgress, trusted: true},
		{name: "no round", err: state.ErrNoRound, trusted: true},
		{name: "unexpected", err: errors.New("disk on fire")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errs.FromRound(tt.err)

			require.Equal(t, tt.trusted, errs.IsTrusted(err))
			assert.True(t, errors.Is(err, tt.err))

			if tt.trusted {
				te := errs.GetTrusted(err)
				assert.Equal(t, http.StatusBadRequest, te.Status)
				assert.Equal(t, tt.err.Error(), te.Error())
			}
		})
	}

	assert.NoError(t, errs.FromRound(nil))
	assert.Nil(t, errs.GetTrusted(errors.New("x")))
}
