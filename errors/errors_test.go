package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		rejection bool
	}{
		{"empty identity", ErrEmptyIdentity, CodeEmptyIdentity, true},
		{"wrapped not joined", fmt.Errorf("send: %w", ErrNotJoined), CodeNotJoined, true},
		{"unknown connection", ErrUnknownConnection, CodeUnknownConnection, true},
		{"hub closed", ErrHubClosed, CodeInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			req.Equal(tt.code, Code(tt.err))
			req.Equal(tt.rejection, IsRejection(tt.err))
		})
	}
}
