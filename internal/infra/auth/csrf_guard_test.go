package auth

import (
	"testing"

	domainerrors "bidhub/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFGuard_IssueProducesMatchingPair(t *testing.T) {
	guard := NewCSRFGuard()

	cookieValue, echoValue, err := guard.Issue()
	require.NoError(t, err)
	assert.Len(t, cookieValue, 48)
	assert.Equal(t, cookieValue, echoValue)
	assert.NoError(t, guard.Verify(cookieValue, echoValue))

	other, _, err := guard.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, cookieValue, other)
}

func TestCSRFGuard_Verify(t *testing.T) {
	guard := NewCSRFGuard()

	tests := []struct {
		name   string
		cookie string
		header string
		want   error
	}{
		{name: "equal", cookie: "abc", header: "abc", want: nil},
		{name: "missing cookie", cookie: "", header: "abc", want: domainerrors.ErrCSRFMissing},
		{name: "missing header", cookie: "abc", header: "", want: domainerrors.ErrCSRFMissing},
		{name: "both missing", cookie: "", header: "", want: domainerrors.ErrCSRFMissing},
		{name: "mismatch", cookie: "abc", header: "abd", want: domainerrors.ErrCSRFMismatch},
		{name: "prefix mismatch", cookie: "abc", header: "abcd", want: domainerrors.ErrCSRFMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Verify(tt.cookie, tt.header)
			if tt.want == nil {
				assert.NoError(t, err)

				return
			}
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}
