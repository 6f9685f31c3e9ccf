package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("normalizes email", func(t *testing.T) {
		id := uuid.New()

		u, err := New(id, "  Cook@Example.COM ")

		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "cook@example.com", u.Email)
		assert.False(t, u.IsAdmin)
		assert.Equal(t, u.CreatedAt, u.UpdatedAt)
	})

	t.Run("rejects nil id", func(t *testing.T) {
		_, err := New(uuid.Nil, "cook@example.com")

		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a@b.co", "a@b.co", false},
		{" A@B.CO\t", "a@b.co", false},
		{"", "", true},
		{"not-an-email", "", true},
		{"Name <a@b.co>", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeEmail(tt.in)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminAction_Valid(t *testing.T) {
	assert.True(t, ActionGrantAdmin.Valid())
	assert.True(t, ActionRevokeAdmin.Valid())
	assert.False(t, AdminAction("promote").Valid())
}
