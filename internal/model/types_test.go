package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexTaskValidate(t *testing.T) {
	cases := []struct {
		name    string
		task    IndexTask
		wantErr string
	}{
		{
			name: "valid",
			task: IndexTask{Identifier: "alice", Context: "teamA", ImageKey: "uploads/1.jpg"},
		},
		{
			name:    "missing identifier",
			task:    IndexTask{Context: "teamA", ImageKey: "uploads/1.jpg"},
			wantErr: "missing identifier",
		},
		{
			name:    "missing imageKey reported before context",
			task:    IndexTask{Identifier: "alice"},
			wantErr: "missing imageKey",
		},
		{
			name:    "missing context",
			task:    IndexTask{Identifier: "alice", ImageKey: "uploads/1.jpg"},
			wantErr: "missing context",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.task.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMetadataKey(t *testing.T) {
	assert.Equal(t, "teamA-alice", MetadataKey("teamA", "alice"))
	assert.Equal(t, "-", MetadataKey("", ""))
}
