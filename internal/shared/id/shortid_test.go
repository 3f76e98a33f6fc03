package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithPrefix(t *testing.T) {
	sid, err := GenerateWithPrefix("sub", DefaultLength)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sid, "sub_"))
	assert.Len(t, sid, len("sub_")+DefaultLength)
	assert.NoError(t, ValidatePrefix(sid, "sub"))
}

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		prefix  string
		wantErr bool
	}{
		{name: "matching prefix", input: "sub_abc", prefix: "sub"},
		{name: "wrong prefix", input: "fa_abc", prefix: "sub", wantErr: true},
		{name: "missing separator", input: "subabc", prefix: "sub", wantErr: true},
		{name: "empty short id", input: "sub_", prefix: "sub", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrefix(tt.input, tt.prefix)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
