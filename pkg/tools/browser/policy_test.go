package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigationPolicyCheck(t *testing.T) {
	policy, err := NewNavigationPolicy(
		[]string{"example.com", "*.example.com", "**.docs.org"},
		[]string{"admin.example.com"},
	)
	require.NoError(t, err)

	tests := []struct {
		url     string
		wantErr string
	}{
		{"https://example.com/path", ""},
		{"http://www.EXAMPLE.com", ""},
		{"https://a.b.docs.org/page", ""},
		{"https://admin.example.com", "blocked"},
		{"https://deep.www.example.com", "not in the allowed hosts"},
		{"https://other.net", "not in the allowed hosts"},
		{"example.com", "must be absolute"},
		{"ftp://example.com", "must be absolute"},
		{"https://", "has no host"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := policy.Check(tt.url)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNilNavigationPolicy(t *testing.T) {
	var policy *NavigationPolicy
	assert.NoError(t, policy.Check("https://anything.example"))
	assert.Error(t, policy.Check("javascript:alert(1)"))
}

func TestNavigationPolicyBlockOnly(t *testing.T) {
	policy, err := NewNavigationPolicy(nil, []string{"**.internal"})
	require.NoError(t, err)

	assert.NoError(t, policy.Check("https://example.com"))
	assert.Error(t, policy.Check("http://db.corp.internal/"))
}

func TestNewNavigationPolicyInvalidPattern(t *testing.T) {
	_, err := NewNavigationPolicy([]string{"[unclosed"}, nil)
	assert.Error(t, err)
}
