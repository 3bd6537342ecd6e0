package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "carelink/pkg/domain-errors"
)

func TestParseRole(t *testing.T) {
	t.Run("accepts canonical roles", func(t *testing.T) {
		for _, in := range []string{"parent", "sitter", "admin"} {
			role, err := ParseRole(in)
			require.NoError(t, err)
			assert.Equal(t, in, role.String())
		}
	})

	t.Run("normalizes babysitter alias", func(t *testing.T) {
		role, err := ParseRole("babysitter")
		require.NoError(t, err)
		assert.Equal(t, RoleSitter, role)
	})

	t.Run("rejects empty and unknown roles", func(t *testing.T) {
		for _, in := range []string{"", "superadmin", "PARENT"} {
			_, err := ParseRole(in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestRoleNamespace(t *testing.T) {
	assert.Equal(t, NamespaceParent, RoleParent.Namespace())
	assert.Equal(t, NamespaceSitter, RoleSitter.Namespace())
	assert.Equal(t, NamespaceAdmin, RoleAdmin.Namespace())
}

func TestFormatNumber(t *testing.T) {
	t.Run("prefixes by namespace", func(t *testing.T) {
		cases := map[Namespace]ReadableNumber{
			NamespaceParent: "p1",
			NamespaceSitter: "b1",
			NamespaceAdmin:  "a1",
			NamespaceChild:  "c1",
		}
		for ns, want := range cases {
			got, err := FormatNumber(ns, 1)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("renders large sequences", func(t *testing.T) {
		got, err := FormatNumber(NamespaceSitter, 10042)
		require.NoError(t, err)
		assert.Equal(t, ReadableNumber("b10042"), got)
	})

	t.Run("rejects zero sequence", func(t *testing.T) {
		_, err := FormatNumber(NamespaceParent, 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown namespace", func(t *testing.T) {
		_, err := FormatNumber(Namespace("pet"), 1)
		require.Error(t, err)
	})
}
