package runtime

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Bind_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := domain.NewConnectionID()

	// Given no connection is bound
	req.Empty(registry.DistinctIdentities())

	// When a connection binds an identity
	err := registry.Bind(connectionID, "Ana")

	// Then the identity is visible
	req.NoError(err)
	req.Equal(1, registry.Len())
	req.Equal(1, registry.Count("Ana"))
	req.Equal([]domain.Identity{"Ana"}, registry.DistinctIdentities())
}

func TestRegistry_Bind_Twice_Is_Rejected(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connectionID := domain.NewConnectionID()
	req.NoError(registry.Bind(connectionID, "Ana"))

	// When the same connection binds again
	err := registry.Bind(connectionID, "Bob")

	// Then the first binding is kept
	req.ErrorIs(err, errors.ErrAlreadyBound)
	req.Equal([]domain.Identity{"Ana"}, registry.DistinctIdentities())
	req.Equal(0, registry.Count("Bob"))
}

func TestRegistry_Bind_Empty_Identity_Is_Rejected(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.ErrorIs(registry.Bind(domain.NewConnectionID(), ""), errors.ErrEmptyIdentity)
	req.ErrorIs(registry.Bind(domain.NewConnectionID(), "   "), errors.ErrEmptyIdentity)
	req.Equal(0, registry.Len())
}

func TestRegistry_Same_Identity_Is_Deduplicated(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := domain.NewConnectionID()
	second := domain.NewConnectionID()

	// Given two connections bound to the same identity
	req.NoError(registry.Bind(first, "Ana"))
	req.NoError(registry.Bind(second, "Ana"))
	req.Equal([]domain.Identity{"Ana"}, registry.DistinctIdentities())
	req.Equal(2, registry.Count("Ana"))

	// When the first one unbinds
	identity, ok := registry.Unbind(first)

	// Then the identity is still present
	req.True(ok)
	req.Equal(domain.Identity("Ana"), identity)
	req.Equal([]domain.Identity{"Ana"}, registry.DistinctIdentities())

	// When the second one unbinds
	_, ok = registry.Unbind(second)

	// Then the identity is gone
	req.True(ok)
	req.Empty(registry.DistinctIdentities())
	req.Equal(0, registry.Count("Ana"))
}

func TestRegistry_Unbind_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	identity, ok := registry.Unbind(domain.NewConnectionID())

	req.False(ok)
	req.Empty(identity)
}

func TestRegistry_DistinctIdentities_Is_Sorted(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	for _, name := range []domain.Identity{"Clara", "Ana", "Bob"} {
		req.NoError(registry.Bind(domain.NewConnectionID(), name))
	}

	req.Equal([]domain.Identity{"Ana", "Bob", "Clara"}, registry.DistinctIdentities())
}
