package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindNotInGym, KindOf(ErrNotInGym))
	assert.Equal(t, KindInvalidParticipants, KindOf(fmt.Errorf("send: %w", ErrInvalidParticipants)))
	assert.Equal(t, KindEmptyMessage, KindOf(fmt.Errorf("post: %w", ErrEmptyMessage)))
	assert.Equal(t, KindForbidden, KindOf(fmt.Errorf("a: %w", fmt.Errorf("b: %w", ErrForbidden))))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, KindBadRequest, KindOf(ErrBadRequest))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestIdentityIsGym(t *testing.T) {
	assert.True(t, Identity{UserID: "g1", Role: RoleGym}.IsGym("g1"))
	assert.False(t, Identity{UserID: "g1", Role: RoleGym}.IsGym("g2"))
	assert.False(t, Identity{UserID: "g1", Role: RoleTrainer}.IsGym("g1"))
	assert.False(t, Identity{Role: RoleGym}.IsGym(""))
}
