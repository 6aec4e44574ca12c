package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymgate/internal/directory"
	"gymgate/internal/subscription"
	id "gymgate/pkg/domain"
	"gymgate/pkg/platform/sentinel"
)

func TestInMemoryStore_TenantScoping(t *testing.T) {
	ctx := context.Background()
	store := directory.NewInMemoryStore()

	orgA := id.OrgID(uuid.New())
	orgB := id.OrgID(uuid.New())
	subjectID := id.SubjectID(uuid.New())

	store.Add(orgA, &directory.Profile{
		Subject:          id.MemberSubject(subjectID),
		Name:             "Asha Rao",
		MembershipNumber: "GM-0042",
		PlanName:         "Quarterly",
		Subscription:     &subscription.Snapshot{Status: subscription.StatusActive},
	})

	t.Run("finds within owning org", func(t *testing.T) {
		profile, err := store.FindByID(ctx, orgA, subjectID)
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", profile.Name)

		byNumber, err := store.FindByMembershipNumber(ctx, orgA, "GM-0042")
		require.NoError(t, err)
		assert.Equal(t, profile.Subject, byNumber.Subject)
	})

	t.Run("invisible from another org", func(t *testing.T) {
		_, err := store.FindByID(ctx, orgB, subjectID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		_, err = store.FindByMembershipNumber(ctx, orgB, "GM-0042")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("returned profile is a copy", func(t *testing.T) {
		profile, err := store.FindByID(ctx, orgA, subjectID)
		require.NoError(t, err)
		profile.Name = "mutated"

		fresh, err := store.FindByID(ctx, orgA, subjectID)
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", fresh.Name)
	})
}

func TestInMemorySettingsStore(t *testing.T) {
	ctx := context.Background()
	store := directory.NewInMemorySettingsStore()
	orgID := id.OrgID(uuid.New())

	t.Run("unknown org defaults to UTC", func(t *testing.T) {
		settings, err := store.Settings(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, time.UTC, settings.Timezone)
	})

	t.Run("configured timezone is returned", func(t *testing.T) {
		kolkata, err := time.LoadLocation("Asia/Kolkata")
		require.NoError(t, err)
		store.Set(orgID, &directory.Settings{Timezone: kolkata})

		settings, err := store.Settings(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, kolkata, settings.Timezone)
	})
}
