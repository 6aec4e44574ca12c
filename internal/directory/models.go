// Package directory exposes the member/trainer directory and the
// organization settings this core reads.
//
// The directory is owned by the surrounding SaaS; attendance only reads it.
// Writes (member CRUD, plan changes) never go through this package.
package directory

import (
	"time"

	"gymgate/internal/subscription"
	id "gymgate/pkg/domain"
)

// Profile is the directory's read-only view of an attending subject.
type Profile struct {
	Subject          id.Subject
	Name             string
	MembershipNumber string
	PlanName         string
	// Subscription is present for members and absent for trainers, whose
	// admission is not billing-gated.
	Subscription *subscription.Snapshot
}

// Settings carries the per-organization attendance settings.
type Settings struct {
	// Timezone is the organization's day-boundary timezone.
	Timezone *time.Location
}
