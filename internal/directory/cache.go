package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gymgate/internal/subscription"
	id "gymgate/pkg/domain"
)

// CachedStore is a read-through Redis decorator over a directory Store.
// Directory reads sit on the hot path of every manual check-in; a short TTL
// keeps subscription snapshots fresh enough for admission decisions while
// absorbing repeated lookups.
//
// Cache failures degrade to the inner store, never to a request failure.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

// cachedProfile is the wire form of a Profile in Redis. IDs travel as
// strings; a separate DTO keeps the cache layout independent of the domain
// types.
type cachedProfile struct {
	SubjectID        string     `json:"subject_id"`
	SubjectKind      string     `json:"subject_kind"`
	Name             string     `json:"name"`
	MembershipNumber string     `json:"membership_number,omitempty"`
	PlanName         string     `json:"plan_name,omitempty"`
	SubStatus        string     `json:"subscription_status,omitempty"`
	SubEndDate       *time.Time `json:"subscription_end_date,omitempty"`
}

func toCachedProfile(p *Profile) cachedProfile {
	cached := cachedProfile{
		SubjectID:        p.Subject.ID.String(),
		SubjectKind:      string(p.Subject.Kind),
		Name:             p.Name,
		MembershipNumber: p.MembershipNumber,
		PlanName:         p.PlanName,
	}
	if p.Subscription != nil {
		cached.SubStatus = string(p.Subscription.Status)
		end := p.Subscription.EndDate
		cached.SubEndDate = &end
	}
	return cached
}

func fromCachedProfile(cached cachedProfile) (*Profile, error) {
	subjectID, err := id.ParseSubjectID(cached.SubjectID)
	if err != nil {
		return nil, err
	}
	subject, err := id.NewSubject(subjectID, id.SubjectKind(cached.SubjectKind))
	if err != nil {
		return nil, err
	}
	profile := &Profile{
		Subject:          subject,
		Name:             cached.Name,
		MembershipNumber: cached.MembershipNumber,
		PlanName:         cached.PlanName,
	}
	if cached.SubStatus != "" {
		profile.Subscription = &subscription.Snapshot{Status: subscription.Status(cached.SubStatus)}
		if cached.SubEndDate != nil {
			profile.Subscription.EndDate = *cached.SubEndDate
		}
	}
	return profile, nil
}

func (c *CachedStore) FindByID(ctx context.Context, orgID id.OrgID, subjectID id.SubjectID) (*Profile, error) {
	key := "gymgate:dir:" + orgID.String() + ":id:" + subjectID.String()
	return c.lookup(ctx, key, func() (*Profile, error) {
		return c.inner.FindByID(ctx, orgID, subjectID)
	})
}

func (c *CachedStore) FindByMembershipNumber(ctx context.Context, orgID id.OrgID, number string) (*Profile, error) {
	key := "gymgate:dir:" + orgID.String() + ":num:" + number
	return c.lookup(ctx, key, func() (*Profile, error) {
		return c.inner.FindByMembershipNumber(ctx, orgID, number)
	})
}

func (c *CachedStore) lookup(ctx context.Context, key string, load func() (*Profile, error)) (*Profile, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var cached cachedProfile
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			if profile, err := fromCachedProfile(cached); err == nil {
				return profile, nil
			}
		}
		// Corrupt entry: fall through to the inner store and rewrite.
	} else if !errors.Is(err, redis.Nil) {
		c.warn(ctx, "directory cache read failed", err)
	}

	profile, err := load()
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(toCachedProfile(profile)); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.warn(ctx, "directory cache write failed", err)
		}
	}
	return profile, nil
}

func (c *CachedStore) warn(ctx context.Context, msg string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, slog.String("error", err.Error()))
	}
}

// Invalidate drops the cached entries for a subject. Called by the
// surrounding SaaS after directory writes so the next check-in sees the
// fresh subscription state.
func (c *CachedStore) Invalidate(ctx context.Context, orgID id.OrgID, subjectID id.SubjectID, number string) error {
	keys := []string{"gymgate:dir:" + orgID.String() + ":id:" + subjectID.String()}
	if number != "" {
		keys = append(keys, "gymgate:dir:"+orgID.String()+":num:"+number)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate directory cache: %w", err)
	}
	return nil
}

var _ Store = (*CachedStore)(nil)
