package moderation

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ileafrica/ilebot/internal/outbound"
	"github.com/ileafrica/ilebot/internal/properties"
	"github.com/ileafrica/ilebot/internal/users"
)

type fixture struct {
	svc   *Service
	users *users.MemoryRepository
	props *properties.MemoryRepository
	admin users.User
	owner users.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	fx := &fixture{users: users.NewMemoryRepository(), props: properties.NewMemoryRepository()}
	fx.svc = NewService(fx.users, fx.props, 2)

	var err error
	fx.admin, err = fx.users.Create(ctx, 1, users.Defaults{IsAdmin: true})
	require.NoError(t, err)
	fx.owner, err = fx.users.Create(ctx, 42, users.Defaults{Username: "ada"})
	require.NoError(t, err)
	return fx
}

func (fx *fixture) submit(t *testing.T, name string, at time.Time) properties.Property {
	t.Helper()
	p, err := fx.props.Create(context.Background(), properties.Property{
		OwnerID: fx.owner.ChatID, Name: name, Location: "Lekki", Price: 45000, Tokens: 30,
		Type: properties.TypeHouse, Description: "d", Images: []string{"u"}, SubmittedAt: at,
	})
	require.NoError(t, err)
	return p
}

func TestNonAdminIsDenied(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	out, err := fx.svc.Pending(ctx, fx.owner)
	require.NoError(t, err)
	assert.Equal(t, TextNotAdmin, out[0].Text)

	out, err = fx.svc.All(ctx, fx.owner)
	require.NoError(t, err)
	assert.Equal(t, TextNotAdmin, out[0].Text)

	out, err = fx.svc.Decide(ctx, fx.owner, ActionApprove, "x")
	require.NoError(t, err)
	assert.Equal(t, TextNotAdmin, out[0].Text)

	out, err = fx.svc.SetBanned(ctx, fx.owner, "1", true)
	require.NoError(t, err)
	assert.Equal(t, TextNotAdmin, out[0].Text)
}

func TestPendingCarriesReviewButtons(t *testing.T) {
	fx := newFixture(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := fx.submit(t, "A", base)
	fx.submit(t, "B", base.Add(time.Minute))
	fx.submit(t, "C", base.Add(2*time.Minute))

	out, err := fx.svc.Pending(context.Background(), fx.admin)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Contains(t, out[0].Text, "Name: A")
	require.Len(t, out[0].Actions, 1)
	assert.Equal(t, ActionApprove, out[0].Actions[0][0].ID)
	assert.Equal(t, first.ID.String(), out[0].Actions[0][0].Payload)
	assert.Equal(t, ActionReject, out[0].Actions[0][1].ID)
	assert.Equal(t, "Showing 2 of 3 pending properties.", out[2].Text)
}

func TestDecideIsOneWayAndNotifiesOwner(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := fx.submit(t, "Sunset Villa", time.Now())

	out, err := fx.svc.Decide(ctx, fx.admin, ActionApprove, p.ID.String())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, fx.admin.ChatID, out[0].ChatID)
	assert.Equal(t, fx.owner.ChatID, out[1].ChatID)
	assert.Equal(t, `Your property "Sunset Villa" has been approved.`, out[1].Text)

	got, err := fx.props.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, properties.StatusApproved, got.Status)

	out, err = fx.svc.Decide(ctx, fx.admin, ActionReject, p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, TextAlreadyFinal, out[0].Text)

	out, err = fx.svc.Decide(ctx, fx.admin, ActionReject, "not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, TextBadReference, out[0].Text)
}

func TestSetBanned(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	out, err := fx.svc.SetBanned(ctx, fx.admin, "42", true)
	require.NoError(t, err)
	assert.Equal(t, "User 42 banned.", out[0].Text)
	u, _ := fx.users.FindByChatID(ctx, 42)
	assert.True(t, u.IsBanned)

	out, err = fx.svc.SetBanned(ctx, fx.admin, "42", false)
	require.NoError(t, err)
	assert.Equal(t, "User 42 unbanned.", out[0].Text)

	cases := map[string]string{
		"":      TextBanUsage,
		"abc":   TextBanUsage,
		"1 2":   TextBanUsage,
		"1":     TextSelfBan,
		"99999": TextUserNotFound,
	}
	for args, want := range cases {
		out, err := fx.svc.SetBanned(ctx, fx.admin, args, true)
		require.NoError(t, err)
		assert.Equal(t, want, out[0].Text, args)
	}
}

func TestOwnedAndAll(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	out, err := fx.svc.Owned(ctx, fx.owner)
	require.NoError(t, err)
	assert.Equal(t, TextNoOwned, out[0].Text)

	fx.submit(t, "Sunset Villa", time.Now())
	out, err = fx.svc.Owned(ctx, fx.owner)
	require.NoError(t, err)
	assert.Equal(t, "Your properties (1):\n\n1. Sunset Villa | Lekki | 45000 | pending", out[0].Text)

	out, err = fx.svc.All(ctx, fx.admin)
	require.NoError(t, err)
	assert.Contains(t, out[0].Text, "All properties (1):")
}

func TestAllSplitsLongListings(t *testing.T) {
	fx := newFixture(t)
	fx.svc = NewService(fx.users, fx.props, 20)
	ctx := context.Background()
	long := strings.Repeat("ы", 200)
	for i := 0; i < 20; i++ {
		_, err := fx.props.Create(ctx, properties.Property{
			OwnerID: fx.owner.ChatID, Name: long, Location: long, Price: 45000, Tokens: 30,
			Type: properties.TypeHouse, Description: "d", Images: []string{"u"}, SubmittedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	all, err := fx.svc.All(ctx, fx.admin)
	require.NoError(t, err)
	owned, err := fx.svc.Owned(ctx, fx.owner)
	require.NoError(t, err)

	for _, out := range [][]outbound.Message{all, owned} {
		require.Greater(t, len(out), 1)
		var joined strings.Builder
		for _, m := range out {
			assert.LessOrEqual(t, utf8.RuneCountInString(m.Text), maxMessageRunes)
			assert.NotEmpty(t, m.Text)
			joined.WriteString(m.Text)
		}
		assert.Contains(t, joined.String(), "20. "+long)
	}
}

func TestPackKeepsLinesWhole(t *testing.T) {
	got := pack([]string{"head\n", "\n1. aaaa", "\n2. bbbb", "\n3. cc"}, 14)
	assert.Equal(t, []string{"head\n\n1. aaaa", "2. bbbb\n3. cc"}, got)
}

func TestNotifyAdmins(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.users.EnsureAdmin(context.Background(), 2))
	p := fx.submit(t, "Sunset Villa", time.Now())

	out := fx.svc.NotifyAdmins(context.Background(), p)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ChatID)
	assert.Equal(t, int64(2), out[1].ChatID)
	assert.Contains(t, out[0].Text, "New property submitted for review:")
	assert.Len(t, out[0].Actions[0], 2)
}
