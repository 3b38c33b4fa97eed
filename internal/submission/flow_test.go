package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ileafrica/ilebot/core/telegram/state"
	"github.com/ileafrica/ilebot/internal/imagehost"
	"github.com/ileafrica/ilebot/internal/properties"
	"github.com/ileafrica/ilebot/internal/users"
)

type fakeHost struct {
	err   error
	calls int
}

func (h *fakeHost) Upload(_ context.Context, _ int64, ref, _ string) (string, error) {
	h.calls++
	if h.err != nil {
		return "", h.err
	}
	return "https://cdn.test/" + ref, nil
}

type failingProps struct{ properties.Repository }

func (failingProps) Create(context.Context, properties.Property) (properties.Property, error) {
	return properties.Property{}, errors.New("db down")
}

type fixture struct {
	flow  *Flow
	users *users.MemoryRepository
	props *properties.MemoryRepository
	host  *fakeHost
	store state.Store[Draft]
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		users: users.NewMemoryRepository(),
		props: properties.NewMemoryRepository(),
		host:  &fakeHost{},
		store: state.NewMemoryStore[Draft](),
		now:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	fx.flow = NewFlow(fx.store, fx.users, fx.props, fx.host, Config{})
	fx.flow.now = func() time.Time { return fx.now }
	_, err := fx.users.Create(context.Background(), 42, users.Defaults{Username: "ada"})
	require.NoError(t, err)
	return fx
}

func (fx *fixture) user(t *testing.T) users.User {
	t.Helper()
	u, err := fx.users.FindByChatID(context.Background(), 42)
	require.NoError(t, err)
	return u
}

func (fx *fixture) draft(t *testing.T) (Draft, bool) {
	t.Helper()
	d, ok, err := fx.store.Get(context.Background(), 42)
	require.NoError(t, err)
	return d, ok
}

func TestFlowEndToEnd(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.flow.Begin(ctx, fx.user(t))
	require.NoError(t, err)
	assert.Equal(t, StepName, res.Step)

	for _, text := range []string{"Sunset Villa", "Lekki", "45000", "House", "3 bed duplex"} {
		res, err = fx.flow.HandleText(ctx, 42, text)
		require.NoError(t, err)
		assert.Empty(t, res.Code, text)
	}
	assert.Equal(t, StepImages, res.Step)
	d, _ := fx.draft(t)
	assert.Equal(t, int64(30), d.Tokens)

	res, err = fx.flow.HandleImage(ctx, 42, "file-1", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Image 1/5 received. Send more or /done to finish.", res.Reply.Text)

	res, err = fx.flow.Done(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StepDone, res.Step)
	require.NotNil(t, res.Property)

	p := *res.Property
	assert.Equal(t, "Sunset Villa", p.Name)
	assert.Equal(t, "Lekki", p.Location)
	assert.Equal(t, 45000.0, p.Price)
	assert.Equal(t, int64(30), p.Tokens)
	assert.Equal(t, properties.TypeHouse, p.Type)
	assert.Equal(t, "3 bed duplex", p.Description)
	assert.Equal(t, []string{"https://cdn.test/file-1"}, p.Images)
	assert.Equal(t, properties.StatusPending, p.Status)
	assert.Equal(t, fx.now, p.SubmittedAt)

	u := fx.user(t)
	require.NotNil(t, u.LastSubmissionAt)
	assert.True(t, u.LastSubmissionAt.Equal(fx.now))

	_, ok := fx.draft(t)
	assert.False(t, ok)

	// A second /done finds nothing to finalize.
	res, err = fx.flow.Done(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, TextNoActive, res.Reply.Text)
	all, _ := fx.props.ListAll(ctx)
	assert.Len(t, all, 1)
}

func TestFlowBeginBanned(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.users.SetBanned(context.Background(), 42, true))

	res, err := fx.flow.Begin(context.Background(), fx.user(t))
	require.NoError(t, err)
	assert.Equal(t, CodeBanned, res.Code)
	assert.Equal(t, TextBanned, res.Reply.Text)
	_, ok := fx.draft(t)
	assert.False(t, ok)
}

func TestFlowBeginCooldown(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.users.UpdateLastSubmission(ctx, 42, fx.now.Add(-9*time.Minute)))

	res, err := fx.flow.Begin(ctx, fx.user(t))
	require.NoError(t, err)
	assert.Equal(t, CodeCooldown, res.Code)
	assert.Contains(t, res.Reply.Text, "1 minute(s)")
	_, ok := fx.draft(t)
	assert.False(t, ok)

	fx.now = fx.now.Add(time.Minute)
	res, err = fx.flow.Begin(ctx, fx.user(t))
	require.NoError(t, err)
	assert.Equal(t, StepName, res.Step)
}

func TestFlowBeginKeepsExistingDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.flow.Begin(ctx, fx.user(t))
	require.NoError(t, err)
	_, err = fx.flow.HandleText(ctx, 42, "Sunset Villa")
	require.NoError(t, err)

	res, err := fx.flow.Begin(ctx, fx.user(t))
	require.NoError(t, err)
	assert.Equal(t, StepLocation, res.Step)
	d, _ := fx.draft(t)
	assert.Equal(t, "Sunset Villa", d.Name)
}

func TestFlowInvalidPriceStays(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.store.Set(ctx, 42, Draft{OwnerID: 42, Step: StepPrice}))

	res, err := fx.flow.HandleText(ctx, 42, "lots")
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidPrice, res.Code)
	assert.Equal(t, StepPrice, res.Step)
	d, _ := fx.draft(t)
	assert.Equal(t, StepPrice, d.Step)
	assert.Zero(t, d.Price)
}

func TestFlowDoneWithoutImages(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.store.Set(ctx, 42, Draft{OwnerID: 42, Step: StepImages}))

	res, err := fx.flow.Done(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, CodeNoImages, res.Code)
	d, ok := fx.draft(t)
	require.True(t, ok)
	assert.Equal(t, StepImages, d.Step)
}

func TestFlowDoneBeforeImagesStep(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.store.Set(ctx, 42, Draft{OwnerID: 42, Step: StepType}))

	res, err := fx.flow.Done(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, CodeWrongStep, res.Code)
	assert.Equal(t, StepType, res.Step)
	assert.NotEmpty(t, res.Reply.Options)
}

func TestFlowSixthImageNotUploaded(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	full := Draft{OwnerID: 42, Step: StepImages, Images: []string{"1", "2", "3", "4", "5"}}
	require.NoError(t, fx.store.Set(ctx, 42, full))

	res, err := fx.flow.HandleImage(ctx, 42, "six", "")
	require.NoError(t, err)
	assert.Equal(t, CodeImageLimit, res.Code)
	assert.Zero(t, fx.host.calls)
	d, _ := fx.draft(t)
	assert.Len(t, d.Images, 5)
}

func TestFlowUploadFailureKeepsDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.host.err = errors.New("storage down")
	require.NoError(t, fx.store.Set(ctx, 42, Draft{OwnerID: 42, Step: StepImages}))

	res, err := fx.flow.HandleImage(ctx, 42, "f", "")
	require.NoError(t, err)
	assert.Equal(t, TextUploadFailed, res.Reply.Text)
	d, _ := fx.draft(t)
	assert.Empty(t, d.Images)
}

func TestFlowWriteFailureKeepsDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	flow := NewFlow(fx.store, fx.users, failingProps{}, fx.host, Config{})
	require.NoError(t, fx.store.Set(ctx, 42, Draft{OwnerID: 42, Step: StepImages, Images: []string{"u"}}))

	res, err := flow.Done(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, TextSaveFailed, res.Reply.Text)
	assert.Nil(t, res.Property)
	_, ok := fx.draft(t)
	assert.True(t, ok)
	assert.Nil(t, fx.user(t).LastSubmissionAt)
}

func TestFlowCancelAndReset(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.flow.Cancel(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, TextNothingCancel, res.Reply.Text)

	require.NoError(t, fx.store.Set(ctx, 42, Draft{OwnerID: 42, Step: StepLocation}))
	res, err = fx.flow.Cancel(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StepCancelled, res.Step)
	_, ok := fx.draft(t)
	assert.False(t, ok)

	require.NoError(t, fx.store.Set(ctx, 42, Draft{OwnerID: 42, Step: StepLocation}))
	had, err := fx.flow.Reset(ctx, 42)
	require.NoError(t, err)
	assert.True(t, had)
	had, err = fx.flow.Reset(ctx, 42)
	require.NoError(t, err)
	assert.False(t, had)
}

func TestFlowTextWithoutDraft(t *testing.T) {
	fx := newFixture(t)
	res, err := fx.flow.HandleText(context.Background(), 42, "hello")
	require.NoError(t, err)
	assert.Equal(t, TextNoActive, res.Reply.Text)
	assert.Equal(t, StepNone, res.Step)
}

var _ imagehost.Host = (*fakeHost)(nil)
