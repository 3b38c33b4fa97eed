package submission

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ileafrica/ilebot/internal/properties"
)

func at(step Step) Draft {
	return Draft{OwnerID: 1, Step: step}
}

func TestApplyTextWalksTheSteps(t *testing.T) {
	d := Begin(1, time.Now())
	require.Equal(t, StepName, d.Step)

	answers := []struct {
		text string
		want Step
	}{
		{"Sunset Villa", StepLocation},
		{"Lekki", StepPrice},
		{"47,000", StepType},
		{"house", StepDescription},
		{"3 bed duplex", StepImages},
	}
	for _, a := range answers {
		var err error
		d, err = ApplyText(d, a.text, Limits{})
		require.NoError(t, err, a.text)
		assert.Equal(t, a.want, d.Step)
	}
	assert.Equal(t, "Sunset Villa", d.Name)
	assert.Equal(t, 47000.0, d.Price)
	assert.Equal(t, int64(31), d.Tokens)
	assert.Equal(t, properties.TypeHouse, d.Type)
}

func TestApplyTextRejectsBadPrice(t *testing.T) {
	for _, in := range []string{"abc", "-5", "0", "NaN", "Inf", "", "1e300", "1000000000000001"} {
		d := at(StepPrice)
		next, err := ApplyText(d, in, Limits{})
		assert.Equal(t, CodeInvalidPrice, CodeOf(err), in)
		assert.Equal(t, StepPrice, next.Step)
		assert.Zero(t, next.Price)
	}
}

func TestApplyTextRejectsUnknownType(t *testing.T) {
	next, err := ApplyText(at(StepType), "Castle", Limits{})
	assert.Equal(t, CodeInvalidType, CodeOf(err))
	assert.Equal(t, StepType, next.Step)
}

func TestApplyTextBounds(t *testing.T) {
	_, err := ApplyText(at(StepName), "   ", Limits{})
	assert.Equal(t, CodeEmptyText, CodeOf(err))

	_, err = ApplyText(at(StepLocation), strings.Repeat("é", 11), Limits{MaxLocation: 10})
	assert.Equal(t, CodeTooLong, CodeOf(err))

	d, err := ApplyText(at(StepLocation), strings.Repeat("é", 10), Limits{MaxLocation: 10})
	require.NoError(t, err)
	assert.Equal(t, StepPrice, d.Step)
}

func TestApplyTextAtImagesStep(t *testing.T) {
	_, err := ApplyText(at(StepImages), "hello", Limits{})
	assert.Equal(t, CodeWrongStep, CodeOf(err))
}

func TestApplyImageCap(t *testing.T) {
	d := at(StepImages)
	var err error
	for i := 0; i < 5; i++ {
		d, err = ApplyImage(d, "u", Limits{})
		require.NoError(t, err)
	}
	next, err := ApplyImage(d, "sixth", Limits{})
	assert.Equal(t, CodeImageLimit, CodeOf(err))
	assert.Len(t, next.Images, 5)
}

func TestApplyImageDoesNotAlias(t *testing.T) {
	d := at(StepImages)
	d.Images = make([]string, 1, 4)
	d.Images[0] = "a"

	next, err := ApplyImage(d, "b", Limits{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, d.Images)
	assert.Equal(t, []string{"a", "b"}, next.Images)
}

func TestReadyToFinalize(t *testing.T) {
	assert.Equal(t, CodeNoImages, CodeOf(ReadyToFinalize(at(StepImages))))
	assert.Equal(t, CodeWrongStep, CodeOf(ReadyToFinalize(at(StepPrice))))

	d := at(StepImages)
	d.Images = []string{"u"}
	assert.NoError(t, ReadyToFinalize(d))
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice(" 1 500_000.50 ")
	require.NoError(t, err)
	assert.Equal(t, 1500000.5, p)

	p, err = ParsePrice("1,000,000,000,000,000")
	require.NoError(t, err)
	assert.Equal(t, properties.MaxPrice, p)

	_, err = ParsePrice("1e300")
	assert.Equal(t, CodeInvalidPrice, CodeOf(err))
}

func TestPromptMarkup(t *testing.T) {
	typ := Prompt(StepType, Limits{})
	assert.Equal(t, []string{"House", "Apartment", "Land", "Commercial", "/cancel"}, typ.Options)
	assert.True(t, Prompt(StepDescription, Limits{}).RemoveKeyboard)
	assert.True(t, Prompt(StepName, Limits{}).Cancel)
	assert.Contains(t, Prompt(StepImages, Limits{MaxImages: 3}).Text, "up to 3 photos")
}
