package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRows(t *testing.T) {
	markup := InlineButtonsRows(
		[]InlineBtn{{Text: "Approve", Unique: "approve", Data: "p1"}, {Text: "Reject", Unique: "reject", Data: "p1"}},
		[]InlineBtn{{Text: "Cancel", Unique: "submission.cancel"}},
	)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "approve", markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "p1", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "submission.cancel", markup.InlineKeyboard[1][0].Unique)
}

func TestReplyButtons(t *testing.T) {
	markup := ReplyButtons(Chunk([]string{"House", "Apartment", "Land", "Commercial", "/cancel"}, 2)...)
	require.Len(t, markup.ReplyKeyboard, 3)
	assert.Equal(t, "House", markup.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "/cancel", markup.ReplyKeyboard[2][0].Text)
	assert.True(t, markup.ResizeKeyboard)
}

func TestChunk(t *testing.T) {
	assert.Equal(t, [][]string{{"a"}, {"b"}}, Chunk([]string{"a", "b"}, 0))
	assert.Nil(t, Chunk(nil, 3))
}
