package tgbot

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

// ErrNoBot is returned by FileSource before Attach.
var ErrNoBot = errors.New("tgbot: file source used before the bot started")

// FileDownloader is the part of *tele.Bot used to fetch attachments.
type FileDownloader interface {
	File(file *tele.File) (io.ReadCloser, error)
}

// FileSource opens Telegram file IDs. The image host is wired before the
// bot exists, so the bot is attached once it has started.
type FileSource struct {
	bot atomic.Pointer[FileDownloader]
}

// Attach sets the bot used for downloads.
func (s *FileSource) Attach(bot FileDownloader) {
	s.bot.Store(&bot)
}

// Open downloads the file identified by ref.
func (s *FileSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bot := s.bot.Load()
	if bot == nil || *bot == nil {
		return nil, ErrNoBot
	}
	return (*bot).File(&tele.File{FileID: ref})
}
