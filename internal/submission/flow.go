package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ileafrica/ilebot/core/logger"
	"github.com/ileafrica/ilebot/core/metrics"
	"github.com/ileafrica/ilebot/core/telegram/state"
	"github.com/ileafrica/ilebot/internal/imagehost"
	"github.com/ileafrica/ilebot/internal/properties"
	"github.com/ileafrica/ilebot/internal/users"
)

// User-facing texts that do not depend on the step.
const (
	TextNoActive       = "No active submission. Use /add_property to start one."
	TextCancelled      = "Submission cancelled."
	TextNothingCancel  = "There is no submission to cancel."
	TextBanned         = "You are banned from submitting properties."
	TextAlreadyActive  = "You already have a submission in progress."
	TextUploadFailed   = "Failed to upload the image. Please try sending it again."
	TextSaveFailed     = "Could not save your property. Please send /done again."
	TextSubmitted      = "Thank you! Your property has been submitted for review."
	textImageReceived  = "Image %d/%d received. Send more or /done to finish."
	defaultCooldownDur = 10 * time.Minute
)

// Config tunes the flow. Zero values pick defaults.
type Config struct {
	Cooldown time.Duration
	Limits   Limits
}

// Result is the outcome of one flow operation.
type Result struct {
	Reply Reply
	// Step is the draft step after the operation; StepNone when no draft exists.
	Step Step
	// Property is set when the draft was finalized.
	Property *properties.Property
	// Code is set when the input was rejected.
	Code string
}

// Flow owns the drafts and applies the transitions with their side effects.
// Callers serialize operations per owner.
type Flow struct {
	store  state.Store[Draft]
	users  users.Repository
	props  properties.Repository
	images imagehost.Host
	cfg    Config
	now    func() time.Time
}

// NewFlow wires a flow.
func NewFlow(store state.Store[Draft], u users.Repository, p properties.Repository, images imagehost.Host, cfg Config) *Flow {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldownDur
	}
	cfg.Limits = cfg.Limits.withDefaults()
	return &Flow{store: store, users: u, props: p, images: images, cfg: cfg, now: time.Now}
}

// Current returns the stored draft of owner.
func (f *Flow) Current(ctx context.Context, ownerID int64) (Draft, bool, error) {
	d, ok, err := f.store.Get(ctx, ownerID)
	if err != nil {
		return Draft{}, false, fmt.Errorf("load draft: %w", err)
	}
	return d, ok, nil
}

// Begin starts a submission for u unless u is banned or still cooling down.
// An existing draft is kept and its current question asked again.
func (f *Flow) Begin(ctx context.Context, u users.User) (Result, error) {
	d, ok, err := f.Current(ctx, u.ChatID)
	if err != nil {
		return Result{}, err
	}
	if ok {
		r := Prompt(d.Step, f.cfg.Limits)
		r.Text = TextAlreadyActive + "\n\n" + r.Text
		return Result{Reply: r, Step: d.Step}, nil
	}

	if u.IsBanned {
		metrics.RecordSubmission(metrics.SubmissionBanned)
		return Result{Reply: Reply{Text: TextBanned}, Step: StepNone, Code: CodeBanned}, nil
	}
	now := f.now()
	if wait := f.cooldownLeft(u, now); wait > 0 {
		metrics.RecordSubmission(metrics.SubmissionCooldown)
		minutes := int(math.Ceil(wait.Minutes()))
		return Result{
			Reply: Reply{Text: fmt.Sprintf("Please wait %d minute(s) before submitting another property.", minutes)},
			Step:  StepNone,
			Code:  CodeCooldown,
		}, nil
	}

	d = Begin(u.ChatID, now)
	if err := f.store.Set(ctx, u.ChatID, d); err != nil {
		return Result{}, fmt.Errorf("save draft: %w", err)
	}
	metrics.RecordSubmission(metrics.SubmissionStarted)
	f.log(ctx, slog.LevelInfo, "submission.begin", u.ChatID, d.Step)
	return Result{Reply: Prompt(d.Step, f.cfg.Limits), Step: d.Step}, nil
}

func (f *Flow) cooldownLeft(u users.User, now time.Time) time.Duration {
	if u.LastSubmissionAt == nil {
		return 0
	}
	elapsed := now.Sub(*u.LastSubmissionAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return f.cfg.Cooldown - elapsed
}

// HandleText answers the current question.
func (f *Flow) HandleText(ctx context.Context, ownerID int64, text string) (Result, error) {
	d, ok, err := f.Current(ctx, ownerID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Reply: Reply{Text: TextNoActive}, Step: StepNone}, nil
	}

	next, err := ApplyText(d, text, f.cfg.Limits)
	if err != nil {
		return f.rejected(err, d.Step)
	}
	if err := f.store.Set(ctx, ownerID, next); err != nil {
		return Result{}, fmt.Errorf("save draft: %w", err)
	}
	f.log(ctx, slog.LevelDebug, "submission.step", ownerID, next.Step)
	return Result{Reply: Prompt(next.Step, f.cfg.Limits), Step: next.Step}, nil
}

// HandleImage uploads the attachment and appends its URL. A failed upload
// leaves the draft unchanged.
func (f *Flow) HandleImage(ctx context.Context, ownerID int64, ref, contentType string) (Result, error) {
	d, ok, err := f.Current(ctx, ownerID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Reply: Reply{Text: TextNoActive}, Step: StepNone}, nil
	}
	if err := CanAcceptImage(d, f.cfg.Limits); err != nil {
		return Result{Reply: Reply{Text: err.Error(), Cancel: true}, Step: d.Step, Code: CodeOf(err)}, nil
	}

	url, err := f.images.Upload(ctx, ownerID, ref, contentType)
	if err != nil {
		logger.SVCSubmission.LogAttrs(ctx, slog.LevelWarn, "image upload failed",
			slog.String("event", "submission.image"),
			slog.Int64("owner_id", ownerID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return Result{Reply: Reply{Text: TextUploadFailed, Cancel: true}, Step: d.Step}, nil
	}

	next, err := ApplyImage(d, url, f.cfg.Limits)
	if err != nil {
		return f.rejected(err, d.Step)
	}
	if err := f.store.Set(ctx, ownerID, next); err != nil {
		return Result{}, fmt.Errorf("save draft: %w", err)
	}
	text := fmt.Sprintf(textImageReceived, len(next.Images), f.cfg.Limits.MaxImages)
	return Result{Reply: Reply{Text: text, Cancel: true}, Step: next.Step}, nil
}

// Done finalizes the draft: the property is written, the owner's last
// submission time updated and the draft cleared. A failed property write
// keeps the draft so /done can be retried.
func (f *Flow) Done(ctx context.Context, ownerID int64) (Result, error) {
	d, ok, err := f.Current(ctx, ownerID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Reply: Reply{Text: TextNoActive}, Step: StepNone}, nil
	}
	if err := ReadyToFinalize(d); err != nil {
		if CodeOf(err) == CodeNoImages {
			return Result{Reply: Reply{Text: err.Error(), Cancel: true}, Step: d.Step, Code: CodeNoImages}, nil
		}
		return f.rejected(err, d.Step)
	}

	now := f.now()
	p, err := f.props.Create(ctx, d.Property(now))
	if err != nil {
		metrics.RecordSubmission(metrics.SubmissionFailed)
		logger.SVCSubmission.LogAttrs(ctx, slog.LevelError, "property write failed",
			slog.String("event", "submission.finalize"),
			slog.Int64("owner_id", ownerID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return Result{Reply: Reply{Text: TextSaveFailed, Cancel: true}, Step: d.Step}, nil
	}

	// Independent of the property write; a failure only skews the cooldown.
	if err := f.users.UpdateLastSubmission(ctx, ownerID, now); err != nil {
		logger.SVCSubmission.LogAttrs(ctx, slog.LevelWarn, "last submission update failed",
			slog.String("event", "submission.finalize"),
			slog.Int64("owner_id", ownerID),
			slog.String("property_id", p.ID.String()),
			slog.String("err", err.Error()),
		)
	}
	if err := f.store.Clear(ctx, ownerID); err != nil {
		return Result{}, fmt.Errorf("clear draft: %w", err)
	}

	metrics.RecordSubmission(metrics.SubmissionFinalized)
	logger.SVCSubmission.LogAttrs(ctx, slog.LevelInfo, "submission finalized",
		slog.String("event", "submission.finalize"),
		slog.String("status", "ok"),
		slog.Int64("owner_id", ownerID),
		slog.String("property_id", p.ID.String()),
		slog.Int("images", len(p.Images)),
	)
	return Result{
		Reply:    Reply{Text: TextSubmitted, RemoveKeyboard: true},
		Step:     StepDone,
		Property: &p,
	}, nil
}

// Cancel drops the draft and says so.
func (f *Flow) Cancel(ctx context.Context, ownerID int64) (Result, error) {
	had, err := f.drop(ctx, ownerID)
	if err != nil {
		return Result{}, err
	}
	if !had {
		return Result{Reply: Reply{Text: TextNothingCancel, RemoveKeyboard: true}, Step: StepNone}, nil
	}
	metrics.RecordSubmission(metrics.SubmissionCancelled)
	f.log(ctx, slog.LevelInfo, "submission.cancel", ownerID, StepCancelled)
	return Result{Reply: Reply{Text: TextCancelled, RemoveKeyboard: true}, Step: StepCancelled}, nil
}

// Reset drops the draft without telling the user. It reports whether a
// draft existed.
func (f *Flow) Reset(ctx context.Context, ownerID int64) (bool, error) {
	had, err := f.drop(ctx, ownerID)
	if err != nil || !had {
		return had, err
	}
	metrics.RecordSubmission(metrics.SubmissionReset)
	f.log(ctx, slog.LevelInfo, "submission.reset", ownerID, StepNone)
	return true, nil
}

func (f *Flow) drop(ctx context.Context, ownerID int64) (bool, error) {
	_, ok, err := f.Current(ctx, ownerID)
	if err != nil || !ok {
		return false, err
	}
	if err := f.store.Clear(ctx, ownerID); err != nil {
		return false, fmt.Errorf("clear draft: %w", err)
	}
	return true, nil
}

func (f *Flow) rejected(err error, s Step) (Result, error) {
	var e *Error
	if !errors.As(err, &e) {
		return Result{}, err
	}
	return Result{Reply: reject(e, s, f.cfg.Limits), Step: s, Code: e.Code()}, nil
}

func (f *Flow) log(ctx context.Context, level slog.Level, event string, ownerID int64, s Step) {
	logger.SVCSubmission.LogAttrs(ctx, level, event,
		slog.String("event", event),
		slog.Int64("owner_id", ownerID),
		slog.String("step", string(s)),
	)
}
