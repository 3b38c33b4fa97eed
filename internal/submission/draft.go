// Package submission implements the property submission conversation: a
// linear step machine over a per-chat Draft, and the Flow that persists
// drafts and finalizes them into properties.
package submission

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ileafrica/ilebot/internal/properties"
)

// Step is the position of a draft in the conversation.
type Step string

const (
	StepNone        Step = "none"
	StepName        Step = "name"
	StepLocation    Step = "location"
	StepPrice       Step = "price"
	StepType        Step = "type"
	StepDescription Step = "description"
	StepImages      Step = "images"
	StepDone        Step = "done"
	StepCancelled   Step = "cancelled"
)

// Terminal reports whether the step ends the conversation.
func (s Step) Terminal() bool { return s == StepDone || s == StepCancelled }

// Draft is a submission in progress. It is stored as JSON by the session
// backends.
type Draft struct {
	OwnerID     int64           `json:"owner_id"`
	Step        Step            `json:"step"`
	Name        string          `json:"name,omitempty"`
	Location    string          `json:"location,omitempty"`
	Price       float64         `json:"price,omitempty"`
	Tokens      int64           `json:"tokens,omitempty"`
	Type        properties.Type `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Images      []string        `json:"images,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
}

// Limits bound free-text answers and the number of images.
type Limits struct {
	MaxName        int
	MaxLocation    int
	MaxDescription int
	MaxImages      int
}

// DefaultLimits are used for zero fields.
var DefaultLimits = Limits{MaxName: 200, MaxLocation: 200, MaxDescription: 2000, MaxImages: 5}

func (l Limits) withDefaults() Limits {
	if l.MaxName <= 0 {
		l.MaxName = DefaultLimits.MaxName
	}
	if l.MaxLocation <= 0 {
		l.MaxLocation = DefaultLimits.MaxLocation
	}
	if l.MaxDescription <= 0 {
		l.MaxDescription = DefaultLimits.MaxDescription
	}
	if l.MaxImages <= 0 {
		l.MaxImages = DefaultLimits.MaxImages
	}
	return l
}

// Begin starts a draft at the name step.
func Begin(ownerID int64, now time.Time) Draft {
	return Draft{OwnerID: ownerID, Step: StepName, StartedAt: now.UTC()}
}

// ApplyText feeds a free-text answer to the current step and returns the
// advanced draft. On a *Error the returned draft equals d.
func ApplyText(d Draft, text string, lim Limits) (Draft, error) {
	lim = lim.withDefaults()
	text = strings.TrimSpace(text)
	next := d.clone()

	switch d.Step {
	case StepName:
		if err := checkText(text, "property name", lim.MaxName); err != nil {
			return d, err
		}
		next.Name = text
		next.Step = StepLocation
	case StepLocation:
		if err := checkText(text, "location", lim.MaxLocation); err != nil {
			return d, err
		}
		next.Location = text
		next.Step = StepPrice
	case StepPrice:
		price, err := ParsePrice(text)
		if err != nil {
			return d, err
		}
		next.Price = price
		next.Tokens = properties.Tokens(price)
		next.Step = StepType
	case StepType:
		t, ok := properties.ParseType(text)
		if !ok {
			return d, newError(CodeInvalidType, "Please choose one of the listed property types.")
		}
		next.Type = t
		next.Step = StepDescription
	case StepDescription:
		if err := checkText(text, "description", lim.MaxDescription); err != nil {
			return d, err
		}
		next.Description = text
		next.Step = StepImages
	case StepImages:
		return d, newError(CodeWrongStep, "Please send a photo, or /done when you are finished.")
	default:
		return d, newError(CodeWrongStep, "There is no submission in progress.")
	}
	return next, nil
}

// CanAcceptImage reports whether another image may be added to d. It is
// checked before uploading so rejected images are never stored.
func CanAcceptImage(d Draft, lim Limits) error {
	lim = lim.withDefaults()
	if d.Step != StepImages {
		return newError(CodeWrongStep, "I wasn't expecting an image right now.")
	}
	if len(d.Images) >= lim.MaxImages {
		return newError(CodeImageLimit, fmt.Sprintf("Maximum of %d images reached. Send /done to finish.", lim.MaxImages))
	}
	return nil
}

// ApplyImage appends an uploaded image URL.
func ApplyImage(d Draft, url string, lim Limits) (Draft, error) {
	if err := CanAcceptImage(d, lim); err != nil {
		return d, err
	}
	next := d.clone()
	next.Images = append(next.Images, url)
	return next, nil
}

// ReadyToFinalize reports whether d can be turned into a property.
func ReadyToFinalize(d Draft) error {
	if d.Step != StepImages {
		return newError(CodeWrongStep, "Your submission isn't complete yet.")
	}
	if len(d.Images) == 0 {
		return newError(CodeNoImages, "Please upload at least one image before finishing.")
	}
	return nil
}

// Property converts a finished draft into a pending property record.
func (d Draft) Property(submittedAt time.Time) properties.Property {
	return properties.Property{
		OwnerID:     d.OwnerID,
		Name:        d.Name,
		Location:    d.Location,
		Price:       d.Price,
		Tokens:      d.Tokens,
		Type:        d.Type,
		Description: d.Description,
		Images:      append([]string(nil), d.Images...),
		SubmittedAt: submittedAt.UTC(),
		Status:      properties.StatusPending,
	}
}

func (d Draft) clone() Draft {
	if d.Images != nil {
		d.Images = append([]string(nil), d.Images...)
	}
	return d
}

// ParsePrice accepts a positive number up to properties.MaxPrice. Thousand
// separators (",", "_" and spaces) are ignored.
func ParsePrice(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '_', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	invalid := newError(CodeInvalidPrice, "Please enter a valid price as a positive number, e.g. 45000.")
	if cleaned == "" {
		return 0, invalid
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, invalid
	}
	if price > properties.MaxPrice {
		return 0, newError(CodeInvalidPrice, "That price is too large. Please enter a realistic price.")
	}
	return price, nil
}

func checkText(text, field string, max int) error {
	if text == "" {
		return newError(CodeEmptyText, fmt.Sprintf("The %s cannot be empty.", field))
	}
	if utf8.RuneCountInString(text) > max {
		return newError(CodeTooLong, fmt.Sprintf("The %s is too long (max %d characters).", field, max))
	}
	return nil
}
