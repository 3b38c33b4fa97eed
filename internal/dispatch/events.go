package dispatch

import "strings"

// Sender identifies who produced an event. ChatID is the owner key of
// drafts and the directory.
type Sender struct {
	ChatID    int64
	Username  string
	FirstName string
}

// Event is one inbound transport event: Command, Text, Image or
// CallbackAction.
type Event interface {
	Origin() Sender
	event()
}

// Command is a slash command, or the bare word "done".
type Command struct {
	Name string
	Args string
	From Sender
}

// Text is free text that is not a command.
type Text struct {
	Body string
	From Sender
}

// Image is an attachment reference to be fetched from the transport.
type Image struct {
	Ref         string
	ContentType string
	From        Sender
}

// CallbackAction is an inline button press.
type CallbackAction struct {
	ActionID string
	Payload  string
	From     Sender
}

func (e Command) Origin() Sender        { return e.From }
func (e Text) Origin() Sender           { return e.From }
func (e Image) Origin() Sender          { return e.From }
func (e CallbackAction) Origin() Sender { return e.From }

func (Command) event()        {}
func (Text) event()           {}
func (Image) event()          {}
func (CallbackAction) event() {}

// Classify turns a message body into a Command or a Text. "/name@bot args"
// yields Command{Name: "name", Args: "args"}; "done" in any case is /done.
func Classify(body string, from Sender) Event {
	trimmed := strings.TrimSpace(body)
	if strings.EqualFold(trimmed, CmdDone) {
		return Command{Name: CmdDone, From: from}
	}
	if !strings.HasPrefix(trimmed, "/") || len(trimmed) == 1 {
		return Text{Body: body, From: from}
	}
	head, args, _ := strings.Cut(trimmed[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return Command{
		Name: strings.ToLower(head),
		Args: strings.TrimSpace(args),
		From: from,
	}
}
