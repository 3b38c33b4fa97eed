package submission

import (
	"fmt"

	"github.com/ileafrica/ilebot/internal/properties"
)

// Reply is what the flow wants shown to the user. Options render as a reply
// keyboard; Cancel adds the inline cancel button. A message carries one
// markup, so RemoveKeyboard wins over Options, which win over Cancel.
type Reply struct {
	Text           string
	Options        []string
	Cancel         bool
	RemoveKeyboard bool
}

// Prompt returns the question asked at step s.
func Prompt(s Step, lim Limits) Reply {
	lim = lim.withDefaults()
	switch s {
	case StepName:
		return Reply{Text: "Let's add your property. What is the property name?", Cancel: true}
	case StepLocation:
		return Reply{Text: "Where is the property located?", Cancel: true}
	case StepPrice:
		return Reply{Text: "What is the price? Numbers only, e.g. 45000.", Cancel: true}
	case StepType:
		opts := make([]string, 0, len(properties.Types)+1)
		for _, t := range properties.Types {
			opts = append(opts, string(t))
		}
		return Reply{Text: "Select the property type:", Options: append(opts, "/cancel")}
	case StepDescription:
		return Reply{Text: "Describe the property (rooms, size, features):", RemoveKeyboard: true}
	case StepImages:
		return Reply{
			Text:   fmt.Sprintf("Send up to %d photos of the property. Send /done when you are finished.", lim.MaxImages),
			Cancel: true,
		}
	default:
		return Reply{Text: "Use /add_property to submit a property."}
	}
}

// reject prefixes the prompt of the current step with the rejection text.
func reject(err error, s Step, lim Limits) Reply {
	r := Prompt(s, lim)
	r.Text = err.Error() + "\n\n" + r.Text
	return r
}
