package models

// VisualState is the price indicator rendered for a listing.
type VisualState int

const (
	// StateUnset leaves the rendered price untouched.
	StateUnset VisualState = iota
	StateNeutral
	StateFavorable
	StateUnfavorable
)

// Color returns the CSS color for the state, "" for StateUnset.
func (s VisualState) Color() string {
	switch s {
	case StateNeutral:
		return "black"
	case StateFavorable:
		return "green"
	case StateUnfavorable:
		return "red"
	default:
		return ""
	}
}

func (s VisualState) String() string {
	switch s {
	case StateNeutral:
		return "neutral"
	case StateFavorable:
		return "favorable"
	case StateUnfavorable:
		return "unfavorable"
	default:
		return "unset"
	}
}

// ActionEdit opens the edit popup for the control's listing.
const ActionEdit = "edit"

// Control describes one button in a listing's control container.
// Exactly one of Link and Action is set.
type Control struct {
	Style  string `json:"style"` // background color
	Link   string `json:"link,omitempty"`
	Action string `json:"action,omitempty"`
}

// Target returns the navigation link or the action name.
func (c Control) Target() string {
	if c.Link != "" {
		return c.Link
	}
	return c.Action
}

// ControlSet is the ordered set of controls a listing should display.
type ControlSet []Control

// PageEvent is something the operator did on the page that the agent must handle.
type PageEvent struct {
	Kind      string `json:"kind"` // "change", "action" or "save"
	ListingID string `json:"id,omitempty"`
	Action    string `json:"action,omitempty"`

	// Raw edit form values, present for "save".
	ASIN               string `json:"asin,omitempty"`
	CurrentAmazonPrice string `json:"current_amazon_price,omitempty"`
	VisynetMaxPrice    string `json:"visynet_max_price,omitempty"`
}

const (
	EventChange = "change"
	EventAction = "action"
	EventSave   = "save"
)
