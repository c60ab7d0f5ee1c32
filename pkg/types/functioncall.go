package types

import "fmt"

// AgentAction identifies a primitive browser action the agentic loop's
// oracle may request, one per turn.
type AgentAction string

const (
	AgentActionClick      AgentAction = "click"
	AgentActionType       AgentAction = "type"
	AgentActionScroll     AgentAction = "scroll"
	AgentActionWait       AgentAction = "wait"
	AgentActionKey        AgentAction = "key"
	AgentActionScreenshot AgentAction = "screenshot"
)

// Valid reports whether a is one of the six known agent actions.
func (a AgentAction) Valid() bool {
	switch a {
	case AgentActionClick, AgentActionType, AgentActionScroll,
		AgentActionWait, AgentActionKey, AgentActionScreenshot:
		return true
	}
	return false
}

// ScrollDirection is the direction of a scroll action.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// NormalizedRange is the coordinate space the oracle uses for clicks.
// Coordinates are in [0, NormalizedRange] on both axes and map linearly to
// viewport pixels before dispatch.
const NormalizedRange = 1000

// Coordinate is a click position in the normalized 0-1000 space.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FunctionCall is the oracle's decision for one turn of the agentic loop.
type FunctionCall struct {
	Action       AgentAction     `json:"action"`
	Coordinate   *Coordinate     `json:"coordinate,omitempty"`
	Text         string          `json:"text,omitempty"`
	Direction    ScrollDirection `json:"direction,omitempty"`
	Milliseconds int             `json:"milliseconds,omitempty"`
}

// Validate rejects calls missing required arguments for their action with a
// structured DriverError rather than letting the driver fail mid-dispatch.
func (c *FunctionCall) Validate() error {
	if !c.Action.Valid() {
		return NewDriverError(DriverErrInvalidArgument,
			fmt.Sprintf("unknown action %q", c.Action), nil)
	}
	switch c.Action {
	case AgentActionClick:
		if c.Coordinate == nil {
			return NewDriverError(DriverErrInvalidArgument, "click requires a coordinate", nil)
		}
		if c.Coordinate.X < 0 || c.Coordinate.X > NormalizedRange ||
			c.Coordinate.Y < 0 || c.Coordinate.Y > NormalizedRange {
			return NewDriverError(DriverErrInvalidArgument,
				fmt.Sprintf("coordinate (%d,%d) outside [0,%d]", c.Coordinate.X, c.Coordinate.Y, NormalizedRange), nil)
		}
	case AgentActionType:
		if c.Text == "" {
			return NewDriverError(DriverErrInvalidArgument, "type requires text", nil)
		}
	case AgentActionKey:
		if c.Text == "" {
			return NewDriverError(DriverErrInvalidArgument, "key requires a key name in text", nil)
		}
	case AgentActionScroll:
		switch c.Direction {
		case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		default:
			return NewDriverError(DriverErrInvalidArgument,
				fmt.Sprintf("invalid scroll direction %q", c.Direction), nil)
		}
	case AgentActionWait:
		if c.Milliseconds <= 0 {
			return NewDriverError(DriverErrInvalidArgument, "wait requires positive milliseconds", nil)
		}
	}
	return nil
}

// FunctionCallResult is the driver's execution outcome for one call, fed
// back to the oracle as the next turn's observation.
type FunctionCallResult struct {
	Success    bool   `json:"success"`
	Screenshot []byte `json:"-"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}
