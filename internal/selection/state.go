package selection

import (
	"github.com/Conceptual-Machines/prompt-architect/internal/catalog"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
)

// Step is the wizard position derived from a State
type Step int

const (
	StepNoMode Step = iota
	StepChooseCategory
	StepChooseSubgenre
	StepConfigure
	StepFreeform
)

var stepNames = map[Step]string{
	StepNoMode:         "no_mode",
	StepChooseCategory: "choose_category",
	StepChooseSubgenre: "choose_subgenre",
	StepConfigure:      "configure",
	StepFreeform:       "freeform",
}

func (s Step) String() string {
	return stepNames[s]
}

// MarshalText renders the step name
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the complete wizard selection of one session
type State struct {
	Mode     models.Mode          `json:"mode"`
	Category string               `json:"category"`
	Subgenre string               `json:"subgenre"`
	Config   models.Configuration `json:"config"`
	Locks    models.LockSet       `json:"locks"`
}

// NewState returns the initial state: no mode and default configuration
func NewState(c *catalog.Catalog) State {
	return State{Config: defaultConfig(c)}
}

func defaultConfig(c *catalog.Catalog) models.Configuration {
	return models.Configuration{
		Instruments: []string{},
		Structure:   c.DefaultStructure(),
	}
}

// Step derives the wizard position
func (s State) Step() Step {
	switch {
	case s.Mode == models.ModeNone:
		return StepNoMode
	case !s.Mode.IsArchitect():
		return StepFreeform
	case s.Category == "":
		return StepChooseCategory
	case s.Subgenre == "":
		return StepChooseSubgenre
	default:
		return StepConfigure
	}
}

// Ready returns nil when generation may be requested, otherwise a
// *ValidationError carrying the message to show
func (s State) Ready() error {
	if s.Step() != StepConfigure {
		return &ValidationError{Message: MsgIncompleteSelection}
	}
	if s.Mode == models.ModeFullSong && s.Config.Vocal == nil {
		return &ValidationError{Message: MsgVocalRequired}
	}
	return nil
}

// Snapshot projects the state onto the shareable configuration
func (s State) Snapshot() models.Snapshot {
	return models.Snapshot{
		Mode:          s.Mode,
		Subgenre:      s.Subgenre,
		Configuration: s.Config.Clone(),
	}
}

// Clone returns a deep copy
func (s State) Clone() State {
	s.Config = s.Config.Clone()
	return s
}

// clearDependents resets the genre path and every field chosen under it
func (s *State) clearDependents() {
	s.Category = ""
	s.Subgenre = ""
	s.Config.Mood = nil
	s.Config.Vocal = nil
	s.Config.Atmosphere = nil
	s.Config.Influence = nil
	s.Config.Instruments = []string{}
}
