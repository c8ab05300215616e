package selection

import "github.com/Conceptual-Machines/prompt-architect/internal/models"

// Action is a user intent applied by Machine.Apply
type Action interface {
	isAction()
}

type (
	// ChooseMode leaves the mode picker
	ChooseMode struct{ Mode models.Mode }
	// ChooseCategory picks a top-level genre bucket
	ChooseCategory struct{ Name string }
	// ChooseSubgenre picks a member of the chosen category
	ChooseSubgenre struct{ Name string }
	// Back steps one level up the wizard
	Back struct{}
	// BackToCategories clears the genre path and its dependent fields
	BackToCategories struct{}
	// ResetMode returns to the mode picker, clearing everything
	ResetMode struct{}

	SetMood           struct{ Mood *string }
	SetSolfeggio      struct{ Enabled bool }
	SetInfluence      struct{ Genre *string }
	ToggleInstrument  struct{ Name string }
	SetVocal          struct{ Vocal *string }
	SetAtmosphere     struct{ Atmosphere *string }
	SetLyrics         struct{ Text string }
	SetLyricalConcept struct{ Text string }
	SetStructure      struct{ Text string }
	// SelectStructure applies a named structure template
	SelectStructure struct{ Name string }
	// SetFoundation pins tempo and key; nil or zero values clear them
	SetFoundation struct {
		BPM *int
		Key *string
	}

	ToggleLock struct{ Field models.Field }
	// Randomize redraws every unlocked field
	Randomize struct{}
)

func (ChooseMode) isAction()        {}
func (ChooseCategory) isAction()    {}
func (ChooseSubgenre) isAction()    {}
func (Back) isAction()              {}
func (BackToCategories) isAction()  {}
func (ResetMode) isAction()         {}
func (SetMood) isAction()           {}
func (SetSolfeggio) isAction()      {}
func (SetInfluence) isAction()      {}
func (ToggleInstrument) isAction()  {}
func (SetVocal) isAction()          {}
func (SetAtmosphere) isAction()     {}
func (SetLyrics) isAction()         {}
func (SetLyricalConcept) isAction() {}
func (SetStructure) isAction()      {}
func (SelectStructure) isAction()   {}
func (SetFoundation) isAction()     {}
func (ToggleLock) isAction()        {}
func (Randomize) isAction()         {}
