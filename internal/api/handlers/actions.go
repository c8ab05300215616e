package handlers

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/prompt-architect/internal/models"
	"github.com/Conceptual-Machines/prompt-architect/internal/selection"
)

var errUnknownActionType = errors.New("unknown action type")

// ActionRequest is the wire form of a wizard action
type ActionRequest struct {
	Type    string  `json:"type" binding:"required"`
	Mode    string  `json:"mode,omitempty"`
	Name    string  `json:"name,omitempty"`
	Value   *string `json:"value,omitempty"`
	Enabled bool    `json:"enabled,omitempty"`
	BPM     *int    `json:"bpm,omitempty"`
	Key     *string `json:"key,omitempty"`
	Field   string  `json:"field,omitempty"`
}

// Action converts the request into a selection action
func (r ActionRequest) Action() (selection.Action, error) {
	text := func() string {
		if r.Value == nil {
			return ""
		}
		return *r.Value
	}

	switch r.Type {
	case "choose_mode":
		mode, err := models.ParseMode(r.Mode)
		if err != nil {
			return nil, err
		}
		return selection.ChooseMode{Mode: mode}, nil
	case "choose_category":
		return selection.ChooseCategory{Name: r.Name}, nil
	case "choose_subgenre":
		return selection.ChooseSubgenre{Name: r.Name}, nil
	case "back":
		return selection.Back{}, nil
	case "back_to_categories":
		return selection.BackToCategories{}, nil
	case "reset_mode":
		return selection.ResetMode{}, nil
	case "set_mood":
		return selection.SetMood{Mood: r.Value}, nil
	case "set_solfeggio":
		return selection.SetSolfeggio{Enabled: r.Enabled}, nil
	case "set_influence":
		return selection.SetInfluence{Genre: r.Value}, nil
	case "toggle_instrument":
		return selection.ToggleInstrument{Name: r.Name}, nil
	case "set_vocal":
		return selection.SetVocal{Vocal: r.Value}, nil
	case "set_atmosphere":
		return selection.SetAtmosphere{Atmosphere: r.Value}, nil
	case "set_lyrics":
		return selection.SetLyrics{Text: text()}, nil
	case "set_lyrical_concept":
		return selection.SetLyricalConcept{Text: text()}, nil
	case "set_structure":
		return selection.SetStructure{Text: text()}, nil
	case "select_structure":
		return selection.SelectStructure{Name: r.Name}, nil
	case "set_foundation":
		return selection.SetFoundation{BPM: r.BPM, Key: r.Key}, nil
	case "toggle_lock":
		field, err := models.ParseField(r.Field)
		if err != nil {
			return nil, err
		}
		return selection.ToggleLock{Field: field}, nil
	case "randomize":
		return selection.Randomize{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownActionType, r.Type)
	}
}
