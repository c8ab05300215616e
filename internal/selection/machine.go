package selection

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/Conceptual-Machines/prompt-architect/internal/catalog"
	"github.com/Conceptual-Machines/prompt-architect/internal/models"
)

// Machine applies wizard transitions over a catalog.
// It is not safe for concurrent use: the random source is shared.
type Machine struct {
	catalog *catalog.Catalog
	rng     *rand.Rand
}

// NewMachine creates a machine. A nil rng draws from a randomly seeded source.
func NewMachine(c *catalog.Catalog, rng *rand.Rand) *Machine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Machine{catalog: c, rng: rng}
}

// Catalog returns the option catalog the machine validates against
func (m *Machine) Catalog() *catalog.Catalog {
	return m.catalog
}

// Initial returns the starting state
func (m *Machine) Initial() State {
	return NewState(m.catalog)
}

// Apply returns the state that results from applying a to s.
// On error s is returned unchanged.
func (m *Machine) Apply(s State, a Action) (State, error) {
	next := s.Clone()

	var err error
	switch a := a.(type) {
	case ChooseMode:
		err = m.chooseMode(&next, a.Mode)
	case ChooseCategory:
		err = m.chooseCategory(&next, a.Name)
	case ChooseSubgenre:
		err = m.chooseSubgenre(&next, a.Name)
	case Back:
		err = m.back(&next)
	case BackToCategories:
		err = m.backToCategories(&next)
	case ResetMode:
		next = m.Initial()
	case SetMood:
		err = m.configure(&next, func() { next.Config.Mood = nonEmpty(a.Mood) })
	case SetSolfeggio:
		err = m.configure(&next, func() { next.Config.Solfeggio = a.Enabled })
	case SetInfluence:
		err = m.setInfluence(&next, nonEmpty(a.Genre))
	case ToggleInstrument:
		err = m.toggleInstrument(&next, strings.TrimSpace(a.Name))
	case SetVocal:
		err = m.fullSong(&next, func() { next.Config.Vocal = nonEmpty(a.Vocal) })
	case SetAtmosphere:
		err = m.fullSong(&next, func() { next.Config.Atmosphere = nonEmpty(a.Atmosphere) })
	case SetLyrics:
		err = m.fullSong(&next, func() { next.Config.Lyrics = a.Text })
	case SetLyricalConcept:
		err = m.fullSong(&next, func() { next.Config.LyricalConcept = a.Text })
	case SetStructure:
		err = m.fullSong(&next, func() { next.Config.Structure = a.Text })
	case SelectStructure:
		err = m.selectStructure(&next, a.Name)
	case SetFoundation:
		err = m.configure(&next, func() {
			next.Config.BPM = positive(a.BPM)
			next.Config.Key = nonEmpty(a.Key)
		})
	case ToggleLock:
		err = m.configure(&next, func() { next.Locks = next.Locks.Toggle(a.Field) })
	case Randomize:
		err = m.configure(&next, func() { m.randomize(&next) })
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}

	if err != nil {
		return s, err
	}
	return next, nil
}

func (m *Machine) chooseMode(s *State, mode models.Mode) error {
	if s.Step() != StepNoMode {
		return fmt.Errorf("%w: mode already chosen", ErrInvalidTransition)
	}
	if mode == models.ModeNone || mode.String() == "" {
		return ErrInvalidMode
	}
	*s = m.Initial()
	s.Mode = mode
	return nil
}

func (m *Machine) chooseCategory(s *State, name string) error {
	if s.Step() != StepChooseCategory {
		return fmt.Errorf("%w: cannot choose a category in step %s", ErrInvalidTransition, s.Step())
	}
	if _, ok := m.catalog.Category(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	s.Category = name
	return nil
}

func (m *Machine) chooseSubgenre(s *State, name string) error {
	if s.Step() != StepChooseSubgenre {
		return fmt.Errorf("%w: cannot choose a subgenre in step %s", ErrInvalidTransition, s.Step())
	}
	cat, _ := m.catalog.Category(s.Category)
	if !cat.Has(name) {
		return fmt.Errorf("%w: %q is not in %q", ErrUnknownSubgenre, name, s.Category)
	}
	s.Subgenre = name
	if s.Config.Influence != nil && *s.Config.Influence == name {
		s.Config.Influence = nil
	}
	return nil
}

func (m *Machine) back(s *State) error {
	switch s.Step() {
	case StepConfigure:
		s.Subgenre = ""
	case StepChooseSubgenre:
		s.clearDependents()
	case StepChooseCategory, StepFreeform:
		*s = m.Initial()
	case StepNoMode:
		return fmt.Errorf("%w: already at mode selection", ErrInvalidTransition)
	}
	return nil
}

func (m *Machine) backToCategories(s *State) error {
	switch s.Step() {
	case StepChooseSubgenre, StepConfigure:
		s.clearDependents()
		return nil
	default:
		return fmt.Errorf("%w: no category chosen", ErrInvalidTransition)
	}
}

// configure runs fn when the genre selection is complete
func (m *Machine) configure(s *State, fn func()) error {
	if s.Step() != StepConfigure {
		return fmt.Errorf("%w: genre selection is incomplete", ErrInvalidTransition)
	}
	fn()
	return nil
}

// fullSong runs fn for fields that only exist in full song mode
func (m *Machine) fullSong(s *State, fn func()) error {
	if s.Mode != models.ModeFullSong {
		return fmt.Errorf("%w: field only applies to %s", ErrInvalidTransition, models.ModeFullSong)
	}
	return m.configure(s, fn)
}

func (m *Machine) setInfluence(s *State, genre *string) error {
	if s.Step() != StepConfigure {
		return fmt.Errorf("%w: genre selection is incomplete", ErrInvalidTransition)
	}
	if genre != nil {
		if *genre == s.Subgenre {
			return ErrInfluenceConflict
		}
		if _, ok := m.catalog.FindCategory(*genre); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSubgenre, *genre)
		}
	}
	s.Config.Influence = genre
	return nil
}

// toggleInstrument removes a selected instrument, otherwise appends it while
// the selection is below MaxInstruments
func (m *Machine) toggleInstrument(s *State, name string) error {
	if name == "" {
		return fmt.Errorf("%w: instrument", ErrEmptyValue)
	}
	return m.configure(s, func() {
		if i := slices.Index(s.Config.Instruments, name); i >= 0 {
			s.Config.Instruments = slices.Delete(s.Config.Instruments, i, i+1)
			return
		}
		if len(s.Config.Instruments) < models.MaxInstruments {
			s.Config.Instruments = append(s.Config.Instruments, name)
		}
	})
}

func (m *Machine) selectStructure(s *State, name string) error {
	tmpl, ok := m.catalog.Structure(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStructure, name)
	}
	return m.fullSong(s, func() { s.Config.Structure = tmpl.Structure })
}

// Restore loads a remembered snapshot, replacing the whole selection and
// clearing every lock. Failures are reported as *RestoreError.
func (m *Machine) Restore(snap models.Snapshot) (State, error) {
	fail := func(err error) (State, error) {
		return State{}, &RestoreError{Mode: snap.Mode, Subgenre: snap.Subgenre, Err: err}
	}

	if !snap.Mode.IsArchitect() {
		return fail(ErrInvalidMode)
	}
	cat, ok := m.catalog.FindCategory(snap.Subgenre)
	if !ok {
		return fail(ErrUnknownSubgenre)
	}

	cfg := snap.Configuration.Clone()
	if cfg.Influence != nil && *cfg.Influence == snap.Subgenre {
		return fail(ErrInfluenceConflict)
	}
	if len(cfg.Instruments) > models.MaxInstruments || hasDuplicates(cfg.Instruments) {
		return fail(fmt.Errorf("%w: instruments %v", ErrInvalidConfiguration, cfg.Instruments))
	}

	return State{
		Mode:     snap.Mode,
		Category: cat.Name,
		Subgenre: snap.Subgenre,
		Config:   cfg,
	}, nil
}

// UseAnalysis seeds an architect mode from a track analysis
func (m *Machine) UseAnalysis(res models.AnalysisResult, mode models.Mode) (State, error) {
	if !mode.IsArchitect() {
		return State{}, &RestoreError{Mode: mode, Subgenre: res.Subgenre, Err: ErrInvalidMode}
	}
	subgenre, cat, ok := m.catalog.MatchSubgenre(res.Subgenre)
	if !ok {
		return State{}, &RestoreError{Mode: mode, Subgenre: res.Subgenre, Err: ErrUnknownSubgenre}
	}

	s := m.Initial()
	s.Mode = mode
	s.Category = cat.Name
	s.Subgenre = subgenre
	s.Config.Mood = nonEmpty(&res.Mood)
	s.Config.BPM = positive(&res.BPM)
	s.Config.Key = nonEmpty(&res.Key)
	for _, inst := range res.Instruments {
		inst = strings.TrimSpace(inst)
		if inst == "" || slices.Contains(s.Config.Instruments, inst) {
			continue
		}
		if len(s.Config.Instruments) == models.MaxInstruments {
			break
		}
		s.Config.Instruments = append(s.Config.Instruments, inst)
	}
	return s, nil
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func positive(p *int) *int {
	if p == nil || *p <= 0 {
		return nil
	}
	v := *p
	return &v
}

func hasDuplicates(items []string) bool {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			return true
		}
		seen[it] = true
	}
	return false
}
