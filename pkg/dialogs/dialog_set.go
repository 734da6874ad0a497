package dialogs

import "fmt"

// DialogSet is a registry of dialog definitions keyed by id.
type DialogSet struct {
	dialogs map[string]Dialog
}

func NewDialogSet(dialogs ...Dialog) *DialogSet {
	set := &DialogSet{dialogs: make(map[string]Dialog)}
	for _, d := range dialogs {
		set.Add(d)
	}
	return set
}

// Add registers a dialog. Registering two dialogs with the same id is a
// programming error and panics early rather than shadowing silently.
func (s *DialogSet) Add(dialog Dialog) *DialogSet {
	id := dialog.ID()
	if id == "" {
		panic("dialogs: cannot add a dialog with an empty id")
	}
	if _, exists := s.dialogs[id]; exists {
		panic(fmt.Sprintf("dialogs: duplicate dialog id %q", id))
	}
	s.dialogs[id] = dialog
	return s
}

// Find returns the dialog registered under id, or nil.
func (s *DialogSet) Find(id string) Dialog {
	if s == nil {
		return nil
	}
	return s.dialogs[id]
}
