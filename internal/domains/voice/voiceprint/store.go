package voiceprint

// Store persists the single voiceprint record: loaded at startup, saved on
// enrollment completion.
type Store interface {
	// Load returns the stored voiceprint, or (nil, nil) when none exists.
	Load() (*Voiceprint, error)
	// Save overwrites the stored voiceprint wholesale.
	Save(vp *Voiceprint) error
	// Clear removes the stored voiceprint.
	Clear() error
}
