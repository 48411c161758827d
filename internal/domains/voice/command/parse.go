package command

import (
	"strconv"
	"strings"
	"unicode"
)

// Action is a typed media-player operation.
type Action string

const (
	ActionPlay       Action = "play"
	ActionPause      Action = "pause"
	ActionRestart    Action = "restart"
	ActionSeekFwd    Action = "seek_forward"
	ActionSeekBack   Action = "seek_back"
	ActionVolumeUp   Action = "volume_up"
	ActionVolumeDown Action = "volume_down"
	ActionMute       Action = "mute"
	ActionUnmute     Action = "unmute"
	ActionSearch     Action = "search"
)

// Command is the parsed value handed to the external dispatcher.
type Command struct {
	Action  Action  `json:"action"`
	Seconds float64 `json:"seconds,omitempty"` // seek amount
	Query   string  `json:"query,omitempty"`   // search text
	Raw     string  `json:"raw"`
}

// Dispatcher receives successfully parsed commands. Execution against the
// player is outside this subsystem.
type Dispatcher interface {
	Dispatch(cmd Command)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(cmd Command)

func (f DispatcherFunc) Dispatch(cmd Command) { f(cmd) }

const defaultSeekSeconds = 10

// Parse maps an utterance onto a Command. The boolean is false when the
// text is not a recognizable command.
func Parse(text string) (Command, bool) {
	norm := normalize(text)
	if norm == "" {
		return Command{}, false
	}
	cmd := Command{Raw: text}

	// Search carries free text, so it is matched before anything else can
	// swallow its keywords.
	for _, prefix := range []string{"search for ", "search ", "find "} {
		if strings.HasPrefix(norm, prefix) {
			cmd.Action = ActionSearch
			cmd.Query = strings.TrimSpace(strings.TrimPrefix(norm, prefix))
			return cmd, cmd.Query != ""
		}
	}

	switch {
	case containsAny(norm, "restart", "start over", "from the beginning"):
		cmd.Action = ActionRestart
	case containsAny(norm, "go back", "rewind", "back up"):
		cmd.Action = ActionSeekBack
		cmd.Seconds = parseSeconds(norm)
	case containsAny(norm, "skip", "fast forward", "ahead", "forward"):
		cmd.Action = ActionSeekFwd
		cmd.Seconds = parseSeconds(norm)
	case containsAny(norm, "volume up", "louder", "turn it up"):
		cmd.Action = ActionVolumeUp
	case containsAny(norm, "volume down", "quieter", "turn it down"):
		cmd.Action = ActionVolumeDown
	case containsAny(norm, "unmute"):
		cmd.Action = ActionUnmute
	case containsAny(norm, "mute"):
		cmd.Action = ActionMute
	case containsAny(norm, "pause", "stop"):
		cmd.Action = ActionPause
	case containsAny(norm, "play", "resume", "continue"):
		cmd.Action = ActionPlay
	default:
		return Command{}, false
	}
	return cmd, true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Spoken numbers the recognizer commonly produces for seek amounts.
var numberWords = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"fifteen": 15, "twenty": 20, "thirty": 30, "forty": 40,
	"forty five": 45, "fifty": 50, "sixty": 60, "ninety": 90,
}

// parseSeconds finds a duration in the utterance, defaulting to 10 s.
// Minutes are converted; "thirty" style words are looked up.
func parseSeconds(norm string) float64 {
	fields := strings.Fields(norm)
	unit := 1.0
	if containsAny(norm, "minute", "minutes") {
		unit = 60
	}

	for i, f := range fields {
		if n, err := strconv.ParseFloat(f, 64); err == nil && n > 0 {
			return n * unit
		}
		if n, ok := numberWords[f]; ok {
			// Two-word amounts like "forty five".
			if i+1 < len(fields) {
				if m, ok2 := numberWords[f+" "+fields[i+1]]; ok2 {
					return m * unit
				}
			}
			return n * unit
		}
	}
	return defaultSeekSeconds
}
