package contracts

import (
	"fmt"
	"strings"
)

// MessageType tags a Message with the kind of musical event it describes.
type MessageType string

const (
	NoteOn        MessageType = "note_on"
	NoteOff       MessageType = "note_off"
	ControlChange MessageType = "control_change"
	ProgramChange MessageType = "program_change"
	PitchBend     MessageType = "pitch_bend"
	SongSelect    MessageType = "song_select"
	SysEx         MessageType = "sysex" // Raw data variant; only Data is meaningful.
)

// DefaultVelocity is applied to every Message constructed without an explicit velocity.
const DefaultVelocity = 64

// Message represents one musical event. It is a value type: construct it with
// NewMessage and derive variants with With, never mutate a received Message.
type Message struct {
	Type     MessageType // Type decides which of the remaining fields are meaningful.
	Channel  int         // MIDI channel 0-15.
	Note     int         // Note number for note_on/note_off.
	Velocity int         // Velocity for note_on/note_off.
	Control  int         // Controller number for control_change.
	Value    int         // Controller value for control_change.
	Program  int         // Program number for program_change.
	Song     int         // Song number for song_select.
	Pitch    int         // Signed bend amount (-8192..8191) for pitch_bend.
	Data     []byte      // Payload for sysex, without the F0/F7 framing.
	Pos      float64     // Sequencing position, independent of the delivery timestamp.
	Time     float64     // Absolute time metadata, independent of the delivery timestamp.
}

// MessageOption overrides a single field while a Message is being constructed.
type MessageOption func(*Message)

// NewMessage builds a Message of the given type. Omitted fields take their
// documented defaults (velocity 64, everything else zero, empty data). No
// cross-field validation happens here; consumers ignore irrelevant fields.
func NewMessage(t MessageType, opts ...MessageOption) Message {
	m := Message{
		Type:     t,
		Velocity: DefaultVelocity,
		Data:     []byte{},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// With returns a copy of m with the given overrides applied. m itself is left untouched.
func (m Message) With(opts ...MessageOption) Message {
	cp := m
	cp.Data = append([]byte{}, m.Data...)
	for _, opt := range opts {
		opt(&cp)
	}
	return cp
}

// WithChannel sets the MIDI channel.
func WithChannel(ch int) MessageOption { return func(m *Message) { m.Channel = ch } }

// WithNote sets the note number.
func WithNote(note int) MessageOption { return func(m *Message) { m.Note = note } }

// WithVelocity sets the velocity.
func WithVelocity(v int) MessageOption { return func(m *Message) { m.Velocity = v } }

// WithControl sets the controller number.
func WithControl(c int) MessageOption { return func(m *Message) { m.Control = c } }

// WithValue sets the controller value.
func WithValue(v int) MessageOption { return func(m *Message) { m.Value = v } }

// WithProgram sets the program number.
func WithProgram(p int) MessageOption { return func(m *Message) { m.Program = p } }

// WithSong sets the song number.
func WithSong(s int) MessageOption { return func(m *Message) { m.Song = s } }

// WithPitch sets the signed pitch bend amount.
func WithPitch(p int) MessageOption { return func(m *Message) { m.Pitch = p } }

// WithData sets the raw payload. The slice is copied.
func WithData(data []byte) MessageOption {
	return func(m *Message) { m.Data = append([]byte{}, data...) }
}

// WithPos sets the sequencing position.
func WithPos(pos float64) MessageOption { return func(m *Message) { m.Pos = pos } }

// WithTime sets the absolute time metadata.
func WithTime(t float64) MessageOption { return func(m *Message) { m.Time = t } }

// meaningfulFields maps each known type to the fields it carries, in wire order.
var meaningfulFields = map[MessageType][]string{
	NoteOn:        {"channel", "note", "velocity"},
	NoteOff:       {"channel", "note", "velocity"},
	ControlChange: {"channel", "control", "value"},
	ProgramChange: {"channel", "program"},
	PitchBend:     {"channel", "pitch"},
	SongSelect:    {"song"},
	SysEx:         {"data"},
}

// Meaningful returns the names of the fields that m.Type makes meaningful.
// Unknown types return nil.
func (m Message) Meaningful() []string {
	return meaningfulFields[m.Type]
}

// String renders the message with its meaningful fields only, e.g.
// "note_on channel=0 note=60 velocity=100".
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(string(m.Type))
	for _, f := range m.Meaningful() {
		switch f {
		case "channel":
			fmt.Fprintf(&b, " channel=%d", m.Channel)
		case "note":
			fmt.Fprintf(&b, " note=%d", m.Note)
		case "velocity":
			fmt.Fprintf(&b, " velocity=%d", m.Velocity)
		case "control":
			fmt.Fprintf(&b, " control=%d", m.Control)
		case "value":
			fmt.Fprintf(&b, " value=%d", m.Value)
		case "program":
			fmt.Fprintf(&b, " program=%d", m.Program)
		case "song":
			fmt.Fprintf(&b, " song=%d", m.Song)
		case "pitch":
			fmt.Fprintf(&b, " pitch=%d", m.Pitch)
		case "data":
			fmt.Fprintf(&b, " data=% X", m.Data)
		}
	}
	return b.String()
}
