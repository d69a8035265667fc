package sequencer

// SplitEngine sends the melody channel to one VoiceEngine and chord channels
// to another, mixing both outputs. It implements VoiceEngine.
type SplitEngine struct {
	melody VoiceEngine
	chords VoiceEngine
}

func NewSplitEngine(melody, chords VoiceEngine) *SplitEngine {
	return &SplitEngine{melody: melody, chords: chords}
}

// chordBit tags voice ids that belong to the chord engine.
const chordBit = 1 << 30

func (m *SplitEngine) NoteOn(key int, velocity int, channel int) int {
	if channel == 0 {
		return m.melody.NoteOn(key, velocity, channel) &^ chordBit
	}
	return m.chords.NoteOn(key, velocity, channel) | chordBit
}

func (m *SplitEngine) NoteOff(id int) {
	if id&chordBit != 0 {
		m.chords.NoteOff(id &^ chordBit)
		return
	}
	m.melody.NoteOff(id)
}

func (m *SplitEngine) RenderFrame() (float32, float32) {
	ml, mr := m.melody.RenderFrame()
	cl, cr := m.chords.RenderFrame()
	return ml + cl, mr + cr
}

func (m *SplitEngine) SetMasterGain(gain float64) {
	m.melody.SetMasterGain(gain)
	m.chords.SetMasterGain(gain)
}

func (m *SplitEngine) ActiveVoiceCount() int {
	return m.melody.ActiveVoiceCount() + m.chords.ActiveVoiceCount()
}
