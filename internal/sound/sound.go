// Package sound binds a platform to its sound device: the down signal and
// the athlete-clock warnings are short sine-tone patterns played through
// the default speaker.
package sound

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

// Cue names a sound the engine asks for.
type Cue string

const (
	CueDown           Cue = "down"
	CueInitialWarning Cue = "initial_warning"
	CueFinalWarning   Cue = "final_warning"
	CueTimeOver       Cue = "time_over"
)

// Player plays cues. Play blocks until the cue has finished; the engine
// calls it from a background goroutine.
type Player interface {
	Play(cue Cue) error
}

// Tone is one beep of a pattern, followed by Gap of silence.
type Tone struct {
	Freq     float64
	Duration time.Duration
	Gap      time.Duration
}

var patterns = map[Cue][]Tone{
	CueDown:           {{Freq: 1100, Duration: 1200 * time.Millisecond}},
	CueInitialWarning: {{Freq: 1200, Duration: 300 * time.Millisecond}},
	CueFinalWarning: {
		{Freq: 1200, Duration: 300 * time.Millisecond, Gap: 150 * time.Millisecond},
		{Freq: 1200, Duration: 300 * time.Millisecond},
	},
	CueTimeOver: {{Freq: 800, Duration: 1500 * time.Millisecond}},
}

// Pattern returns the tones of a cue.
func Pattern(c Cue) ([]Tone, bool) {
	p, ok := patterns[c]
	return p, ok
}

// SampleRate of the generated tones.
const SampleRate = beep.SampleRate(44100)

// Speaker plays cues on the default audio device. The device is opened
// on first use; a platform without audio hardware reports an error on
// every Play and competition carries on.
type Speaker struct {
	sr beep.SampleRate

	once    sync.Once
	initErr error

	mu sync.Mutex // one cue at a time
}

// NewSpeaker returns a player for the default device.
func NewSpeaker() *Speaker {
	return &Speaker{sr: SampleRate}
}

func (s *Speaker) init() error {
	s.once.Do(func() {
		s.initErr = speaker.Init(s.sr, s.sr.N(time.Second/10))
	})
	return s.initErr
}

// Play implements Player.
func (s *Speaker) Play(c Cue) error {
	tones, ok := Pattern(c)
	if !ok {
		return fmt.Errorf("unknown cue %q", c)
	}
	if err := s.init(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	stream, err := Stream(s.sr, tones)
	if err != nil {
		return fmt.Errorf("cue %s: %w", c, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan struct{})
	speaker.Play(beep.Seq(stream, beep.Callback(func() { close(done) })))
	<-done
	return nil
}

// Stream renders tones as a finite streamer.
func Stream(sr beep.SampleRate, tones []Tone) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, 2*len(tones))
	for _, t := range tones {
		sine, err := generators.SineTone(sr, t.Freq)
		if err != nil {
			return nil, fmt.Errorf("sine %.0f Hz: %w", t.Freq, err)
		}
		parts = append(parts, beep.Take(sr.N(t.Duration), sine))
		if t.Gap > 0 {
			parts = append(parts, generators.Silence(sr.N(t.Gap)))
		}
	}
	return beep.Seq(parts...), nil
}

// Recorder is a Player that remembers what it was asked to play.
type Recorder struct {
	mu   sync.Mutex
	cues []Cue

	// Err, when set, is returned by every Play.
	Err error
}

// Play implements Player.
func (r *Recorder) Play(c Cue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, c)
	return r.Err
}

// Cues returns the cues played so far.
func (r *Recorder) Cues() []Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Cue(nil), r.cues...)
}
