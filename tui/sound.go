package tui

import (
	"sync"
	"time"

	"github.com/beka-birhanu/maze-race/race"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Tone frequencies in Hz.
const (
	toneStep = 660
	toneWin  = 880
	toneLose = 220
)

// Sound plays short tones for moves and game endings. A Sound that failed
// to initialise stays silent.
type Sound struct {
	mu      sync.Mutex
	enabled bool
}

// NewSound opens the speaker. The returned Sound is usable even when err is
// not nil; it just plays nothing.
func NewSound() (*Sound, error) {
	s := &Sound{}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return s, err
	}
	s.enabled = true
	return s, nil
}

// Step plays the accepted-move blip.
func (s *Sound) Step() {
	s.play(toneStep, 40*time.Millisecond)
}

// GameOver plays a high tone when the player won and a low one otherwise.
func (s *Sound) GameOver(o race.Outcome) {
	switch o {
	case race.OutcomePlayerWin:
		s.play(toneWin, 300*time.Millisecond)
	case race.OutcomeNone:
	default:
		s.play(toneLose, 300*time.Millisecond)
	}
}

// Close releases the speaker.
func (s *Sound) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		speaker.Close()
		s.enabled = false
	}
}

func (s *Sound) play(freq int, d time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	sine, err := generators.SineTone(sampleRate, float64(freq))
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(d), sine))
}
