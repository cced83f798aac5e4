// Package sound plays short WAV cues on the robot's speaker.
package sound

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog/log"
)

type Player struct {
	sounds chan string
}

// InitSound starts the playback goroutine. If the speaker cannot be opened
// every request is logged and dropped.
func InitSound() *Player {
	p := &Player{sounds: make(chan string, 1)}
	go p.loop()
	return p
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Sound player failed")
		}
		for s := range p.sounds {
			log.Warn().Str("sound", s).Msg("Unable to play")
		}
	}()
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		log.Warn().Err(err).Msg("Failed to open speaker")
		return
	}
	var ctrl *beep.Ctrl
	var current beep.StreamSeekCloser
	for path := range p.sounds {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if current != nil {
			current.Close()
			current = nil
		}
		f, err := os.Open(path)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to open sound")
			continue
		}
		s, _, err := wav.Decode(f)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to decode sound")
			f.Close()
			continue
		}
		current = s
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}

// Play queues path, replacing whatever is playing. It never blocks; a cue
// requested while another is still queued is dropped. An empty path does
// nothing.
func (p *Player) Play(path string) {
	if path == "" {
		return
	}
	select {
	case p.sounds <- path:
	default:
		log.Debug().Str("sound", path).Msg("Sound dropped, player busy")
	}
}

func (p *Player) Close() {
	close(p.sounds)
}
