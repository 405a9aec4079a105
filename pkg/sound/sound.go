package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player plays wav files from a directory, one at a time.  Starting a new
// sound cuts off the previous one.
type Player struct {
	Dir string

	soundsToPlay chan string
	closeOnce    sync.Once
	done         chan struct{}
}

func NewPlayer(dir string) *Player {
	p := newPlayer(dir)
	go p.loop()
	return p
}

func newPlayer(dir string) *Player {
	return &Player{
		Dir:          dir,
		soundsToPlay: make(chan string, 1),
		done:         make(chan struct{}),
	}
}

// Play queues a sound by name, relative to Dir.  Never blocks: if a sound is
// already waiting for the player it is replaced by this one.
func (p *Player) Play(name string) {
	if name == "" {
		return
	}
	select {
	case <-p.done:
		return
	default:
	}
	path := p.Path(name)
	select {
	case p.soundsToPlay <- path:
		return
	default:
	}
	select {
	case old := <-p.soundsToPlay:
		fmt.Println("Sound: busy, dropping", old)
	default:
	}
	select {
	case p.soundsToPlay <- path:
	default:
		fmt.Println("Sound: busy, dropping", name)
	}
}

func (p *Player) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Dir, name)
}

func (p *Player) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("Sound: panic from speaker:", r)
			p.drain()
		}
	}()

	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		fmt.Println("Sound: failed to open speaker:", err)
		p.drain()
		return
	}

	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for {
		var soundToPlay string
		select {
		case <-p.done:
			if ctrl != nil {
				speaker.Lock()
				ctrl.Paused = true
				speaker.Unlock()
			}
			if s != nil {
				_ = s.Close()
			}
			return
		case soundToPlay = <-p.soundsToPlay:
		}

		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			_ = s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			fmt.Println("Sound: failed to open sound:", err)
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			fmt.Println("Sound: failed to decode sound:", err)
			_ = f.Close()
			s = nil
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}

func (p *Player) drain() {
	for {
		select {
		case s := <-p.soundsToPlay:
			fmt.Println("Sound: unable to play", s)
		case <-p.done:
			return
		}
	}
}
