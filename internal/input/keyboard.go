package input

import "time"

// Tap presses and releases a key. Zero holdTime gets a humanized default.
func (s *Synthesizer) Tap(key string, holdTime time.Duration) {
	if holdTime <= 0 {
		holdTime = randDuration(s.rng, 40*time.Millisecond, 90*time.Millisecond)
	}
	s.drv.KeyDown(key)
	s.sleep(holdTime)
	s.drv.KeyUp(key)
}

// Hotkey holds keys down in order and releases them in reverse, as a human
// chord would.
func (s *Synthesizer) Hotkey(keys ...string) {
	for _, k := range keys {
		s.drv.KeyDown(k)
		s.sleep(randDuration(s.rng, 20*time.Millisecond, 50*time.Millisecond))
	}
	for i := len(keys) - 1; i >= 0; i-- {
		s.drv.KeyUp(keys[i])
		s.sleep(randDuration(s.rng, 20*time.Millisecond, 50*time.Millisecond))
	}
}

// TypeText types each rune with a per-key delay drawn from [minDelay, maxDelay].
func (s *Synthesizer) TypeText(text string, minDelay, maxDelay time.Duration) {
	for _, r := range text {
		s.Tap(string(r), 0)
		s.sleep(randDuration(s.rng, minDelay, maxDelay))
	}
}
