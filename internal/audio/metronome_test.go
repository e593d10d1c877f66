// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"

	"capture/internal/config"
	"capture/pkg/utils"
)

func testMetronomeConfig() config.MetronomeConfig {
	return config.MetronomeConfig{
		Enabled:     true,
		TempoBPM:    120,
		BeatsPerBar: 4,
		BeatUnit:    4,
		Volume:      1.0,
	}
}

// renderSpan renders [0, frames) in blockSize chunks and returns the
// mono result.
func renderSpan(m *Metronome, frames, blockSize int) []float32 {
	out := make([]float32, frames)
	for start := 0; start < frames; start += blockSize {
		n := blockSize
		if start+n > frames {
			n = frames - start
		}
		m.Render(out[start:start+n], 1, uint64(start), n)
	}
	return out
}

func TestMetronomeClickLength(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())
	if got, want := m.ClickLen(), 1920; got != want {
		t.Errorf("expected %d sample click at 48 kHz, got %d", want, got)
	}
}

func TestMetronomeClickFrequencies(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())

	// 120 BPM, 4/4: beat 0 is a downbeat, beat 1 an offbeat.
	out := renderSpan(m, 48000, 512)
	clickLen := m.ClickLen()

	downbeat := out[:clickLen]
	offbeat := out[24000 : 24000+clickLen]

	resolution := 48000.0 / float64(clickLen)
	if got := utils.DominantFrequency(downbeat, 48000); math.Abs(got-1200) > 2*resolution {
		t.Errorf("downbeat: expected ~1200 Hz, got %.1f Hz", got)
	}
	if got := utils.DominantFrequency(offbeat, 48000); math.Abs(got-800) > 2*resolution {
		t.Errorf("offbeat: expected ~800 Hz, got %.1f Hz", got)
	}
}

func TestMetronomeDownbeatEveryBar(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())

	// Beat 4 starts the second bar and must sound the downbeat tone.
	out := renderSpan(m, 5*24000, 512)
	clickLen := m.ClickLen()
	barStart := out[4*24000 : 4*24000+clickLen]

	resolution := 48000.0 / float64(clickLen)
	if got := utils.DominantFrequency(barStart, 48000); math.Abs(got-1200) > 2*resolution {
		t.Errorf("bar 2 downbeat: expected ~1200 Hz, got %.1f Hz", got)
	}
}

func TestMetronomeEnvelopeStartsAndEndsSilent(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())
	out := renderSpan(m, 24000, 512)
	clickLen := m.ClickLen()

	if math.Abs(float64(out[0])) > 1e-6 {
		t.Errorf("click should start at zero amplitude, got %f", out[0])
	}
	if math.Abs(float64(out[clickLen-1])) > 1e-3 {
		t.Errorf("click should fade to silence, got %f", out[clickLen-1])
	}
	// Nothing sounds between the burst end and the next beat.
	if peak := utils.MaxAbs(out[clickLen+1 : 23000]); peak != 0 {
		t.Errorf("expected silence between clicks, got peak %f", peak)
	}
}

func TestMetronomeClickSpansBlockBoundary(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())

	// Rendering in 512-sample blocks must yield the same samples as one
	// large render, including burst tails crossing block edges.
	whole := make([]float32, 48000)
	m.Render(whole, 1, 0, 48000)
	chunked := renderSpan(m, 48000, 512)

	for i := range whole {
		if whole[i] != chunked[i] {
			t.Fatalf("sample %d differs: whole %f, chunked %f", i, whole[i], chunked[i])
		}
	}
}

func TestMetronomeDisabledRendersNothing(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())
	m.SetEnabled(false)

	out := renderSpan(m, 48000, 512)
	if peak := utils.MaxAbs(out); peak != 0 {
		t.Errorf("disabled metronome rendered audio, peak %f", peak)
	}
}

func TestMetronomeVolumeScalesOutput(t *testing.T) {
	full := NewMetronome(48000, testMetronomeConfig())
	cfg := testMetronomeConfig()
	cfg.Volume = 0.5
	half := NewMetronome(48000, cfg)

	fullOut := renderSpan(full, 2000, 512)
	halfOut := renderSpan(half, 2000, 512)

	fp, hp := utils.MaxAbs(fullOut), utils.MaxAbs(halfOut)
	if math.Abs(float64(hp-fp*0.5)) > 1e-6 {
		t.Errorf("expected half volume peak %.4f, got %.4f", fp*0.5, hp)
	}
}

func TestMetronomeRenderAddsToExistingAudio(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())

	out := make([]float32, 512)
	for i := range out {
		out[i] = 2
	}
	m.Render(out, 1, 0, 512)

	// The click is mixed on top, not written over.
	var moved bool
	for _, v := range out {
		if v != 2 {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("render left existing audio untouched")
	}
}

func TestMetronomeInterleavedStereo(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())

	out := make([]float32, 512*2)
	m.Render(out, 2, 0, 512)
	for f := 0; f < 512; f++ {
		if out[f*2] != out[f*2+1] {
			t.Fatalf("frame %d: channels differ, L=%f R=%f", f, out[f*2], out[f*2+1])
		}
	}
}

func TestMetronomeSetterClamps(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())

	tests := []struct {
		desc  string
		apply func()
		check func() bool
	}{
		{
			desc:  "tempo below minimum",
			apply: func() { m.SetTempo(5) },
			check: func() bool { return m.Tempo() == config.MinTempoBPM },
		},
		{
			desc:  "tempo above maximum",
			apply: func() { m.SetTempo(500) },
			check: func() bool { return m.Tempo() == config.MaxTempoBPM },
		},
		{
			desc:  "negative volume",
			apply: func() { m.SetVolume(-1) },
			check: func() bool { return m.Volume() == 0 },
		},
		{
			desc:  "volume above unity",
			apply: func() { m.SetVolume(2) },
			check: func() bool { return m.Volume() == 1 },
		},
		{
			desc:  "beats per bar below one",
			apply: func() { m.SetBeatsPerBar(0) },
			check: func() bool { return m.BeatsPerBar() == 1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			tt.apply()
			if !tt.check() {
				t.Error("clamp not applied")
			}
		})
	}
}

func TestMetronomeSamplesPerBeat(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())
	if got := m.SamplesPerBeat(); got != 24000 {
		t.Errorf("expected 24000 samples per beat at 120 BPM, got %f", got)
	}
	m.SetTempo(60)
	if got := m.SamplesPerBeat(); got != 48000 {
		t.Errorf("expected 48000 samples per beat at 60 BPM, got %f", got)
	}
}

func TestMetronomeRenderZeroAlloc(t *testing.T) {
	m := NewMetronome(48000, testMetronomeConfig())
	out := make([]float32, 512*2)
	var start uint64

	allocs := testing.AllocsPerRun(1000, func() {
		m.Render(out, 2, start, 512)
		start += 512
	})
	if allocs != 0 {
		t.Errorf("expected zero allocations in Render, got %f", allocs)
	}
}

func BenchmarkMetronomeRender(b *testing.B) {
	m := NewMetronome(48000, testMetronomeConfig())
	out := make([]float32, 512*2)

	b.ReportAllocs()
	b.ResetTimer()
	var start uint64
	for i := 0; i < b.N; i++ {
		m.Render(out, 2, start, 512)
		start += 512
	}
}
