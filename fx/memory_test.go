package fx

import "testing"

func TestMemoryEffectsRecordsSettings(t *testing.T) {
	m := NewMemoryEffects("vocals")

	band := EQBand{Type: BandPeak, FreqHz: 4000, GainDB: 3, Q: 1}
	if err := m.SetEQBand(0, band); err != nil {
		t.Fatalf("SetEQBand() error = %v", err)
	}

	comp := CompressorParams{ThresholdDB: -12, Ratio: 3, AttackMs: 5, ReleaseMs: 80, KneeDB: 6}
	if err := m.SetCompressor(comp); err != nil {
		t.Fatalf("SetCompressor() error = %v", err)
	}

	rev := ReverbParams{Type: ReverbPlate, Mix: 0.15, Decay: 0.4}
	if err := m.SetReverb(rev); err != nil {
		t.Fatalf("SetReverb() error = %v", err)
	}

	if err := m.SetGain(0.5); err != nil {
		t.Fatalf("SetGain() error = %v", err)
	}

	if err := m.SetPan(-0.3); err != nil {
		t.Fatalf("SetPan() error = %v", err)
	}

	if got := m.EQ[0]; got != band {
		t.Fatalf("EQ[0] = %+v, want %+v", got, band)
	}

	if m.Compressor == nil || *m.Compressor != comp {
		t.Fatalf("Compressor = %+v, want %+v", m.Compressor, comp)
	}

	if m.Reverb == nil || *m.Reverb != rev {
		t.Fatalf("Reverb = %+v, want %+v", m.Reverb, rev)
	}

	if m.Gain != 0.5 || m.Pan != -0.3 {
		t.Fatalf("Gain=%v Pan=%v, want 0.5 and -0.3", m.Gain, m.Pan)
	}
}

func TestMemoryEffectsValidation(t *testing.T) {
	m := NewMemoryEffects("t")

	if err := m.SetEQBand(-1, EQBand{}); err == nil {
		t.Fatal("negative band index: error = nil, want error")
	}

	if err := m.SetGain(-0.1); err == nil {
		t.Fatal("negative gain: error = nil, want error")
	}

	if err := m.SetPan(1.5); err == nil {
		t.Fatal("pan out of range: error = nil, want error")
	}
}

func TestMemoryEffectsUseAfterDestroy(t *testing.T) {
	m := NewMemoryEffects("t")

	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	if !m.Destroyed() {
		t.Fatal("Destroyed() = false after Destroy")
	}

	if err := m.Destroy(); err == nil {
		t.Fatal("second Destroy(): error = nil, want error")
	}

	if err := m.SetGain(1); err == nil {
		t.Fatal("SetGain after Destroy: error = nil, want error")
	}

	if err := m.SetBypass(true); err == nil {
		t.Fatal("SetBypass after Destroy: error = nil, want error")
	}
}

func TestMemoryEffectsParameters(t *testing.T) {
	m := NewMemoryEffects("t")

	if err := m.SetParameters(map[string]float64{"b": 2, "a": 1}); err != nil {
		t.Fatalf("SetParameters() error = %v", err)
	}

	if err := m.SetParameters(map[string]float64{"a": 3}); err != nil {
		t.Fatalf("SetParameters() error = %v", err)
	}

	params := m.Parameters()
	if params["a"] != 3 || params["b"] != 2 {
		t.Fatalf("Parameters() = %v, want a=3 b=2", params)
	}

	// The returned map is a copy.
	params["a"] = 99
	if m.Parameters()["a"] != 3 {
		t.Fatal("Parameters() returned the internal map")
	}

	keys := m.ParameterKeys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("ParameterKeys() = %v, want [a b]", keys)
	}
}

func TestMemoryRackCreateEffects(t *testing.T) {
	r := NewMemoryRack()

	fx, err := r.CreateEffects("kick")
	if err != nil {
		t.Fatalf("CreateEffects() error = %v", err)
	}

	if fx == nil {
		t.Fatal("CreateEffects() returned nil chain")
	}

	if _, err := r.CreateEffects("kick"); err == nil {
		t.Fatal("duplicate id: error = nil, want error")
	}

	if _, ok := r.Chains["kick"]; !ok {
		t.Fatal("chain not registered in rack")
	}
}

func TestMemoryRackReplacesDestroyedChain(t *testing.T) {
	r := NewMemoryRack()

	first, err := r.CreateEffects("kick")
	if err != nil {
		t.Fatalf("CreateEffects() error = %v", err)
	}

	if err := first.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	// A destroyed id is free for reuse; the replacement chain is live.
	second, err := r.CreateEffects("kick")
	if err != nil {
		t.Fatalf("CreateEffects() after destroy error = %v", err)
	}

	if err := second.SetGain(0.5); err != nil {
		t.Fatalf("SetGain() on replacement error = %v", err)
	}

	if r.Chains["kick"].Destroyed() {
		t.Fatal("rack still holds the destroyed chain")
	}
}

func TestMemoryRackMasterGain(t *testing.T) {
	r := NewMemoryRack()

	sink := r.MasterGain()
	if sink == nil {
		t.Fatal("MasterGain() = nil")
	}

	if err := sink.SetGain(0.25); err != nil {
		t.Fatalf("SetGain() error = %v", err)
	}

	if r.Master.Gain != 0.25 {
		t.Fatalf("Master.Gain = %v, want 0.25", r.Master.Gain)
	}

	if err := sink.SetGain(-1); err == nil {
		t.Fatal("negative master gain: error = nil, want error")
	}
}
