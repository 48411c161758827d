package voiceprint

import (
	"math"
	"testing"

	"github.com/spf13/afero"

	"github.com/voxgate/voxgate/internal/domains/voice/features"
)

func TestAggregateMeanAndPopulationStd(t *testing.T) {
	vectors := []features.Vector{
		{Energy: 0.1},
		{Energy: 0.2},
		{Energy: 0.3},
	}

	vp := Aggregate(vectors)
	if vp == nil {
		t.Fatal("expected a voiceprint")
	}
	if math.Abs(vp.Energy.Mean-0.2) > 1e-9 {
		t.Errorf("expected mean 0.2, got %v", vp.Energy.Mean)
	}
	if math.Abs(vp.Energy.Std-0.0816496580927726) > 1e-9 {
		t.Errorf("expected population std ~0.0816, got %v", vp.Energy.Std)
	}
	if vp.SampleCount != 3 {
		t.Errorf("expected sample count 3, got %d", vp.SampleCount)
	}
}

func TestAggregateElementWiseAverages(t *testing.T) {
	a := features.Vector{}
	b := features.Vector{}
	a.MFCC[2] = 4
	b.MFCC[2] = 6
	a.Formants[1] = features.Formant{Frequency: 1000, Magnitude: 100}
	b.Formants[1] = features.Formant{Frequency: 1400, Magnitude: 60}

	vp := Aggregate([]features.Vector{a, b})
	if vp.MFCC[2] != 5 {
		t.Errorf("expected mfcc band average 5, got %v", vp.MFCC[2])
	}
	if vp.Formants[1].Frequency != 1200 || vp.Formants[1].Magnitude != 80 {
		t.Errorf("unexpected formant average: %+v", vp.Formants[1])
	}
}

func TestAggregateEmptyIsNil(t *testing.T) {
	if vp := Aggregate(nil); vp != nil {
		t.Errorf("expected nil voiceprint for no samples, got %+v", vp)
	}
}

func TestAggregateSingleSampleStdZero(t *testing.T) {
	vp := Aggregate([]features.Vector{{FundamentalFreq: 180, Energy: 0.4}})
	if vp.FundamentalFreq.Mean != 180 || vp.FundamentalFreq.Std != 0 {
		t.Errorf("unexpected f0 stat: %+v", vp.FundamentalFreq)
	}
	if vp.Energy.Mean != 0.4 {
		t.Errorf("single-sample mean should equal the sample, got %v", vp.Energy.Mean)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "data/voiceprint.json")

	vp, err := store.Load()
	if err != nil {
		t.Fatalf("load empty store: %v", err)
	}
	if vp != nil {
		t.Fatal("expected nil voiceprint before save")
	}

	saved := Aggregate([]features.Vector{{Energy: 0.25, FundamentalFreq: 190}})
	if err := store.Save(saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected voiceprint after save")
	}
	if loaded.Energy.Mean != 0.25 || loaded.FundamentalFreq.Mean != 190 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if loaded.SampleCount != 1 {
		t.Errorf("expected sample count 1, got %d", loaded.SampleCount)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "voiceprint.json")

	first := Aggregate([]features.Vector{{Energy: 0.1}})
	second := Aggregate([]features.Vector{{Energy: 0.9}, {Energy: 0.7}})
	if err := store.Save(first); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(second); err != nil {
		t.Fatal(err)
	}

	loaded, _ := store.Load()
	if loaded.SampleCount != 2 {
		t.Errorf("retraining must overwrite wholesale, got count %d", loaded.SampleCount)
	}
}

func TestFileStoreClear(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "voiceprint.json")

	if err := store.Clear(); err != nil {
		t.Errorf("clear on empty store should be a no-op, got %v", err)
	}
	store.Save(Aggregate([]features.Vector{{Energy: 0.5}}))
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	vp, _ := store.Load()
	if vp != nil {
		t.Error("expected nil voiceprint after clear")
	}
}
