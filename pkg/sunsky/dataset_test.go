package sunsky

import (
	"path/filepath"
	"testing"
)

func TestDatasetRoundTrip(t *testing.T) {
	ds := SyntheticDatasets(ModeSpectral)
	path := filepath.Join(t.TempDir(), "sunsky_tables.bin")

	if err := SaveDatasets(path, ds); err != nil {
		t.Fatalf("saving datasets: %v", err)
	}
	loaded, err := LoadDatasets(path)
	if err != nil {
		t.Fatalf("loading datasets: %v", err)
	}

	if loaded.Mode != ModeSpectral {
		t.Errorf("mode = %v, want spectral", loaded.Mode)
	}
	for i, v := range ds.TGMM.Data {
		if loaded.TGMM.Data[i] != v {
			t.Fatalf("tgmm entry %d = %v, want %v", i, loaded.TGMM.Data[i], v)
		}
	}
	if loaded.Radiance.Data[7] != ds.Radiance.Data[7] {
		t.Error("radiance table did not round-trip")
	}
}

func TestSharedDatasetsCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.bin")
	if err := SaveDatasets(path, SyntheticDatasets(ModeRGB)); err != nil {
		t.Fatal(err)
	}

	a, err := SharedDatasets(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := SharedDatasets(path)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("SharedDatasets returned distinct instances for one path")
	}
}

func TestDatasetValidation(t *testing.T) {
	ds := SyntheticDatasets(ModeRGB)

	t.Run("TruncatedTGMM", func(t *testing.T) {
		bad := *ds
		bad.TGMM = &TGMMTable{Data: ds.TGMM.Data[:10]}
		if err := bad.Validate(); err == nil {
			t.Error("truncated TGMM table accepted")
		}
	})

	t.Run("WrongChannelCount", func(t *testing.T) {
		bad := *ds
		bad.Mode = ModeSpectral
		if err := bad.Validate(); err == nil {
			t.Error("rgb tables accepted for spectral mode")
		}
	})

	t.Run("MissingTable", func(t *testing.T) {
		bad := *ds
		bad.Params = nil
		if err := bad.Validate(); err == nil {
			t.Error("missing params table accepted")
		}
	})
}

func TestLoadDatasetsMissingFile(t *testing.T) {
	if _, err := LoadDatasets(filepath.Join(t.TempDir(), "nope.bin")); err == nil {
		t.Error("missing file accepted")
	}
}
