package cmxml

import (
	"testing"

	dovi "github.com/llehouerou/go-dovi"
)

func TestGenerateFromDocument(t *testing.T) {
	cfg, err := Parse([]byte(cmv40Doc), Options{CanvasWidth: 3840, CanvasHeight: 2160})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	rpus, err := cfg.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(rpus) != cfg.Length {
		t.Fatalf("generated %d frames, want %d", len(rpus), cfg.Length)
	}

	first := rpus[0]
	if first.Profile != dovi.Profile81 {
		t.Errorf("Profile = %v, want 8.1", first.Profile)
	}
	if err := first.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if !first.DM.IsCMv40() {
		t.Fatal("generated frame has no CM v4.0 section")
	}

	l254, ok := first.DM.FirstBlock(254).(*dovi.BlockLevel254)
	if !ok {
		t.Fatal("no level 254 block on generated frame")
	}
	if l254.DMVersionIndex != 2 {
		t.Errorf("DMVersionIndex = %d, want 2", l254.DMVersionIndex)
	}
	if _, ok := first.DM.FirstBlock(6).(*dovi.BlockLevel6); !ok {
		t.Error("no level 6 block on generated frame")
	}

	// Shot trims reach every frame of the shot; the frame edit at
	// offset 6 replaces the level 1 analysis for that frame only.
	shotL1, ok := first.DM.FirstBlock(1).(*dovi.BlockLevel1)
	if !ok {
		t.Fatal("no level 1 block on shot frame")
	}
	editL1, ok := rpus[6].DM.FirstBlock(1).(*dovi.BlockLevel1)
	if !ok {
		t.Fatal("no level 1 block on edited frame")
	}
	if *shotL1 == *editL1 {
		t.Error("frame edit did not replace the shot level 1 block")
	}
	if got, ok := rpus[7].DM.FirstBlock(1).(*dovi.BlockLevel1); !ok || *got != *shotL1 {
		t.Error("frame after the edit should carry the shot level 1 block again")
	}

	// The second shot carries no trims of its own.
	if rpus[24].DM.FirstBlock(1) != nil {
		t.Error("shot without trims should generate no level 1 block")
	}

	// Generated frames must survive the wire.
	data, err := dovi.EncodeRPUSequence(rpus[:2])
	if err != nil {
		t.Fatalf("EncodeRPUSequence() error = %v", err)
	}
	back, err := dovi.ParseRPUSequence(data)
	if err != nil {
		t.Fatalf("ParseRPUSequence() error = %v", err)
	}
	if len(back) != 2 || back[0].Profile != dovi.Profile81 {
		t.Errorf("round trip lost frames or profile")
	}
}

func TestGenerateRejectsEmptyConfig(t *testing.T) {
	cfg := &GenerateConfig{}
	if _, err := cfg.Generate(); err == nil {
		t.Fatal("Generate() on an empty config should fail")
	}
}

// Every frame owns its blocks. Editing one frame's metadata must not
// leak into its neighbours through shared pointers.
func TestGenerateFramesShareNoBlocks(t *testing.T) {
	cfg, err := Parse([]byte(cmv40Doc), Options{CanvasWidth: 3840, CanvasHeight: 2160})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rpus, err := cfg.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(rpus) < 2 {
		t.Fatalf("generated %d frames, want at least 2", len(rpus))
	}

	l6, ok := rpus[0].DM.FirstBlock(6).(*dovi.BlockLevel6)
	if !ok {
		t.Fatal("no level 6 block on frame 0")
	}
	want := l6.MaxContentLightLevel
	l6.MaxContentLightLevel = want + 1

	next, ok := rpus[1].DM.FirstBlock(6).(*dovi.BlockLevel6)
	if !ok {
		t.Fatal("no level 6 block on frame 1")
	}
	if next.MaxContentLightLevel != want {
		t.Errorf("frame 1 MaxContentLightLevel = %d after editing frame 0, want %d",
			next.MaxContentLightLevel, want)
	}

	// Shot level trims are stamped per frame too.
	shotL1, ok := rpus[0].DM.FirstBlock(1).(*dovi.BlockLevel1)
	if !ok {
		t.Fatal("no level 1 block on frame 0")
	}
	shotL1.AvgPQ++
	if got := rpus[1].DM.FirstBlock(1).(*dovi.BlockLevel1); got.AvgPQ == shotL1.AvgPQ {
		t.Error("frame 1 level 1 block aliases frame 0")
	}
}
