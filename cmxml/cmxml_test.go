package cmxml

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"

	dovi "github.com/llehouerou/go-dovi"
)

const cmv40Doc = `<?xml version="1.0" encoding="UTF-8"?>
<DolbyLabsMDF>
  <Version>4.0.2</Version>
  <Outputs>
    <Output>
      <CanvasAspectRatio>1.778</CanvasAspectRatio>
      <ImageAspectRatio>2.39</ImageAspectRatio>
      <Video>
        <Track>
          <Level6>
            <MaxCLL>3948</MaxCLL>
            <MaxFALL>1063</MaxFALL>
          </Level6>
          <MasteringDisplay>
            <PeakBrightness>4000</PeakBrightness>
            <MinimumBrightness>0.005</MinimumBrightness>
          </MasteringDisplay>
          <Level254>
            <DMMode>0</DMMode>
            <DMVersion>2</DMVersion>
          </Level254>
          <TargetDisplay>
            <ID>1</ID>
            <PeakBrightness>100</PeakBrightness>
          </TargetDisplay>
          <Shot>
            <UniqueID>shot-a</UniqueID>
            <Record>
              <In>0</In>
              <Duration>24</Duration>
            </Record>
            <PluginNode>
              <DVDynamicData>
                <Level1 level="1">
                  <ImageCharacter>0.0 0.2 0.8</ImageCharacter>
                </Level1>
                <Level8 level="8">
                  <TID>1</TID>
                  <L8Trim>0 0 0 0 0 0</L8Trim>
                  <MidContrastBias>0.25</MidContrastBias>
                  <HighlightClipping>0</HighlightClipping>
                  <SaturationVectorField>0 0 0 0 0 0</SaturationVectorField>
                  <HueVectorField>0 0 0 0 0 0</HueVectorField>
                </Level8>
              </DVDynamicData>
            </PluginNode>
            <Frame>
              <EditOffset>6</EditOffset>
              <PluginNode>
                <DVDynamicData>
                  <Level1 level="1">
                    <ImageCharacter>0.0 0.3 0.9</ImageCharacter>
                  </Level1>
                </DVDynamicData>
              </PluginNode>
            </Frame>
          </Shot>
          <Shot>
            <UniqueID>shot-b</UniqueID>
            <Record>
              <In>24</In>
              <Duration>48</Duration>
            </Record>
          </Shot>
        </Track>
      </Video>
    </Output>
  </Outputs>
</DolbyLabsMDF>`

const cmv29Doc = `<?xml version="1.0" encoding="UTF-8"?>
<DolbyLabsMDF version="2.0.5">
  <Outputs>
    <Output>
      <Video>
        <Track>
          <Level6>
            <MaxCLL>1000</MaxCLL>
            <MaxFALL>400</MaxFALL>
          </Level6>
          <TargetDisplay>
            <ID>1</ID>
            <PeakBrightness>600</PeakBrightness>
          </TargetDisplay>
          <Shot>
            <UniqueID>shot-a</UniqueID>
            <Record>
              <In>0</In>
              <Duration>10</Duration>
            </Record>
            <PluginNode>
              <DolbyEDR level="2">
                <TID>1</TID>
                <Trim>0,0,0,0,0,0,0,0,0</Trim>
              </DolbyEDR>
            </PluginNode>
          </Shot>
        </Track>
      </Video>
    </Output>
  </Outputs>
</DolbyLabsMDF>`

func TestParseCMv40Document(t *testing.T) {
	cfg, err := Parse([]byte(cmv40Doc), Options{CanvasWidth: 3840, CanvasHeight: 2160})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.CMVersion != CMv40 {
		t.Errorf("CMVersion = %d, want CMv40", cfg.CMVersion)
	}
	if cfg.Version != "4.0.2" {
		t.Errorf("Version = %q, want 4.0.2", cfg.Version)
	}
	if cfg.Length != 72 {
		t.Errorf("Length = %d, want 72", cfg.Length)
	}

	want6 := dovi.BlockLevel6{
		MaxDisplayMasteringLuminance: 4000,
		MinDisplayMasteringLuminance: 50,
		MaxContentLightLevel:         3948,
		MaxFrameAverageLightLevel:    1063,
	}
	if cfg.Level6 != want6 {
		t.Errorf("Level6 = %+v, want %+v", cfg.Level6, want6)
	}

	// 2.39:1 image on a 1.778:1 canvas letterboxes vertically:
	// 2160 * (1.778/2.39) rounds to 1607, leaving 276/277 offsets.
	if cfg.Level5.ActiveAreaTopOffset != 276 || cfg.Level5.ActiveAreaBottomOffset != 277 {
		t.Errorf("Level5 = %+v, want 276/277 letterbox", cfg.Level5)
	}

	if len(cfg.Shots) != 2 {
		t.Fatalf("got %d shots, want 2", len(cfg.Shots))
	}
	shot := cfg.Shots[0]
	if shot.ID != "shot-a" || shot.Start != 0 || shot.Duration != 24 {
		t.Errorf("shot = %+v", shot)
	}
	if len(shot.Blocks) != 2 {
		t.Fatalf("got %d shot blocks, want L1 + L8", len(shot.Blocks))
	}

	l1, ok := shot.Blocks[0].(*dovi.BlockLevel1)
	if !ok {
		t.Fatalf("first block = %T, want *dovi.BlockLevel1", shot.Blocks[0])
	}
	// 0.2 * 4095 = 819, 0.8 * 4095 = 3276.
	if l1.MinPQ != 0 || l1.AvgPQ != 819 || l1.MaxPQ != 3276 {
		t.Errorf("L1 = %+v", l1)
	}

	l8, ok := shot.Blocks[1].(*dovi.BlockLevel8)
	if !ok {
		t.Fatalf("second block = %T, want *dovi.BlockLevel8", shot.Blocks[1])
	}
	if l8.TargetDisplayIndex != 1 {
		t.Errorf("L8 target index = %d, want 1", l8.TargetDisplayIndex)
	}
	// MidContrastBias 0.25 -> 2560; non-neutral, so the group is set.
	if l8.TargetMidContrast == nil || *l8.TargetMidContrast != 2560 {
		t.Errorf("L8 mid contrast = %v, want 2560", l8.TargetMidContrast)
	}
	if l8.SaturationVectors != nil {
		t.Error("neutral saturation vectors should stay unset")
	}

	if len(shot.FrameEdits) != 1 || shot.FrameEdits[0].EditOffset != 6 {
		t.Fatalf("frame edits = %+v", shot.FrameEdits)
	}
}

func TestParseCMv29Document(t *testing.T) {
	cfg, err := Parse([]byte(cmv29Doc), Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.CMVersion != CMv29 {
		t.Errorf("CMVersion = %d, want CMv29", cfg.CMVersion)
	}
	if len(cfg.Shots) != 1 {
		t.Fatalf("got %d shots, want 1", len(cfg.Shots))
	}

	blocks := cfg.Shots[0].Blocks
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	l2, ok := blocks[0].(*dovi.BlockLevel2)
	if !ok {
		t.Fatalf("block = %T, want *dovi.BlockLevel2", blocks[0])
	}
	// All-zero trim: slope/offset/power collapse to the 2048 neutral.
	if l2.TrimSlope != 2048 || l2.TrimOffset != 2048 || l2.TrimPower != 2048 {
		t.Errorf("L2 trims = %+v, want neutral 2048", l2)
	}
	// 600 nits target: PQ(0.06) * 4095.
	if l2.TargetMaxPQ != nitsToPQ12(600) {
		t.Errorf("TargetMaxPQ = %d, want %d", l2.TargetMaxPQ, nitsToPQ12(600))
	}
}

func TestParseRejectsBrokenDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no root", `<NotMDF/>`},
		{"no version", `<DolbyLabsMDF><Outputs><Output><Video/></Output></Outputs></DolbyLabsMDF>`},
		{"unknown version", `<DolbyLabsMDF version="9.9.9"><Outputs><Output><Video/></Output></Outputs></DolbyLabsMDF>`},
		{"v4 without L254", `<DolbyLabsMDF><Version>4.0.2</Version><Outputs><Output><Video/></Output></Outputs></DolbyLabsMDF>`},
		{"no output", `<DolbyLabsMDF version="2.0.5"></DolbyLabsMDF>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc), Options{}); !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Parse() error = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestParseGzippedDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(cmv29Doc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Parse(buf.Bytes(), Options{})
	if err != nil {
		t.Fatalf("Parse(gzipped) error = %v", err)
	}
	if cfg.Version != "2.0.5" {
		t.Errorf("Version = %q, want 2.0.5", cfg.Version)
	}
}
