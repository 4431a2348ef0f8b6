package medimage

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/records"
	"golang.org/x/image/bmp"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	path := filepath.Join(dir, "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	agent := NewAgent(records.NewMemoryStore(), nil)

	if err := agent.Validate(writePNG(t, dir, 4, 4)); err != nil {
		t.Fatalf("expected valid png, got %v", err)
	}

	bad := filepath.Join(dir, "bad.jpg")
	_ = os.WriteFile(bad, []byte("not an image"), 0o600)
	if err := agent.Validate(bad); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}

	dcm := filepath.Join(dir, "ct.dcm")
	header := make([]byte, 140)
	copy(header[128:], "DICM")
	_ = os.WriteFile(dcm, header, 0o600)
	if err := agent.Validate(dcm); err != nil {
		t.Fatalf("expected DICOM preamble to validate, got %v", err)
	}
	if info := agent.Process(dcm); info["format"] != FormatDICOM {
		t.Fatalf("unexpected dicom info %v", info)
	}
}

func TestProcessKeepsSmallImages(t *testing.T) {
	path := writePNG(t, t.TempDir(), 10, 6)
	info := NewAgent(records.NewMemoryStore(), nil).Process(path)
	if info["format"] != "png" || info["width"] != 10 || info["height"] != 6 {
		t.Fatalf("unexpected info %v", info)
	}
	if _, ok := info["resized"]; ok {
		t.Fatal("small image should not be resized")
	}
}

func TestProcessShrinksLargeImages(t *testing.T) {
	path := writePNG(t, t.TempDir(), 4096, 1024)
	info := NewAgent(records.NewMemoryStore(), nil).Process(path)
	if info["resized"] != true {
		t.Fatalf("expected resize, got %v", info)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 2048 || cfg.Height != 512 {
		t.Fatalf("expected 2048x512, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xray.bmp")
	f, _ := os.Create(path)
	_ = bmp.Encode(f, image.NewGray(image.Rect(0, 0, 3, 2)))
	f.Close()

	info := NewAgent(records.NewMemoryStore(), nil).Process(path)
	if info["format"] != "bmp" || info["width"] != 3 || info["height"] != 2 {
		t.Fatalf("unexpected info %v", info)
	}
}

func TestThumbnailSize(t *testing.T) {
	cases := []struct{ w, h, ew, eh int }{
		{100, 100, 100, 100},
		{4096, 4096, 2048, 2048},
		{1000, 3000, 682, 2048},
	}
	for _, tc := range cases {
		w, h, _ := thumbnailSize(tc.w, tc.h, MaxDimension)
		if w != tc.ew || h != tc.eh {
			t.Fatalf("%dx%d: expected %dx%d, got %dx%d", tc.w, tc.h, tc.ew, tc.eh, w, h)
		}
	}
}

func TestStoreAndSummary(t *testing.T) {
	ctx := context.Background()
	store := records.NewMemoryStore()
	p, _ := records.RegisterPatient(ctx, store, models.CreatePatientRequest{Name: "Ada"})
	agent := NewAgent(store, nil)

	if summary, _ := agent.Summary(ctx, p.ID); summary != NoImagesSummary {
		t.Fatalf("unexpected summary %q", summary)
	}

	img, err := agent.Store(ctx, StoreInput{PatientID: p.ID, Filename: "chest.png", FilePath: "/tmp/chest.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.ImageType != DefaultImageType {
		t.Fatalf("expected default type, got %q", img.ImageType)
	}
	_, _ = agent.Store(ctx, StoreInput{PatientID: p.ID, Filename: "knee.jpg", ImageType: "X-Ray", Description: "left knee"})

	summary, err := agent.Summary(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Medical Images (2 total):\n- chest.png (Medical Image)\n- knee.jpg (X-Ray): left knee\n"
	if summary != want {
		t.Fatalf("unexpected summary %q", summary)
	}

	if _, err := agent.Store(ctx, StoreInput{PatientID: 999, Filename: "x.png"}); !errors.Is(err, models.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestIsSupported(t *testing.T) {
	for _, name := range []string{"a.PNG", "b.jpeg", "c.dcm"} {
		if !IsSupported(name) {
			t.Fatalf("expected %s supported", name)
		}
	}
	if IsSupported("notes.txt") || IsSupported(strings.Repeat("x", 3)) {
		t.Fatal("unexpected support")
	}
}
