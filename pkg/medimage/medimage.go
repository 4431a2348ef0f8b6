package medimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/kafka"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultImageType = "Medical Image"
	NoImagesSummary  = "No medical images uploaded."
	MaxDimension     = 2048
	FormatDICOM      = "dicom"
)

var SupportedFormats = []string{"png", "jpg", "jpeg", "dicom", "dcm"}

var ErrInvalidImage = errors.New("invalid image file")

type Repository interface {
	CreateImage(ctx context.Context, img *models.MedicalImage) error
	ListImages(ctx context.Context, patientID uint) ([]models.MedicalImage, error)
}

type Agent struct {
	repo   Repository
	events kafka.Publisher
}

func NewAgent(repo Repository, events kafka.Publisher) *Agent {
	return &Agent{repo: repo, events: events}
}

// isDICOM checks for the DICM marker that follows the 128 byte preamble.
func isDICOM(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	header := make([]byte, 132)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return string(header[128:]) == "DICM"
}

// Validate confirms the file decodes as an image. DICOM files only need a
// valid preamble.
func (a *Agent) Validate(path string) error {
	if isDICOM(path) {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// Process records format and dimensions, and shrinks images larger than
// MaxDimension in place while keeping the aspect ratio. Failures are reported
// under the "error" key instead of returned.
func (a *Agent) Process(path string) map[string]interface{} {
	if isDICOM(path) {
		return map[string]interface{}{"format": FormatDICOM}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	bounds := img.Bounds()
	info := map[string]interface{}{
		"format": format,
		"mode":   colorMode(img),
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	}

	w, h, resize := thumbnailSize(bounds.Dx(), bounds.Dy(), MaxDimension)
	if !resize {
		return info
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := encode(&buf, dst, format); err != nil {
		info["error"] = err.Error()
		return info
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		info["error"] = err.Error()
		return info
	}
	info["resized"] = true
	info["width"] = w
	info["height"] = h
	return info
}

// thumbnailSize fits w x h inside limit x limit.
func thumbnailSize(w, h, limit int) (int, int, bool) {
	if w <= limit && h <= limit {
		return w, h, false
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh, true
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit, true
}

func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case "gif":
		return gif.Encode(w, img, nil)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("cannot re-encode %s images", format)
	}
}

func colorMode(img image.Image) string {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return "L"
	case *image.Paletted:
		return "P"
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return "RGBA"
	case *image.YCbCr:
		return "YCbCr"
	case *image.CMYK:
		return "CMYK"
	default:
		return "RGB"
	}
}

type StoreInput struct {
	PatientID   uint
	Filename    string
	FilePath    string
	ImageType   string
	Description string
	Info        map[string]interface{}
}

func (a *Agent) Store(ctx context.Context, in StoreInput) (*models.MedicalImage, error) {
	imageType := strings.TrimSpace(in.ImageType)
	if imageType == "" {
		imageType = DefaultImageType
	}
	img := &models.MedicalImage{
		PatientID:   in.PatientID,
		Filename:    in.Filename,
		FilePath:    in.FilePath,
		ImageType:   imageType,
		Description: strings.TrimSpace(in.Description),
		Info:        in.Info,
		UploadedAt:  time.Now().UTC(),
	}
	if err := a.repo.CreateImage(ctx, img); err != nil {
		return nil, err
	}

	logger.ForPatient("image", in.PatientID).WithField("image_id", img.ID).Info("Medical image stored")
	kafka.Notify(ctx, a.events, kafka.EventImageUploaded, in.PatientID, map[string]interface{}{
		"image_id":   img.ID,
		"filename":   img.Filename,
		"image_type": img.ImageType,
	})
	return img, nil
}

// Ingest validates, processes and stores an uploaded image.
func (a *Agent) Ingest(ctx context.Context, patientID uint, filename, path, imageType, description string) (*models.MedicalImage, error) {
	if err := a.Validate(path); err != nil {
		return nil, err
	}
	info := a.Process(path)
	return a.Store(ctx, StoreInput{
		PatientID:   patientID,
		Filename:    filename,
		FilePath:    path,
		ImageType:   imageType,
		Description: description,
		Info:        info,
	})
}

func (a *Agent) List(ctx context.Context, patientID uint) ([]models.MedicalImage, error) {
	return a.repo.ListImages(ctx, patientID)
}

func (a *Agent) Summary(ctx context.Context, patientID uint) (string, error) {
	images, err := a.repo.ListImages(ctx, patientID)
	if err != nil {
		return "", err
	}
	return Summarize(images), nil
}

func Summarize(images []models.MedicalImage) string {
	if len(images) == 0 {
		return NoImagesSummary
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Medical Images (%d total):\n", len(images))
	for _, img := range images {
		imageType := img.ImageType
		if imageType == "" {
			imageType = "Unknown type"
		}
		fmt.Fprintf(&b, "- %s (%s)", img.Filename, imageType)
		if img.Description != "" {
			b.WriteString(": " + img.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// IsSupported reports whether an extension is accepted as an image upload.
func IsSupported(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, f := range SupportedFormats {
		if ext == f {
			return true
		}
	}
	return false
}
