package gcp

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Vision performs OCR on photographed receipts and invoices. PDFs never
// come through here; they go to the Document AI processor instead.
type Vision interface {
	OCRImageBytes(ctx context.Context, img []byte, mimeType string) (*VisionOCRResult, error)
	Close() error
}

type VisionOCRResult struct {
	Provider   string   `json:"provider"`
	MimeType   string   `json:"mime_type,omitempty"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings,omitempty"`
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVision(baseLog *logger.Logger) (Vision, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := baseLog.With("service", "gcp.Vision")

	client, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{log: slog, client: client}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) OCRImageBytes(ctx context.Context, img []byte, mimeType string) (*VisionOCRResult, error) {
	if len(img) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: img},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}
	var resp *visionpb.BatchAnnotateImagesResponse
	err := withRPCRetry(ctx, 3, time.Second, func() error {
		var callErr error
		resp, callErr = s.client.BatchAnnotateImages(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &VisionOCRResult{Provider: "gcp_vision", MimeType: mimeType}, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	out := &VisionOCRResult{Provider: "gcp_vision", MimeType: mimeType}
	fta := r0.FullTextAnnotation
	if fta == nil {
		out.Warnings = append(out.Warnings, "no text detected")
		return out, nil
	}
	out.Text = collapseWhitespace(fta.Text)
	out.Confidence = avgPageConfidence(fta.Pages)
	if out.Text == "" {
		out.Warnings = append(out.Warnings, "no text detected")
	}
	return out, nil
}

func avgPageConfidence(pages []*visionpb.Page) float64 {
	var sum float64
	n := 0
	for _, pg := range pages {
		if pg == nil {
			continue
		}
		for _, b := range pg.Blocks {
			if b != nil && b.Confidence > 0 {
				sum += float64(b.Confidence)
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
