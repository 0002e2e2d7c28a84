package services

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	userdom "github.com/veldtops/fieldsuite-backend/internal/domain/user"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/gcp"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type AvatarService interface {
	// CreateAndUploadUserAvatar renders an initials avatar, uploads it, and
	// points the user row at the new object.
	CreateAndUploadUserAvatar(dbc dbctx.Context, u *userdom.User) error
	CreateAndUploadUserAvatarFromImage(dbc dbctx.Context, u *userdom.User, raw []byte) error
	GenerateUserAvatar(u *userdom.User) (bytes.Buffer, error)
}

type avatarService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	bucketService gcp.BucketService

	bgColors []color.NRGBA
	fontFace font.Face
}

func NewAvatarService(gdb *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, bucketService gcp.BucketService) (AvatarService, error) {
	serviceLog := baseLog.With("service", "AvatarService")

	colorsJSONPath := os.Getenv("AVATAR_COLORS_JSON_PATH")
	if strings.TrimSpace(colorsJSONPath) == "" {
		return nil, fmt.Errorf("Env var AVATAR_COLORS_JSON_PATH is empty")
	}
	serviceLog.Info("Loading avatar colors...", "path", colorsJSONPath)

	bgColors, err := loadColorsFromFile(colorsJSONPath)
	if err != nil {
		return nil, fmt.Errorf("could not load avatar colors: %w", err)
	}
	if len(bgColors) == 0 {
		return nil, fmt.Errorf("avatar colors list is empty")
	}

	fontPath := os.Getenv("AVATAR_FONT")
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("Env var AVATAR_FONT is empty")
	}
	serviceLog.Info("Loading avatar font", "font", fontPath)

	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("could not load avatar font: %w", err)
	}

	return &avatarService{
		db:            gdb,
		log:           serviceLog,
		userRepo:      userRepo,
		bucketService: bucketService,
		bgColors:      bgColors,
		fontFace:      face,
	}, nil
}

func (as *avatarService) CreateAndUploadUserAvatar(dbc dbctx.Context, u *userdom.User) error {
	if u == nil || u.ID == uuid.Nil {
		return fmt.Errorf("user required")
	}

	buf, err := as.GenerateUserAvatar(u)
	if err != nil {
		return err
	}
	return as.swapAvatarObject(dbc, u, buf.Bytes())
}

func (as *avatarService) CreateAndUploadUserAvatarFromImage(dbc dbctx.Context, u *userdom.User, raw []byte) error {
	if u == nil || u.ID == uuid.Nil {
		return fmt.Errorf("user required")
	}

	processed, err := processUploadedAvatar(raw, 512)
	if err != nil {
		return err
	}
	return as.swapAvatarObject(dbc, u, processed.Bytes())
}

// swapAvatarObject uploads the new PNG under a versioned key, persists the new
// key on the user row, then best-effort deletes the old object. The versioned
// key keeps CDNs from serving stale cached content.
func (as *avatarService) swapAvatarObject(dbc dbctx.Context, u *userdom.User, png []byte) error {
	oldKey := strings.TrimSpace(u.AvatarBucketKey)
	newKey := fmt.Sprintf("user_avatar/%s/%d.png", u.ID.String(), time.Now().UnixNano())

	if err := as.bucketService.UploadFile(dbc, gcp.BucketCategoryAvatar, newKey, bytes.NewReader(png)); err != nil {
		return fmt.Errorf("failed to upload user avatar: %w", err)
	}

	u.AvatarBucketKey = newKey
	u.AvatarURL = as.bucketService.GetPublicURL(gcp.BucketCategoryAvatar, newKey)

	if err := as.userRepo.UpdateAvatarFields(dbc, u.ID, newKey, u.AvatarURL); err != nil {
		return fmt.Errorf("failed to persist avatar fields: %w", err)
	}

	if oldKey != "" && oldKey != newKey {
		if err := as.bucketService.DeleteFile(dbctx.Context{Ctx: dbc.Ctx}, gcp.BucketCategoryAvatar, oldKey); err != nil {
			as.log.Warn("failed to delete old avatar (ignored)", "oldKey", oldKey, "error", err)
		}
	}
	return nil
}

func (as *avatarService) GenerateUserAvatar(u *userdom.User) (bytes.Buffer, error) {
	const size = 512

	dc := gg.NewContext(size, size)

	// Clip to circle
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()

	// Fill bg, picked deterministically so re-renders keep the same color
	base := as.colorForUser(u.ID)
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	initials := u.Initials()
	if initials == "" {
		initials = "?"
	}

	dc.SetFontFace(as.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(size)/2, float64(size)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2)+5, cy+(th/2)-10)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

// colorForUser hashes the user id into the palette so the same user always
// gets the same background.
func (as *avatarService) colorForUser(id uuid.UUID) color.NRGBA {
	h := fnv.New32a()
	h.Write(id[:])
	return as.bgColors[int(h.Sum32())%len(as.bgColors)]
}

func processUploadedAvatar(raw []byte, size int) (bytes.Buffer, error) {
	var out bytes.Buffer

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return out, fmt.Errorf("decode image: %w", err)
	}

	// Center-crop to square
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()
	side := w
	if h < w {
		side = h
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2

	cropRect := image.Rect(0, 0, side, side)
	cropped := image.NewRGBA(cropRect)
	draw.Draw(cropped, cropRect, img, image.Point{X: x0, Y: y0}, draw.Src)

	// Resize to NxN
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)

	// Circle clip with gg
	dc := gg.NewContext(size, size)
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()
	dc.DrawImage(dst, 0, 0)

	if err := dc.EncodePNG(&out); err != nil {
		return out, fmt.Errorf("encode png: %w", err)
	}

	return out, nil
}

func loadColorsFromFile(jsonPath string) ([]color.NRGBA, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", jsonPath, err)
	}
	var hexes []string
	if err := json.Unmarshal(data, &hexes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", jsonPath, err)
	}
	out := make([]color.NRGBA, 0, len(hexes))
	for _, hx := range hexes {
		r, g, b, err := parseHexRGB(hx)
		if err != nil {
			return nil, fmt.Errorf("color %q: %w", hx, err)
		}
		out = append(out, color.NRGBA{R: r, G: g, B: b, A: 255})
	}
	return out, nil
}

func parseHexRGB(s string) (r, g, b uint8, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		s = s[1:]
	}
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("expected 6 hex chars")
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid hex")
	}
	return raw[0], raw[1], raw[2], nil
}

func loadFontFace(path string, points float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}
