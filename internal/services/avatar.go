package services

import (
  "context"
  "fmt"
  "hash/fnv"
  "image/color"
  "os"
  "path/filepath"
  "strings"
  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "golang.org/x/image/font"
  "golang.org/x/image/font/basicfont"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/types"
  "github.com/reefspotter/backend/internal/utils"
)

const avatarSize = 256

// AvatarService renders a flat-color initials avatar for a new account and
// writes it under the local media directory. Purely cosmetic: any failure is
// logged and registration continues without an avatar.
type AvatarService interface {
  CreateUserAvatar(ctx context.Context, user *types.User) error
}

type avatarService struct {
  log      *logger.Logger
  dir      string
  urlBase  string
  fontFace font.Face
  palette  []color.NRGBA
}

func NewAvatarService(log *logger.Logger) (AvatarService, error) {
  serviceLog := log.With("service", "AvatarService")

  dir := utils.GetEnv("AVATAR_DIR", "media/avatars", log)
  if err := os.MkdirAll(dir, 0o755); err != nil {
    return nil, fmt.Errorf("Failed to create avatar dir: %w", err)
  }

  face := font.Face(basicfont.Face7x13)
  fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT"))
  if fontPath != "" {
    raw, err := os.ReadFile(fontPath)
    if err != nil {
      return nil, fmt.Errorf("Failed to read avatar font: %w", err)
    }
    ttf, err := truetype.Parse(raw)
    if err != nil {
      return nil, fmt.Errorf("Failed to parse avatar font: %w", err)
    }
    face = truetype.NewFace(ttf, &truetype.Options{Size: 110})
  } else {
    serviceLog.Warn("AVATAR_FONT not set, falling back to builtin bitmap face")
  }

  return &avatarService{
    log:     serviceLog,
    dir:     dir,
    urlBase: "/media/avatars",
    fontFace: face,
    palette: []color.NRGBA{
      {R: 0x0E, G: 0x7C, B: 0x86, A: 0xFF}, // reef teal
      {R: 0x14, G: 0x52, B: 0x77, A: 0xFF}, // deep water
      {R: 0xE8, G: 0x6A, B: 0x92, A: 0xFF}, // coral pink
      {R: 0xF4, G: 0xA2, B: 0x59, A: 0xFF}, // clownfish orange
      {R: 0x2E, G: 0x86, B: 0x5C, A: 0xFF}, // kelp green
    },
  }, nil
}

func (avs *avatarService) CreateUserAvatar(ctx context.Context, user *types.User) error {
  if user == nil {
    return fmt.Errorf("No user given")
  }

  initials := avatarInitials(user)
  bg := avs.palette[pickColorIndex(user.Email, len(avs.palette))]

  dc := gg.NewContext(avatarSize, avatarSize)
  dc.SetColor(bg)
  dc.Clear()
  dc.SetFontFace(avs.fontFace)
  dc.SetRGB(1, 1, 1)
  dc.DrawStringAnchored(initials, avatarSize/2, avatarSize/2, 0.5, 0.5)

  fileName := user.ID.String() + ".png"
  outPath := filepath.Join(avs.dir, fileName)
  if err := dc.SavePNG(outPath); err != nil {
    return fmt.Errorf("Failed to write avatar png: %w", err)
  }

  user.AvatarURL = avs.urlBase + "/" + fileName
  avs.log.Debug("Generated user avatar", "path", outPath)
  return nil
}

func avatarInitials(user *types.User) string {
  src := strings.TrimSpace(user.Nickname)
  if src == "" {
    src = user.Email
  }
  fields := strings.Fields(src)
  switch {
  case len(fields) >= 2:
    return strings.ToUpper(fields[0][:1] + fields[1][:1])
  case len(src) >= 2:
    return strings.ToUpper(src[:2])
  case len(src) == 1:
    return strings.ToUpper(src)
  default:
    return "??"
  }
}

func pickColorIndex(seed string, n int) int {
  if n == 0 {
    return 0
  }
  h := fnv.New32a()
  _, _ = h.Write([]byte(seed))
  return int(h.Sum32() % uint32(n))
}
