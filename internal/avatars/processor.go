// Package avatars ingests uploaded profile images: it normalizes them to a
// fixed square and stores them on the local filesystem.
package avatars

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	ErrMissingFile      = errors.New("avatar file is required")
	ErrUnsupportedImage = errors.New("unsupported image")
	ErrTooLarge         = errors.New("avatar file is too large")
)

const (
	DefaultSize      = 250
	DefaultURLPrefix = "/avatars"
)

// Upload is a single uploaded file. Open is called at most once.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

type Options struct {
	Dir       string
	TmpDir    string
	URLPrefix string
	Size      int
	MaxBytes  int64
}

type Processor struct {
	dir       string
	tmpDir    string
	urlPrefix string
	size      int
	maxBytes  int64
}

func NewProcessor(opts Options) *Processor {
	p := &Processor{
		dir:       opts.Dir,
		tmpDir:    opts.TmpDir,
		urlPrefix: strings.TrimRight(opts.URLPrefix, "/"),
		size:      opts.Size,
		maxBytes:  opts.MaxBytes,
	}
	if p.urlPrefix == "" {
		p.urlPrefix = DefaultURLPrefix
	}
	if p.size <= 0 {
		p.size = DefaultSize
	}
	if p.tmpDir == "" {
		p.tmpDir = os.TempDir()
	}
	return p
}

// Process stores upload as a size×size avatar and returns its relative URL.
// The temporary copy of the upload is removed on every path.
func (p *Processor) Process(ctx context.Context, upload Upload) (string, error) {
	if upload.Filename == "" || upload.Open == nil {
		return "", ErrMissingFile
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}
	tmp, err := os.CreateTemp(p.tmpDir, "avatar-*")
	if err != nil {
		return "", fmt.Errorf("create tmp file: %w", err)
	}
	committed := false
	defer func() {
		tmp.Close()
		if !committed {
			os.Remove(tmp.Name())
		}
	}()

	if err := p.copyUpload(tmp, upload); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind tmp file: %w", err)
	}
	img, err := imaging.Decode(tmp, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img = imaging.Fill(autocrop(img), p.size, p.size, imaging.Center, imaging.Lanczos)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	format, err := imaging.FormatFromFilename(upload.Filename)
	if err != nil {
		format = imaging.PNG
	}
	if err := tmp.Truncate(0); err != nil {
		return "", fmt.Errorf("truncate tmp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind tmp file: %w", err)
	}
	if err := imaging.Encode(tmp, img, format); err != nil {
		return "", fmt.Errorf("encode avatar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close tmp file: %w", err)
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create avatar dir: %w", err)
	}
	name := uuid.NewString() + sanitizeFilename(upload.Filename)
	if err := os.Rename(tmp.Name(), filepath.Join(p.dir, name)); err != nil {
		return "", fmt.Errorf("move avatar: %w", err)
	}
	committed = true

	return p.urlPrefix + "/" + name, nil
}

func (p *Processor) copyUpload(dst io.Writer, upload Upload) error {
	src, err := upload.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	r := io.Reader(src)
	if p.maxBytes > 0 {
		r = io.LimitReader(src, p.maxBytes+1)
	}
	n, err := io.Copy(dst, r)
	if err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	if n == 0 {
		return ErrMissingFile
	}
	if p.maxBytes > 0 && n > p.maxBytes {
		return ErrTooLarge
	}
	return nil
}

// Remove deletes the avatar stored under relativeURL. URLs outside the
// avatar prefix and missing files are ignored.
func (p *Processor) Remove(relativeURL string) error {
	if !strings.HasPrefix(relativeURL, p.urlPrefix+"/") {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(relativeURL, p.urlPrefix+"/"))
	if name == "." || name == "/" {
		return nil
	}
	if err := os.Remove(filepath.Join(p.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove avatar: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
