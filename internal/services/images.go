package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yelpcamp/apiserver/types"
)

// Upload is an image file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

func validateImage(u *Upload) error {
	if u == nil {
		return nil
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(u.Filename))] {
		return invalidInput("only image files are allowed")
	}
	if len(u.Data) == 0 {
		return invalidInput("image file is empty")
	}
	return nil
}

func uploadImage(ctx context.Context, images ImageStore, u *Upload) (types.Image, error) {
	if images == nil {
		return types.Image{}, fmt.Errorf("%w: image storage is not configured", ErrUpstream)
	}
	img, err := images.Upload(ctx, u.Filename, u.Data)
	if err != nil {
		return types.Image{}, fmt.Errorf("%w: upload image: %v", ErrUpstream, err)
	}
	return img, nil
}

func destroyImage(ctx context.Context, images ImageStore, id string) error {
	if id == "" || images == nil {
		return nil
	}
	if err := images.Destroy(ctx, id); err != nil {
		return fmt.Errorf("%w: destroy image: %v", ErrUpstream, err)
	}
	return nil
}

// discardImage removes an image no stored record refers to: an upload for a
// write that did not happen, or the image a committed write replaced.
func discardImage(ctx context.Context, images ImageStore, id string) {
	if err := destroyImage(ctx, images, id); err != nil {
		slog.Warn("failed to discard unreferenced image",
			slog.String("image_id", id),
			slog.Any("error", err),
		)
	}
}
