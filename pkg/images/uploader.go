// Package images moves local image files into object storage.
package images

import (
	"bytes"
	"fmt"
	"image/gif"
	"image/png"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
)

// Store is the slice of the storage client the uploader needs.
type Store interface {
	Upload(bucket, path string, data []byte, contentType string) error
	PublicURL(bucket, path string) string
}

type Uploader struct {
	storage Store
	bucket  string
}

func NewUploader(storage Store, bucket string) *Uploader {
	return &Uploader{storage: storage, bucket: bucket}
}

// Upload reads a local image file and stores it under
// <prefix>/<user>_<ksuid>.<ext>, returning the public URL.
// A row insert failing after this leaves an orphaned object behind,
// the caller does not roll uploads back.
func (u *Uploader) Upload(path, user, prefix string) (string, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "unable to read image")
	}

	return u.UploadBytes(raw, user, prefix)
}

// UploadBytes stores already-loaded image data.
func (u *Uploader) UploadBytes(raw []byte, user, prefix string) (string, error) {
	data, contentType, ext, err := normalize(raw)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s/%s_%s.%s", prefix, user, ksuid.New().String(), ext)

	err = u.storage.Upload(u.bucket, name, data, contentType)
	if err != nil {
		return "", err
	}

	return u.storage.PublicURL(u.bucket, name), nil
}

// normalize sniffs the image type, png and jpeg pass through, gif is
// re-encoded as png. Anything else is rejected.
func normalize(raw []byte) ([]byte, string, string, error) {
	contentType := http.DetectContentType(raw)

	switch contentType {
	case "image/png":
		return raw, contentType, "png", nil
	case "image/jpeg":
		return raw, contentType, "jpg", nil
	case "image/gif":
		img, err := gif.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, "", "", errors.Wrap(err, "unable to decode gif")
		}

		buf := new(bytes.Buffer)
		if err := png.Encode(buf, img); err != nil {
			return nil, "", "", errors.Wrap(err, "unable to encode png")
		}

		return buf.Bytes(), "image/png", "png", nil
	}

	return nil, "", "", fmt.Errorf("unsupported image type %#v", contentType)
}
