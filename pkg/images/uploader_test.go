package images_test

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/framezsocial/framez/pkg/images"
)

type fakeStore struct {
	bucket      string
	path        string
	contentType string
	data        []byte
	err         error
}

func (f *fakeStore) Upload(bucket, path string, data []byte, contentType string) error {
	f.bucket = bucket
	f.path = path
	f.data = data
	f.contentType = contentType
	return f.err
}

func (f *fakeStore) PublicURL(bucket, path string) string {
	return "https://cdn.example.co/" + bucket + "/" + path
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := png.Encode(buf, img); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestUploader_UploadBytes(t *testing.T) {
	store := &fakeStore{}
	uploader := images.NewUploader(store, "images")

	url, err := uploader.UploadBytes(pngBytes(t), "u1", "posts")
	if err != nil {
		t.Fatal(err)
	}

	if store.bucket != "images" {
		t.Fatalf("unexpected bucket %s", store.bucket)
	}

	if !strings.HasPrefix(store.path, "posts/u1_") || !strings.HasSuffix(store.path, ".png") {
		t.Fatalf("unexpected object path %s", store.path)
	}

	if store.contentType != "image/png" {
		t.Fatalf("unexpected content type %s", store.contentType)
	}

	if !strings.HasPrefix(url, "https://cdn.example.co/images/posts/u1_") {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestUploader_UploadBytes_RejectsNonImage(t *testing.T) {
	uploader := images.NewUploader(&fakeStore{}, "images")

	_, err := uploader.UploadBytes([]byte("definitely not an image"), "u1", "posts")
	if err == nil {
		t.Fatal("expected error for non-image data")
	}
}

func TestUploader_UniquePaths(t *testing.T) {
	store := &fakeStore{}
	uploader := images.NewUploader(store, "images")

	_, err := uploader.UploadBytes(pngBytes(t), "u1", "stories")
	if err != nil {
		t.Fatal(err)
	}
	first := store.path

	_, err = uploader.UploadBytes(pngBytes(t), "u1", "stories")
	if err != nil {
		t.Fatal(err)
	}

	if store.path == first {
		t.Fatal("expected a fresh object path per upload")
	}
}
