package storage_test

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/framezsocial/framez/pkg/storage"
)

func TestClient_Upload(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = ioutil.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Key":"images/posts/u1_abc.png"}`))
	}))
	defer server.Close()

	client := storage.NewClient(server.URL, "anon")

	err := client.Upload("images", "posts/u1_abc.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/storage/v1/object/images/posts/u1_abc.png" {
		t.Fatalf("unexpected path %s", gotPath)
	}

	if gotContentType != "image/png" {
		t.Fatalf("unexpected content type %s", gotContentType)
	}

	if string(gotBody) != "png-bytes" {
		t.Fatal("body not forwarded")
	}
}

func TestClient_Upload_Duplicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"The resource already exists"}`))
	}))
	defer server.Close()

	client := storage.NewClient(server.URL, "anon")

	err := client.Upload("images", "posts/u1_abc.png", []byte("png-bytes"), "image/png")
	if err == nil {
		t.Fatal("expected error for duplicate path")
	}
}

func TestClient_PublicURL(t *testing.T) {
	client := storage.NewClient("https://framez.example.co/", "anon")

	url := client.PublicURL("images", "posts/u1_abc.png")
	expected := "https://framez.example.co/storage/v1/object/public/images/posts/u1_abc.png"
	if url != expected {
		t.Fatalf("expected %s got %s", expected, url)
	}
}
