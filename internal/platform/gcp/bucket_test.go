package gcp

import (
	"strings"
	"testing"
)

func TestResolveStorageModeDefaultsToGCS(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")

	mode, host, err := resolveStorageMode()
	if err != nil {
		t.Fatalf("resolveStorageMode: %v", err)
	}
	if mode != StorageModeGCS || host != "" {
		t.Fatalf("mode: want=%q got=%q host=%q", StorageModeGCS, mode, host)
	}
}

func TestResolveStorageModeEmulatorFromHost(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443/")

	mode, host, err := resolveStorageMode()
	if err != nil {
		t.Fatalf("resolveStorageMode: %v", err)
	}
	if mode != StorageModeEmulator {
		t.Fatalf("mode: want=%q got=%q", StorageModeEmulator, mode)
	}
	if host != "http://fake-gcs:4443" {
		t.Fatalf("host: want trailing slash trimmed, got=%q", host)
	}
}

func TestResolveStorageModeEmulatorRequiresHost(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "gcs_emulator")
	t.Setenv("STORAGE_EMULATOR_HOST", "")

	if _, _, err := resolveStorageMode(); err == nil {
		t.Fatalf("resolveStorageMode: expected error, got nil")
	}
}

func TestResolveStorageModeRejectsUnknown(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "s3")

	if _, _, err := resolveStorageMode(); err == nil {
		t.Fatalf("resolveStorageMode: expected error, got nil")
	}
}

func TestResolveStoragePublicBaseURL(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	base, source, err := resolveStoragePublicBaseURL(StorageModeGCS, "")
	if err != nil {
		t.Fatalf("resolveStoragePublicBaseURL: %v", err)
	}
	if base != "" || source != "gcs_default" {
		t.Fatalf("gcs default: got base=%q source=%q", base, source)
	}

	base, source, err = resolveStoragePublicBaseURL(StorageModeEmulator, "http://fake-gcs:4443")
	if err != nil {
		t.Fatalf("resolveStoragePublicBaseURL: %v", err)
	}
	if base != "http://fake-gcs:4443" || source != "storage_emulator_host" {
		t.Fatalf("emulator fallback: got base=%q source=%q", base, source)
	}

	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "http://localhost:4443/")
	base, source, err = resolveStoragePublicBaseURL(StorageModeEmulator, "http://fake-gcs:4443")
	if err != nil {
		t.Fatalf("resolveStoragePublicBaseURL: %v", err)
	}
	if base != "http://localhost:4443" || source != "object_storage_public_base_url" {
		t.Fatalf("env override: got base=%q source=%q", base, source)
	}

	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "localhost:4443")
	if _, _, err := resolveStoragePublicBaseURL(StorageModeEmulator, "http://fake-gcs:4443"); err == nil {
		t.Fatalf("resolveStoragePublicBaseURL: expected scheme error, got nil")
	}
}

func TestGetPublicURLGCSDefault(t *testing.T) {
	bs := &bucketService{
		avatarBucket: bucketConfig{name: "avatar-bucket"},
	}

	got := bs.GetPublicURL(BucketCategoryAvatar, "avatars/user.png")
	want := "https://storage.googleapis.com/avatar-bucket/avatars/user.png"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesCDNDomain(t *testing.T) {
	bs := &bucketService{
		avatarBucket: bucketConfig{
			name:      "avatar-bucket",
			cdnDomain: "cdn.example.com",
		},
	}

	got := bs.GetPublicURL(BucketCategoryAvatar, "avatars/user.png")
	want := "https://cdn.example.com/avatars/user.png"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesEmulatorMediaEndpoint(t *testing.T) {
	bs := &bucketService{
		storageMode:   StorageModeEmulator,
		publicBaseURL: "http://localhost:4443",
		documentBucket: bucketConfig{
			name: "document-bucket",
		},
	}

	got := bs.GetPublicURL(BucketCategoryDocument, "/documents/org/abc.pdf")
	want := "http://localhost:4443/storage/v1/b/document-bucket/o/documents%2Forg%2Fabc.pdf?alt=media"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
	if !strings.Contains(got, "alt=media") {
		t.Fatalf("emulator URL should hit the media endpoint: %s", got)
	}
}

func TestObjectURI(t *testing.T) {
	bs := &bucketService{
		documentBucket: bucketConfig{name: "document-bucket"},
	}

	got := bs.ObjectURI(BucketCategoryDocument, "/documents/org/abc.pdf")
	want := "gs://document-bucket/documents/org/abc.pdf"
	if got != want {
		t.Fatalf("ObjectURI: want=%q got=%q", want, got)
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"avatars/user.PNG":      "image/png",
		"documents/scan.jpeg":   "image/jpeg",
		"documents/invoice.pdf": "application/pdf",
		"exports/rows.csv":      "text/csv",
		"misc/blob":             "application/octet-stream",
	}
	for key, want := range cases {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("contentTypeForKey(%q): want=%q got=%q", key, want, got)
		}
	}
}
