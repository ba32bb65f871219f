package manifest

import (
	"context"
	"testing"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
)

func TestNormalize(t *testing.T) {
	info := &models.ManifestInfo{
		PackageName: "  ",
		Permissions: []string{"android.permission.SEND_SMS", " android.permission.CAMERA", "android.permission.SEND_SMS", ""},
	}

	got := Normalize(info, "/data/apps/sample.v2.apk")

	if got.PackageName != "sample" {
		t.Errorf("Expected package fallback 'sample', got %q", got.PackageName)
	}
	want := []string{"android.permission.CAMERA", "android.permission.SEND_SMS"}
	if len(got.Permissions) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got.Permissions)
	}
	for i := range want {
		if got.Permissions[i] != want[i] {
			t.Errorf("Permission %d: expected %q, got %q", i, want[i], got.Permissions[i])
		}
	}
	if len(info.Permissions) != 4 {
		t.Error("Normalize must not modify its input")
	}
}

func TestNormalizeNil(t *testing.T) {
	got := Normalize(nil, "app.apk")
	if got.PackageName != "app" {
		t.Errorf("Expected package 'app', got %q", got.PackageName)
	}
}

func TestReaderFunc(t *testing.T) {
	var r Reader = ReaderFunc(func(ctx context.Context, path string) (*models.ManifestInfo, error) {
		return &models.ManifestInfo{PackageName: "com.example"}, nil
	})
	info, err := r.Read(context.Background(), "x.apk")
	if err != nil || info.PackageName != "com.example" {
		t.Errorf("Unexpected result %+v, %v", info, err)
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"/a/b/app.apk":    "app",
		"app.release.apk": "app",
		"noext":           "noext",
	}
	for input, want := range tests {
		if got := BaseName(input); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", input, got, want)
		}
	}
}
